package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/access-terminal/internal/domain/access"
)

var errModel = errors.New("model not loaded")

// TestGuard covers success, errors and panics.
func TestGuard(t *testing.T) {
	t.Parallel()

	v, failure := Guard(access.SourceQR, func() (int, error) { return 7, nil })
	require.Nil(t, failure)
	require.Equal(t, 7, v)

	v, failure = Guard(access.SourceWeapon, func() (int, error) { return 7, errModel })
	require.NotNil(t, failure)
	require.Zero(t, v)
	require.Equal(t, access.SourceWeapon, failure.Source)
	require.ErrorIs(t, failure, errModel)
	require.Equal(t, "weapon detector: model not loaded", failure.Error())

	v, failure = Guard(access.SourceFace, func() (int, error) { panic("tensor shape mismatch") })
	require.NotNil(t, failure)
	require.Zero(t, v)
	require.ErrorIs(t, failure, ErrPanicked)
	require.Contains(t, failure.Error(), "tensor shape mismatch")
}
