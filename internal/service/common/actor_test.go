//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectActor ensures the terminal actor carries the system user and hostname.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(a, SystemUser+"@"))
	require.Greater(t, len(a), len(SystemUser)+1)
}

// TestActorFor covers an unknown hostname.
func TestActorFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "System-AI@gate-1", ActorFor("gate-1"))
	require.Equal(t, SystemUser, ActorFor(""))
}
