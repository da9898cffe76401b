package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate_Defaults checks that an empty config gets the terminal cadence.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.Equal(t, time.Second, cfg.TickInterval)
	require.Equal(t, 3*time.Second, cfg.CycleDeadline)
	require.Equal(t, 5*time.Second, cfg.GrantedWindow)
	require.Equal(t, 3*time.Second, cfg.DeniedWindow)
	require.Equal(t, 10*time.Second, cfg.EmergencyWindow)
	require.InDelta(t, 0.3, cfg.WeaponThreshold, 1e-9)
	require.Equal(t, QRPayloadAuto, cfg.QRPayload)
	require.Empty(t, cfg.RedisChannel)
}

// TestValidate_Rejects checks the format validations.
func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]*Config{
		"bad listen":     {ListenAddress: "bad:address"},
		"bad ops":        {OpsAddress: "nowhere:port"},
		"threshold":      {WeaponThreshold: 1.5},
		"negative face":  {FaceDistanceThreshold: -1},
		"qr mode":        {QRPayload: "base64"},
		"negative grant": {GrantedWindow: -time.Second},
		"inference url":  {InferenceURL: "not a url"},
	}

	for name, cfg := range cases {
		require.Error(t, Validate(cfg), name)
	}

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestValidate_LegacyThreshold keeps the older 0.25 weapon threshold usable.
func TestValidate_LegacyThreshold(t *testing.T) {
	t.Parallel()

	cfg := &Config{WeaponThreshold: 0.25, RedisAddress: "127.0.0.1:6379"}
	require.NoError(t, Validate(cfg))
	require.InDelta(t, 0.25, cfg.WeaponThreshold, 1e-9)
	require.Equal(t, DefaultRedisChannel, cfg.RedisChannel)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := &Config{
		ListenAddress:   "127.0.0.1:50099",
		InferenceURL:    "http://127.0.0.1:8500/",
		WeaponThreshold: 0.25,
		QRPayload:       QRPayloadJSON,
		AccessPolicy:    `identity.DepartmentID != "suspended"`,
		AlarmCommand:    []string{"paplay", "/usr/share/sounds/alarm.oga"},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.ListenAddress, loaded.ListenAddress)
	require.Equal(t, settings.InferenceURL, loaded.InferenceURL)
	require.Equal(t, settings.QRPayload, loaded.QRPayload)
	require.Equal(t, settings.AccessPolicy, loaded.AccessPolicy)
	require.Equal(t, settings.AlarmCommand, loaded.AlarmCommand)
	require.Equal(t, 10*time.Second, loaded.EmergencyWindow)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_Missing returns an error for a missing file.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
