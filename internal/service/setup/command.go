// Package setup writes a starter settings file and identity directory for a
// new terminal.
package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/logger"
	repository "github.com/oshokin/access-terminal/internal/repository/directory"
	"github.com/oshokin/access-terminal/internal/service/guard"
)

// framesDirPermissions is the mode of the created replay folder.
const framesDirPermissions = 0o750

// Options contains inputs for the init command.
type Options struct {
	// ConfigPath is the settings file to write.
	ConfigPath string
	// ListenAddress overrides the default gRPC status API address.
	ListenAddress string
	// InferenceURL sets the inference sidecar, empty for QR-only terminals.
	InferenceURL string
	// Force overwrites an existing settings file.
	Force bool
}

// ErrSettingsExist is returned when the settings file exists and Force is unset.
var ErrSettingsExist = errors.New("settings file already exists")

// Run writes default settings, a sample directory and the replay folder.
// An existing directory file is never overwritten.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "setup")

	// Rewriting settings under a live daemon would desynchronize it from its journal.
	if err := guard.EnsureSingleInstance(); err != nil {
		return err
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return fmt.Errorf("%w: %s", ErrSettingsExist, path)
	}

	cfg := &config.Config{
		ListenAddress: opts.ListenAddress,
		InferenceURL:  opts.InferenceURL,
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	logger.InfoKV(ctx, "Settings written", "path", path)

	base := filepath.Dir(path)

	if err := os.MkdirAll(resolve(base, cfg.FramesDir), framesDirPermissions); err != nil {
		return fmt.Errorf("create frames folder: %w", err)
	}

	repo := repository.NewFileRepository(resolve(base, cfg.DirectoryFile))

	_, err := repo.Load(ctx)
	switch {
	case err == nil:
		logger.InfoKV(ctx, "Keeping existing directory", "path", repo.Path())

		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("check directory: %w", err)
	}

	if err = repo.Save(ctx, SampleDirectory()); err != nil {
		return fmt.Errorf("save directory: %w", err)
	}

	logger.InfoKV(ctx, "Sample directory written", "path", repo.Path())

	return nil
}

// SampleDirectory returns the identities written for a fresh terminal.
func SampleDirectory() []access.Identity {
	return []access.Identity{
		{ID: "S001", DisplayName: "Sample Student", DepartmentID: "CSE", SectionID: "A"},
	}
}

// resolve places relative paths next to the settings file.
func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(base, path)
}
