package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/domain/access"
)

// Repository defines persistence operations for the identity directory.
type Repository interface {
	Load(ctx context.Context) ([]access.Identity, error)
	Save(ctx context.Context, identities []access.Identity) error
}

// FileRepository stores identities in a YAML document on disk.
type FileRepository struct {
	// path is the filesystem location of the directory file.
	path string
	// mu serializes access to the file.
	mu sync.Mutex
}

// document is the on-disk layout.
type document struct {
	// Identities lists the known people.
	Identities []access.Identity `yaml:"identities"`
}

var (
	// ErrNotFound is returned when the directory file does not exist yet.
	ErrNotFound = errors.New("directory not found")
	// errMissingID is returned for an entry without an id.
	errMissingID = errors.New("identity without id")
	// errDuplicateID is returned when two entries share an id.
	errDuplicateID = errors.New("duplicate identity id")
	// errDescriptorLength is returned when enrolled descriptors differ in length.
	errDescriptorLength = errors.New("face descriptors of different lengths")
)

// NewFileRepository creates a repository that reads and writes YAML at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads and validates the identities.
func (r *FileRepository) Load(_ context.Context) ([]access.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode directory file: %w", err)
	}

	if err = validate(doc.Identities); err != nil {
		return nil, err
	}

	return doc.Identities, nil
}

// Save writes the identities atomically.
func (r *FileRepository) Save(_ context.Context, identities []access.Identity) error {
	if err := validate(identities); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(document{Identities: identities})
	if err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}

	if err = renameio.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write directory file: %w", err)
	}

	return nil
}

func validate(identities []access.Identity) error {
	var (
		seen        = make(map[string]struct{}, len(identities))
		dimension   int
		dimensionOf string
	)

	for i, identity := range identities {
		if identity.ID == "" {
			return fmt.Errorf("%w at position %d", errMissingID, i)
		}

		if _, ok := seen[identity.ID]; ok {
			return fmt.Errorf("%w: %s", errDuplicateID, identity.ID)
		}

		seen[identity.ID] = struct{}{}

		if !identity.HasDescriptor() {
			continue
		}

		if dimension == 0 {
			dimension, dimensionOf = len(identity.Descriptor), identity.ID

			continue
		}

		if len(identity.Descriptor) != dimension {
			return fmt.Errorf("%w: %s has %d, %s has %d",
				errDescriptorLength, identity.ID, len(identity.Descriptor), dimensionOf, dimension)
		}
	}

	return nil
}
