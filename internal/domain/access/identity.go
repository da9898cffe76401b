package access

import "slices"

// Identity is a person known to the terminal.
type Identity struct {
	// ID is the roll number or badge id, also carried by QR tokens.
	ID string `yaml:"id"`
	// DisplayName is the name shown on the terminal.
	DisplayName string `yaml:"name"`
	// DepartmentID identifies the department the person belongs to.
	DepartmentID string `yaml:"department_id"`
	// SectionID identifies the section within the department.
	SectionID string `yaml:"section_id"`
	// Descriptor is the registered face descriptor, empty when none is enrolled.
	Descriptor []float32 `yaml:"descriptor,omitempty"`
}

// HasDescriptor reports whether a face descriptor is enrolled.
func (i *Identity) HasDescriptor() bool {
	return len(i.Descriptor) > 0
}

// Clone returns a deep copy of the identity.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}

	cloned := *i
	cloned.Descriptor = slices.Clone(i.Descriptor)

	return &cloned
}

// Directory is a read-only view of the known identities.
type Directory interface {
	ListIdentities() []Identity
}

// FindIdentity looks up an identity by id.
func FindIdentity(dir Directory, id string) (Identity, bool) {
	if dir == nil || id == "" {
		return Identity{}, false
	}

	for _, identity := range dir.ListIdentities() {
		if identity.ID == id {
			return identity, true
		}
	}

	return Identity{}, false
}

// StaticDirectory is a fixed Directory, handy for tools and tests.
type StaticDirectory []Identity

// ListIdentities returns the identities.
func (d StaticDirectory) ListIdentities() []Identity {
	return d
}
