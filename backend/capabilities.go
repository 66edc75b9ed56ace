package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	CapabilityObjectStorage BackendCapability = "object_storage"
	// Directory modification times survive a restart of the process.
	CapabilityPersistent BackendCapability = "persistent"
	// Backend is shared across processes (database or remote service).
	CapabilityShared BackendCapability = "shared"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities  []BackendCapability `json:"capabilities"`
	MaxObjectSize int64               `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(capability BackendCapability) bool {
	return slices.Contains(bc.Capabilities, capability)
}

// CheckObjectSize reports whether an object of the given size fits.
func (bc *BackendCapabilities) CheckObjectSize(size int64) bool {
	return bc.MaxObjectSize <= 0 || size <= bc.MaxObjectSize
}
