package graph

import "github.com/vk/buildgraphgo/internal/node"

// Status is the tri-state lifecycle of a graph entry.
type Status int32

const (
	// StatusAbsent means the key was never successfully computed.
	StatusAbsent Status = iota
	// StatusDirty means a previously computed value may be stale; the stored
	// value is retained for dirtiness checking but must not be reused as-is.
	StatusDirty
	// StatusClean means the stored value is valid for the current version.
	StatusClean
)

// String returns the lowercase name of the status for logs.
func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusDirty:
		return "dirty"
	case StatusClean:
		return "clean"
	default:
		return "unknown"
	}
}

// NodeState is the externally visible state of one key.
type NodeState struct {
	Status Status
	// Value is the stored value; non-nil for clean and dirty entries.
	Value node.Value
	// Version is the build version at which the value last changed.
	Version int64
}

// Record is the persistence snapshot of one entry.
type Record struct {
	Key     node.Key
	Value   node.Value
	Deps    []node.Key
	Version int64
}
