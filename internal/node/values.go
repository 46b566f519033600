package node

import (
	"github.com/vk/buildgraphgo/internal/buildconfig"
	"github.com/vk/buildgraphgo/internal/label"
)

// Value is the immutable computed result for a Key. Values must not be
// mutated after being stored in the graph; a recomputation stores a fresh
// value instead.
type Value interface {
	isNodeValue()
}

// Artifact is one file produced by a build computation, identified by its
// exec-root-relative path and the label of the target that owns it.
type Artifact struct {
	Path  string      `json:"path"`
	Owner label.Label `json:"owner"`
}

// RepoDirValue is the result of materializing one external repository.
type RepoDirValue struct {
	// Path is the on-disk location of the repository contents. Empty when
	// the value is a placeholder.
	Path string `json:"path"`
	// ManagedDirs lists externally-managed side directories, relative to the
	// workspace root, whose existence is tracked for invalidation.
	ManagedDirs []string `json:"managed_dirs,omitempty"`
	// FetchDelayed is true when the value was produced while external
	// fetching was suppressed, so the repository must be re-attempted once
	// fetching is allowed again.
	FetchDelayed bool `json:"fetch_delayed,omitempty"`
	// Placeholder is true when the repository was never materialized at all
	// (e.g. it is not referenced by the current request).
	Placeholder bool `json:"placeholder,omitempty"`
}

func (*RepoDirValue) isNodeValue() {}

// RepositoryExists reports whether the value represents a materialized
// repository rather than a placeholder.
func (v *RepoDirValue) RepositoryExists() bool {
	return !v.Placeholder
}

// ConfigurationValue wraps a computed build configuration.
type ConfigurationValue struct {
	Configuration *buildconfig.Configuration
}

func (*ConfigurationValue) isNodeValue() {}

// ConfiguredTargetValue is the analysis result of one target: its declared
// artifacts grouped by output group.
type ConfiguredTargetValue struct {
	Label        label.Label           `json:"label"`
	OutputGroups map[string][]Artifact `json:"output_groups"`
}

func (*ConfiguredTargetValue) isNodeValue() {}

// AspectValue is the analysis result of an aspect applied to a target.
type AspectValue struct {
	Label        label.Label           `json:"label"`
	AspectClass  string                `json:"aspect_class"`
	OutputGroups map[string][]Artifact `json:"output_groups"`
}

func (*AspectValue) isNodeValue() {}

// CompletionValue is the stateless sentinel stored once a top-level key's
// completion has succeeded. All completions share the single instance.
type CompletionValue struct{}

func (*CompletionValue) isNodeValue() {}

// Completed is the shared CompletionValue instance.
var Completed = &CompletionValue{}
