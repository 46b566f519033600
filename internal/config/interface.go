package config

import "context"

// Loader is the interface for a format-specific manifest loader.
type Loader interface {
	// Load reads manifest files from the given paths, translates them into
	// the format-agnostic model, and validates cross-references.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
