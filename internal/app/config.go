package app

import (
	"errors"
	"runtime"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ManifestPath points at a workspace manifest file or directory.
	ManifestPath string
	// Targets are the canonical labels of the top-level units to build.
	Targets []string
	// AspectClass, when set, additionally applies the named aspect to every
	// requested target.
	AspectClass string
	// OutputGroups are the requested output groups; empty means the default
	// group.
	OutputGroups []string
	// NoFetch suppresses external repository fetching for this invocation.
	NoFetch bool
	// OutputBase overrides the manifest's output base when non-empty.
	OutputBase string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one target label is required")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	return &cfg, nil
}
