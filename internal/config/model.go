package config

import (
	"fmt"

	"github.com/vk/buildgraphgo/internal/label"
)

// Model is the unified, format-agnostic representation of one workspace
// manifest.
type Model struct {
	Settings       *Settings
	Repositories   map[string]*Repository
	Configurations map[string]*Configuration
	Targets        map[string]*Target
	Aspects        map[string]*Aspect
}

// NewModel creates an empty model with defaulted settings.
func NewModel() *Model {
	return &Model{
		Settings:       &Settings{Fetch: true, OutputBase: ".buildgraph"},
		Repositories:   make(map[string]*Repository),
		Configurations: make(map[string]*Configuration),
		Targets:        make(map[string]*Target),
		Aspects:        make(map[string]*Aspect),
	}
}

// Settings holds workspace-wide knobs.
type Settings struct {
	// Fetch is false when external repository fetching is suppressed.
	Fetch bool
	// OutputBase is the directory holding the journal and execution log.
	OutputBase string
	// ExecRoot prefixes artifact paths in reported events.
	ExecRoot string
}

// Repository describes one external repository.
type Repository struct {
	Name string
	// Path is where the repository contents live once materialized.
	Path string
	// ManagedDirs lists externally-managed side directories whose existence
	// is tracked for invalidation.
	ManagedDirs []string
}

// Configuration is the named option set of one build configuration.
type Configuration struct {
	Name    string
	Options map[string]string
}

// Target describes one buildable target.
type Target struct {
	Label label.Label
	// Configuration names the configuration this target builds under.
	// Empty means configuration-free.
	Configuration string
	Deps          []label.Label
	// Repositories lists external repositories the target reads from.
	Repositories []string
	// OutputGroups maps group names to the artifact paths the target
	// produces for them.
	OutputGroups map[string][]string
	Actions      []*Action
}

// Action is one declared execution step of a target, logged to the
// execution log when it runs.
type Action struct {
	Mnemonic      string
	Args          []string
	Env           map[string]string
	Outputs       []string
	TimeoutMillis int64
	Remotable     bool
	Cacheable     bool
}

// Aspect describes one aspect class applicable to targets.
type Aspect struct {
	Name        string
	Description string
}

// TargetByLabel finds a target by its canonical label.
func (m *Model) TargetByLabel(l label.Label) (*Target, bool) {
	t, ok := m.Targets[l.String()]
	return t, ok
}

// Validate checks cross-references: every target's configuration, deps, and
// repositories must be declared in the manifest.
func (m *Model) Validate() error {
	for _, target := range m.Targets {
		if target.Configuration != "" {
			if _, ok := m.Configurations[target.Configuration]; !ok {
				return fmt.Errorf("target %s: unknown configuration %q", target.Label, target.Configuration)
			}
		}
		for _, dep := range target.Deps {
			if _, ok := m.Targets[dep.String()]; !ok {
				return fmt.Errorf("target %s: unknown dep %s", target.Label, dep)
			}
		}
		for _, repo := range target.Repositories {
			if _, ok := m.Repositories[repo]; !ok {
				return fmt.Errorf("target %s: unknown repository %q", target.Label, repo)
			}
		}
	}
	return nil
}
