package hcl_adapter

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/buildgraphgo/internal/config"
	"github.com/vk/buildgraphgo/internal/label"
)

type settingsBlock struct {
	Fetch      *bool  `hcl:"fetch,optional"`
	OutputBase string `hcl:"output_base,optional"`
	ExecRoot   string `hcl:"exec_root,optional"`
}

type repositoryBlock struct {
	Name        string   `hcl:"name,label"`
	Path        string   `hcl:"path"`
	ManagedDirs []string `hcl:"managed_dirs,optional"`
}

type configurationBlock struct {
	Name    string    `hcl:"name,label"`
	Options cty.Value `hcl:"options,optional"`
}

type targetBlock struct {
	Label         string              `hcl:"name,label"`
	Configuration string              `hcl:"configuration,optional"`
	Deps          []string            `hcl:"deps,optional"`
	Repositories  []string            `hcl:"repositories,optional"`
	OutputGroups  []*outputGroupBlock `hcl:"output_group,block"`
	Actions       []*actionBlock      `hcl:"action,block"`
}

type outputGroupBlock struct {
	Name  string   `hcl:"name,label"`
	Files []string `hcl:"files"`
}

type actionBlock struct {
	Mnemonic      string    `hcl:"mnemonic,label"`
	Args          []string  `hcl:"args"`
	Env           cty.Value `hcl:"env,optional"`
	Outputs       []string  `hcl:"outputs,optional"`
	TimeoutMillis int64     `hcl:"timeout_millis,optional"`
	Remotable     bool      `hcl:"remotable,optional"`
	Cacheable     bool      `hcl:"cacheable,optional"`
}

type aspectBlock struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
}

func (l *Loader) translateSettings(block *settingsBlock, settings *config.Settings) {
	if block.Fetch != nil {
		settings.Fetch = *block.Fetch
	}
	if block.OutputBase != "" {
		settings.OutputBase = block.OutputBase
	}
	if block.ExecRoot != "" {
		settings.ExecRoot = block.ExecRoot
	}
}

func translateRepository(block *repositoryBlock) *config.Repository {
	return &config.Repository{
		Name:        block.Name,
		Path:        block.Path,
		ManagedDirs: append([]string(nil), block.ManagedDirs...),
	}
}

func translateConfiguration(block *configurationBlock) (*config.Configuration, error) {
	options, err := stringMap(block.Options)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	return &config.Configuration{Name: block.Name, Options: options}, nil
}

func translateTarget(block *targetBlock) (*config.Target, error) {
	targetLabel, err := label.Parse(block.Label)
	if err != nil {
		return nil, err
	}

	deps := make([]label.Label, 0, len(block.Deps))
	for _, raw := range block.Deps {
		dep, err := label.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("dep %q: %w", raw, err)
		}
		deps = append(deps, dep)
	}

	groups := make(map[string][]string, len(block.OutputGroups))
	for _, group := range block.OutputGroups {
		if _, dup := groups[group.Name]; dup {
			return nil, fmt.Errorf("output group %q declared twice", group.Name)
		}
		groups[group.Name] = append([]string(nil), group.Files...)
	}

	actions := make([]*config.Action, 0, len(block.Actions))
	for _, action := range block.Actions {
		translated, err := translateAction(action)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", action.Mnemonic, err)
		}
		actions = append(actions, translated)
	}

	return &config.Target{
		Label:         targetLabel,
		Configuration: block.Configuration,
		Deps:          deps,
		Repositories:  append([]string(nil), block.Repositories...),
		OutputGroups:  groups,
		Actions:       actions,
	}, nil
}

func translateAction(block *actionBlock) (*config.Action, error) {
	env, err := stringMap(block.Env)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	return &config.Action{
		Mnemonic:      block.Mnemonic,
		Args:          append([]string(nil), block.Args...),
		Env:           env,
		Outputs:       append([]string(nil), block.Outputs...),
		TimeoutMillis: block.TimeoutMillis,
		Remotable:     block.Remotable,
		Cacheable:     block.Cacheable,
	}, nil
}

// stringMap converts an HCL map or object value into a Go string map. A null
// value (the attribute was omitted) yields an empty map.
func stringMap(value cty.Value) (map[string]string, error) {
	result := make(map[string]string)
	if value.IsNull() {
		return result, nil
	}
	if !value.CanIterateElements() {
		return nil, fmt.Errorf("expected a map of strings, got %s", value.Type().FriendlyName())
	}
	for it := value.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if k.Type() != cty.String || v.Type() != cty.String {
			return nil, fmt.Errorf("expected string keys and values, got %s=%s",
				k.Type().FriendlyName(), v.Type().FriendlyName())
		}
		result[k.AsString()] = v.AsString()
	}
	return result, nil
}
