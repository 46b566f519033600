package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/buildgraphgo/internal/config"
	"github.com/vk/buildgraphgo/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all possible top-level blocks from any manifest file.
type fileRoot struct {
	Settings       *settingsBlock        `hcl:"settings,block"`
	Repositories   []*repositoryBlock    `hcl:"repository,block"`
	Configurations []*configurationBlock `hcl:"configuration,block"`
	Targets        []*targetBlock        `hcl:"target,block"`
	Aspects        []*aspectBlock        `hcl:"aspect,block"`
	Remain         hcl.Body              `hcl:",remain"`
}

// Load orchestrates the manifest loading process. It is agnostic to the
// origin of the paths and merges valid blocks from every discovered file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.NewModel()

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if root.Settings != nil {
			l.translateSettings(root.Settings, model.Settings)
		}
		for _, repo := range root.Repositories {
			model.Repositories[repo.Name] = translateRepository(repo)
		}
		for _, cfg := range root.Configurations {
			translated, err := translateConfiguration(cfg)
			if err != nil {
				return nil, fmt.Errorf("configuration %q in %s: %w", cfg.Name, file, err)
			}
			model.Configurations[translated.Name] = translated
		}
		for _, target := range root.Targets {
			translated, err := translateTarget(target)
			if err != nil {
				return nil, fmt.Errorf("target %q in %s: %w", target.Label, file, err)
			}
			if _, dup := model.Targets[translated.Label.String()]; dup {
				return nil, fmt.Errorf("target %s declared twice", translated.Label)
			}
			model.Targets[translated.Label.String()] = translated
		}
		for _, aspect := range root.Aspects {
			model.Aspects[aspect.Name] = &config.Aspect{
				Name:        aspect.Name,
				Description: aspect.Description,
			}
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.",
		"repositories", len(model.Repositories),
		"configurations", len(model.Configurations),
		"targets", len(model.Targets),
		"aspects", len(model.Aspects))
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
