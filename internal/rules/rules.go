package rules

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/vk/buildgraphgo/internal/buildconfig"
	"github.com/vk/buildgraphgo/internal/config"
	"github.com/vk/buildgraphgo/internal/ctxlog"
	"github.com/vk/buildgraphgo/internal/eval"
	"github.com/vk/buildgraphgo/internal/execlog"
	"github.com/vk/buildgraphgo/internal/node"
)

// Rules provides the evaluator functions backed by the workspace manifest:
// repository materialization, configuration computation, and target/aspect
// analysis. One instance serves one build invocation.
type Rules struct {
	model        *config.Model
	log          *execlog.Writer
	fetchEnabled bool
}

// Option configures a Rules instance.
type Option func(*Rules)

// WithExecutionLog records every declared action of an analyzed target.
func WithExecutionLog(w *execlog.Writer) Option {
	return func(r *Rules) { r.log = w }
}

// WithFetchEnabled controls whether repository materialization may fetch.
// When disabled, repository values are marked fetch-delayed so a later
// build with fetching enabled re-attempts them.
func WithFetchEnabled(enabled bool) Option {
	return func(r *Rules) { r.fetchEnabled = enabled }
}

// New creates the rules for one invocation over the given manifest.
func New(model *config.Model, opts ...Option) *Rules {
	r := &Rules{model: model, fetchEnabled: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Functions returns the evaluator function table for all analysis kinds.
func (r *Rules) Functions() eval.FunctionMap {
	return eval.FunctionMap{
		node.KindRepoDir:          eval.FuncOf(r.computeRepoDir),
		node.KindConfiguration:    eval.FuncOf(r.computeConfiguration),
		node.KindConfiguredTarget: eval.FuncOf(r.computeTarget),
		node.KindAspect:           eval.FuncOf(r.computeAspect),
	}
}

// computeRepoDir materializes one external repository. Repositories the
// manifest does not declare yield a placeholder value rather than an error:
// the build may never touch them.
func (r *Rules) computeRepoDir(ctx context.Context, key node.Key, env *eval.Env) (node.Value, error) {
	repo, ok := r.model.Repositories[key.(node.RepoDirKey).Repo]
	if !ok {
		return &node.RepoDirValue{Placeholder: true}, nil
	}
	if !r.fetchEnabled {
		ctxlog.FromContext(ctx).Debug("Fetching suppressed, repository marked delayed.", "repo", repo.Name)
		return &node.RepoDirValue{
			Path:         repo.Path,
			ManagedDirs:  append([]string(nil), repo.ManagedDirs...),
			FetchDelayed: true,
		}, nil
	}
	return &node.RepoDirValue{
		Path:        repo.Path,
		ManagedDirs: append([]string(nil), repo.ManagedDirs...),
	}, nil
}

// Configuration binds a declared manifest configuration to its content
// checksummed form.
func Configuration(declared *config.Configuration) *buildconfig.Configuration {
	return buildconfig.New(declared.Name, declared.Options)
}

func (r *Rules) computeConfiguration(ctx context.Context, key node.Key, env *eval.Env) (node.Value, error) {
	checksum := key.(node.ConfigurationKey).Checksum
	for _, declared := range r.model.Configurations {
		cfg := Configuration(declared)
		if cfg.Checksum() == checksum {
			return &node.ConfigurationValue{Configuration: cfg}, nil
		}
	}
	return nil, fmt.Errorf("no declared configuration has checksum %s", checksum)
}

// computeTarget analyzes one configured target: it requires the owning
// configuration, all declared repositories, and all deps, then realizes the
// declared output groups and logs the target's actions.
func (r *Rules) computeTarget(ctx context.Context, key node.Key, env *eval.Env) (node.Value, error) {
	targetKey := key.(node.ConfiguredTargetKey)
	target, ok := r.model.TargetByLabel(targetKey.Label)
	if !ok {
		return nil, fmt.Errorf("no such target: %s", targetKey.Label)
	}

	if configKey := targetKey.ConfigurationKeyOrNil(); configKey != nil {
		env.GetValue(configKey)
	}
	var repoValues []*node.RepoDirValue
	for _, repo := range target.Repositories {
		if value, ok := env.GetValue(node.RepoDirKey{Repo: repo}); ok {
			repoValues = append(repoValues, value.(*node.RepoDirValue))
		}
	}
	for _, dep := range target.Deps {
		env.GetValue(node.ConfiguredTargetKey{
			Label:          dep,
			ConfigChecksum: targetKey.ConfigChecksum,
		})
	}
	if env.Missing() {
		return nil, nil
	}

	for _, repoValue := range repoValues {
		if repoValue.FetchDelayed {
			return nil, fmt.Errorf("target %s reads a repository whose fetch was suppressed", targetKey.Label)
		}
	}

	// All dependencies are final; logging the actions is safe now, a
	// suspended attempt never reaches this point.
	if err := r.logActions(target); err != nil {
		return nil, err
	}

	groups := make(map[string][]node.Artifact, len(target.OutputGroups))
	for name, files := range target.OutputGroups {
		artifacts := make([]node.Artifact, len(files))
		for i, file := range files {
			artifacts[i] = node.Artifact{Path: file, Owner: targetKey.Label}
		}
		groups[name] = artifacts
	}
	return &node.ConfiguredTargetValue{Label: targetKey.Label, OutputGroups: groups}, nil
}

// computeAspect applies one aspect to its base target, producing a report
// artifact per output group of the base.
func (r *Rules) computeAspect(ctx context.Context, key node.Key, env *eval.Env) (node.Value, error) {
	aspectKey := key.(node.AspectKey)
	if _, ok := r.model.Aspects[aspectKey.AspectClass]; !ok {
		return nil, fmt.Errorf("no such aspect: %s", aspectKey.AspectClass)
	}

	if _, ok := env.GetValue(aspectKey.Base); !ok {
		return nil, nil
	}

	report := path.Join(
		"aspects",
		aspectKey.AspectClass,
		aspectKey.Base.Label.Package,
		aspectKey.Base.Label.Name+".report",
	)
	return &node.AspectValue{
		Label:       aspectKey.Base.Label,
		AspectClass: aspectKey.AspectClass,
		OutputGroups: map[string][]node.Artifact{
			"default": {{Path: report, Owner: aspectKey.Base.Label}},
		},
	}, nil
}

// logActions appends one execution record per declared action.
func (r *Rules) logActions(target *config.Target) error {
	if r.log == nil {
		return nil
	}
	for _, action := range target.Actions {
		record := &execlog.Record{
			CommandArgs:   append([]string(nil), action.Args...),
			ListedOutputs: append([]string(nil), action.Outputs...),
			Cacheable:     action.Cacheable,
			Remotable:     action.Remotable,
			TimeoutMillis: action.TimeoutMillis,
			Mnemonic:      action.Mnemonic,
			Runner:        "local",
			WallTime:      time.Millisecond,
			TargetLabel:   target.Label.String(),
		}
		envNames := make([]string, 0, len(action.Env))
		for name := range action.Env {
			envNames = append(envNames, name)
		}
		sort.Strings(envNames)
		for _, name := range envNames {
			record.EnvVars = append(record.EnvVars, execlog.EnvVar{Name: name, Value: action.Env[name]})
		}
		for _, output := range action.Outputs {
			record.ActualOutputs = append(record.ActualOutputs, execlog.File{
				Path:   output,
				Digest: digestOf(output),
			})
		}
		if err := r.log.Append(record); err != nil {
			return err
		}
	}
	return nil
}

// digestOf fabricates a stable content digest for a declared output. The
// execution layer that would produce real digests is out of scope; stability
// is all the log consumers need here.
func digestOf(path string) execlog.Digest {
	sum := sha256.Sum256([]byte(path))
	return execlog.Digest{
		Hash:         hex.EncodeToString(sum[:]),
		SizeBytes:    int64(len(path)),
		HashFunction: "SHA-256",
	}
}
