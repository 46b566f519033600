package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/buildgraphgo/internal/buildconfig"
	"github.com/vk/buildgraphgo/internal/completion"
	"github.com/vk/buildgraphgo/internal/ctxlog"
	"github.com/vk/buildgraphgo/internal/dirty"
	"github.com/vk/buildgraphgo/internal/eval"
	"github.com/vk/buildgraphgo/internal/events"
	"github.com/vk/buildgraphgo/internal/execlog"
	"github.com/vk/buildgraphgo/internal/graph"
	"github.com/vk/buildgraphgo/internal/journal"
	"github.com/vk/buildgraphgo/internal/label"
	"github.com/vk/buildgraphgo/internal/node"
	"github.com/vk/buildgraphgo/internal/rules"
)

// Run executes one build invocation: reload persisted graph state, sweep it
// for staleness, evaluate the requested top-level units, report events, and
// persist the resulting graph.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	collection, err := a.buildCollection()
	if err != nil {
		return err
	}
	roots, err := a.buildRoots(collection)
	if err != nil {
		return err
	}

	outputBase := a.model.Settings.OutputBase
	if err := os.MkdirAll(outputBase, 0o750); err != nil {
		return fmt.Errorf("creating output base %s: %w", outputBase, err)
	}

	j, err := journal.Open(journal.DefaultConfig(filepath.Join(outputBase, "journal")))
	if err != nil {
		return err
	}
	defer j.Close()

	g := graph.New()
	records, err := j.Load(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		g.Restore(record)
	}
	a.logger.Debug("Graph state reloaded from journal.", "nodes", len(records))

	execFile, err := os.Create(filepath.Join(outputBase, "execution.log"))
	if err != nil {
		return fmt.Errorf("creating execution log: %w", err)
	}
	defer execFile.Close()

	eventsFile, err := os.Create(filepath.Join(outputBase, "events.jsonl"))
	if err != nil {
		return fmt.Errorf("creating event stream file: %w", err)
	}
	defer eventsFile.Close()

	bus := events.NewBus()
	bus.Subscribe(events.NewJSONSink(eventsFile, bus.InvocationID()))
	a.logger.Debug("Event stream opened.", "invocation_id", bus.InvocationID())

	buildRules := rules.New(a.model,
		rules.WithExecutionLog(execlog.NewWriter(execFile)),
		rules.WithFetchEnabled(a.model.Settings.Fetch),
	)
	coordinator := completion.NewCoordinator(bus,
		completion.WithMetrics(a.metrics),
		completion.WithPathResolver(completion.ExecRootResolver{ExecRoot: a.model.Settings.ExecRoot}),
	)
	funcs := buildRules.Functions()
	for kind, fn := range coordinator.Functions() {
		funcs[kind] = fn
	}

	session := &dirty.Session{
		WorkspaceRoot: a.workspaceRoot(),
		FetchEnabled:  a.model.Settings.Fetch,
	}
	evaluator := eval.New(g, funcs,
		eval.WithMetrics(a.metrics),
		eval.WithWorkers(a.config.WorkerCount),
		eval.WithCheckers(dirty.NewRepoDirChecker()),
	)

	a.logger.Info("Starting evaluation.", "roots", len(roots), "workers", a.config.WorkerCount)
	result, err := evaluator.Evaluate(ctx, session, roots...)
	if err != nil {
		return fmt.Errorf("evaluation interrupted: %w", err)
	}

	if err := j.Save(ctx, g.Records()); err != nil {
		return err
	}
	a.logger.Debug("Graph state persisted.", "nodes", len(g.Records()))

	if result.Failed() {
		for root, nodeErr := range result.Errors() {
			a.logger.Error("Top-level unit failed.", "unit", root.String(), "error", nodeErr.Error())
		}
		return fmt.Errorf("build failed: %d of %d top-level units", len(result.Errors()), len(roots))
	}
	a.logger.Info("Build finished successfully.", "units", len(roots))
	return nil
}

// buildCollection turns the declared configurations into a validated
// collection. Order follows the sorted configuration names, so the
// collection is stable across runs.
func (a *App) buildCollection() (*buildconfig.Collection, error) {
	names := make([]string, 0, len(a.model.Configurations))
	for name := range a.model.Configurations {
		names = append(names, name)
	}
	sort.Strings(names)

	targetConfigs := make([]*buildconfig.Configuration, 0, len(names))
	for _, name := range names {
		targetConfigs = append(targetConfigs, rules.Configuration(a.model.Configurations[name]))
	}
	host := buildconfig.New("host", map[string]string{"for_tools": "1"})
	return buildconfig.NewCollection(targetConfigs, host)
}

// buildRoots resolves the requested labels into completion keys.
func (a *App) buildRoots(collection *buildconfig.Collection) ([]node.Key, error) {
	groups := node.CanonicalGroups(a.config.OutputGroups)

	var roots []node.Key
	for _, raw := range a.config.Targets {
		lbl, err := label.Parse(raw)
		if err != nil {
			return nil, err
		}
		target, ok := a.model.TargetByLabel(lbl)
		if !ok {
			return nil, fmt.Errorf("no such target in the manifest: %s", lbl)
		}

		checksum := ""
		if target.Configuration != "" {
			cfg := rules.Configuration(a.model.Configurations[target.Configuration])
			if _, ok := collection.ByChecksum(cfg.Checksum()); !ok {
				return nil, fmt.Errorf("target %s: configuration %q not in the collection", lbl, target.Configuration)
			}
			checksum = cfg.Checksum()
		}

		targetKey := node.ConfiguredTargetKey{Label: lbl, ConfigChecksum: checksum}
		roots = append(roots, node.TargetCompletionKey{Target: targetKey, Groups: groups})
		if a.config.AspectClass != "" {
			roots = append(roots, node.AspectCompletionKey{
				Aspect: node.AspectKey{Base: targetKey, AspectClass: a.config.AspectClass},
				Groups: groups,
			})
		}
	}
	return roots, nil
}

// workspaceRoot is the directory managed side-directories resolve against:
// the manifest's directory, or the manifest path itself when it already is
// a directory.
func (a *App) workspaceRoot() string {
	info, err := os.Stat(a.config.ManifestPath)
	if err == nil && info.IsDir() {
		return a.config.ManifestPath
	}
	return filepath.Dir(a.config.ManifestPath)
}
