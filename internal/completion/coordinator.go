package completion

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vk/buildgraphgo/internal/ctxlog"
	"github.com/vk/buildgraphgo/internal/eval"
	"github.com/vk/buildgraphgo/internal/events"
	"github.com/vk/buildgraphgo/internal/metrics"
	"github.com/vk/buildgraphgo/internal/node"
)

// idCacheSize bounds the checksum to event-identifier cache. Builds rarely
// carry more than a handful of configurations; the bound only guards
// pathological invocations.
const idCacheSize = 128

// Coordinator owns completion for all top-level keys of one invocation: it
// resolves event identifiers, realizes artifact mappings, and posts exactly
// one terminal event per top-level unit to the bus.
type Coordinator struct {
	bus      *events.Bus
	resolver PathResolver
	metrics  *metrics.Metrics
	ids      *lru.Cache[string, events.ConfigurationID]
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithPathResolver overrides the artifact path resolution strategy.
func WithPathResolver(resolver PathResolver) CoordinatorOption {
	return func(c *Coordinator) { c.resolver = resolver }
}

// WithMetrics installs the metrics sink.
func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a coordinator posting to the given bus.
func NewCoordinator(bus *events.Bus, opts ...CoordinatorOption) *Coordinator {
	ids, _ := lru.New[string, events.ConfigurationID](idCacheSize)
	c := &Coordinator{
		bus:      bus,
		resolver: ExecRootResolver{},
		ids:      ids,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewUnregistered()
	}
	return c
}

// Functions returns the evaluator functions for both completion kinds.
func (c *Coordinator) Functions() eval.FunctionMap {
	return eval.FunctionMap{
		node.KindTargetCompletion: &completionFunc{coord: c, completor: TargetCompletor{}},
		node.KindAspectCompletion: &completionFunc{coord: c, completor: AspectCompletor{}},
	}
}

// configurationID resolves the event identifier for a top-level unit. A nil
// configuration key short-circuits to the null sentinel. A configuration
// that has not been computed yet yields ErrNotReady; one that failed falls
// back to the null sentinel so the failure can still be reported.
func (c *Coordinator) configurationID(env *eval.Env, configKey node.Key) (events.ConfigurationID, error) {
	if configKey == nil {
		return events.NullConfigurationID, nil
	}
	checksum := configKey.(node.ConfigurationKey).Checksum
	if id, ok := c.ids.Get(checksum); ok {
		return id, nil
	}
	value, ok := env.GetValue(configKey)
	if !ok {
		if env.DepError(configKey) != nil {
			return events.NullConfigurationID, nil
		}
		return events.ConfigurationID{}, ErrNotReady
	}
	cfg := value.(*node.ConfigurationValue)
	id := events.ConfigurationID{Checksum: cfg.Configuration.Checksum()}
	c.ids.Add(checksum, id)
	return id, nil
}

// completionFunc adapts one Completor to the evaluator's function protocol.
type completionFunc struct {
	coord     *Coordinator
	completor Completor
}

// Compute waits for the underlying analysis value, resolves the event
// identifier, and emits the terminal event. Both the underlying value and
// the identifier may be unavailable on any given attempt; the computation
// then suspends without emitting anything and is restarted later.
func (f *completionFunc) Compute(ctx context.Context, key node.Key, env *eval.Env) (node.Value, error) {
	logger := ctxlog.FromContext(ctx)
	underlying := f.completor.UnderlyingKey(key)

	value, ok := env.GetValue(underlying)
	if !ok {
		if depErr := env.DepError(underlying); depErr != nil {
			return f.completeFailed(ctx, key, env)
		}
		return nil, nil
	}

	id, err := f.coord.configurationID(env, f.completor.ConfigurationKey(key))
	if errors.Is(err, ErrNotReady) {
		return nil, nil
	}

	completionCtx := &Context{resolver: f.coord.resolver, metrics: f.coord.metrics}
	realized := completionCtx.realizeGroups(
		f.completor.RequestedGroups(key),
		f.completor.OutputGroups(value),
	)
	completionCtx.countArtifacts(realized)

	logger.Debug("Top-level unit completed.", "unit", f.completor.LocationIdentifier(key))
	f.coord.metrics.Completions.WithLabelValues("success").Inc()
	f.coord.bus.Post(&events.CompletionEvent{
		LocationID:      f.completor.LocationIdentifier(key),
		AspectClass:     f.completor.AspectClass(key),
		ConfigurationID: id,
		Success:         true,
		OutputGroups:    realized,
	})
	return f.completor.Result(), nil
}

// completeFailed reports the failure of the underlying analysis. The event
// identifier is resolved best-effort first: if it is not ready the whole
// completion suspends and no event leaves this attempt.
func (f *completionFunc) completeFailed(ctx context.Context, key node.Key, env *eval.Env) (node.Value, error) {
	id, err := f.coord.configurationID(env, f.completor.ConfigurationKey(key))
	if errors.Is(err, ErrNotReady) {
		return nil, nil
	}

	depErr := env.DepError(f.completor.UnderlyingKey(key))
	rootCauses := depErr.Causes.Causes()

	logger := ctxlog.FromContext(ctx)
	for _, cause := range rootCauses {
		line := f.completor.RootCauseError(key, cause)
		logger.Error("Top-level unit failed.", "diagnostic", line)
		f.coord.bus.Post(&events.ProgressEvent{
			LocationID: f.completor.LocationIdentifier(key),
			Message:    line,
		})
	}

	f.coord.metrics.Completions.WithLabelValues("failure").Inc()
	f.coord.bus.Post(&events.CompletionEvent{
		LocationID:      f.completor.LocationIdentifier(key),
		AspectClass:     f.completor.AspectClass(key),
		ConfigurationID: id,
		Success:         false,
		RootCauses:      rootCauses,
	})
	return nil, nil
}
