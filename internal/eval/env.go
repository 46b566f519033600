package eval

import (
	"context"

	"github.com/vk/buildgraphgo/internal/graph"
	"github.com/vk/buildgraphgo/internal/node"
)

// Function computes the value for keys of one kind. Implementations must be
// idempotent and side-effect-free with respect to re-invocation: a suspended
// computation is restarted from scratch once its missing dependencies become
// available, and no partial progress survives the restart.
//
// A Function returns (nil, nil) to signal "awaiting dependencies" after one
// or more Env.GetValue calls came back unresolved. Functions should request
// every dependency they can name before returning, so restarts converge
// quickly and sibling failures are all discovered.
type Function interface {
	Compute(ctx context.Context, key node.Key, env *Env) (node.Value, error)
}

// FunctionMap dispatches computation by node kind.
type FunctionMap map[node.Kind]Function

// FuncOf adapts a plain function to the Function interface.
type FuncOf func(ctx context.Context, key node.Key, env *Env) (node.Value, error)

// Compute implements Function.
func (f FuncOf) Compute(ctx context.Context, key node.Key, env *Env) (node.Value, error) {
	return f(ctx, key, env)
}

// Env is the environment handle passed to one computation attempt. It records
// exactly which dependencies the attempt requested; on success that set is
// committed to the graph as the node's edges. A fresh Env is built for every
// attempt, so restarted computations start with empty bookkeeping.
type Env struct {
	evaluation *evaluation
	requested  []node.Key
	seen       map[node.Key]struct{}
	missing    []node.Key
	depErrors  map[node.Key]*NodeError
}

func newEnv(e *evaluation) *Env {
	return &Env{
		evaluation: e,
		seen:       make(map[node.Key]struct{}),
		depErrors:  make(map[node.Key]*NodeError),
	}
}

// GetValue resolves a dependency. A clean value is returned synchronously
// with ok == true. Otherwise ok is false: the dependency is recorded as
// missing (scheduling its evaluation) or, if it already failed during this
// evaluation, its failure is recorded for cause propagation. The caller
// should keep requesting further dependencies and then return (nil, nil).
func (env *Env) GetValue(dep node.Key) (node.Value, bool) {
	if _, dup := env.seen[dep]; !dup {
		env.seen[dep] = struct{}{}
		env.requested = append(env.requested, dep)
	}

	if nodeErr := env.evaluation.errorFor(dep); nodeErr != nil {
		env.depErrors[dep] = nodeErr
		return nil, false
	}

	state := env.evaluation.ev.graph.Get(dep)
	if state.Status == graph.StatusClean {
		env.evaluation.ev.metrics.CacheHits.Inc()
		return state.Value, true
	}

	env.missing = append(env.missing, dep)
	return nil, false
}

// DepError returns the failure of a requested dependency, if that dependency
// already failed during this evaluation. Used by computations that react to
// dependency failures (e.g. completion reporting) instead of merely
// propagating them.
func (env *Env) DepError(dep node.Key) *NodeError {
	return env.depErrors[dep]
}

// Missing reports whether any requested dependency was unresolved, meaning
// the computation should suspend by returning (nil, nil).
func (env *Env) Missing() bool {
	return len(env.missing) > 0 || len(env.depErrors) > 0
}

// DepsRequested returns the exact ordered set of dependencies requested by
// this attempt.
func (env *Env) DepsRequested() []node.Key {
	return append([]node.Key(nil), env.requested...)
}
