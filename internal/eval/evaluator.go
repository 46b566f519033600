package eval

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vk/buildgraphgo/internal/causes"
	"github.com/vk/buildgraphgo/internal/ctxlog"
	"github.com/vk/buildgraphgo/internal/dirty"
	"github.com/vk/buildgraphgo/internal/graph"
	"github.com/vk/buildgraphgo/internal/metrics"
	"github.com/vk/buildgraphgo/internal/node"
)

// Evaluator drives computation of requested keys over the shared graph:
// cached clean values are reused, everything else is computed in dependency
// order by a bounded worker pool, with suspended computations restarted once
// their missing dependencies land.
type Evaluator struct {
	graph    *graph.Graph
	funcs    FunctionMap
	checkers []dirty.Checker
	metrics  *metrics.Metrics
	workers  int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCheckers registers dirtiness checkers consulted before each evaluation.
func WithCheckers(checkers ...dirty.Checker) Option {
	return func(ev *Evaluator) { ev.checkers = append(ev.checkers, checkers...) }
}

// WithMetrics installs the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ev *Evaluator) { ev.metrics = m }
}

// WithWorkers bounds the worker pool. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(ev *Evaluator) {
		if n >= 1 {
			ev.workers = n
		}
	}
}

// New creates an Evaluator over the given graph and function table.
func New(g *graph.Graph, funcs FunctionMap, opts ...Option) *Evaluator {
	ev := &Evaluator{
		graph:   g,
		funcs:   funcs,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(ev)
	}
	if ev.metrics == nil {
		ev.metrics = metrics.NewUnregistered()
	}
	return ev
}

// Result holds the per-root outcome of one Evaluate call.
type Result struct {
	values map[node.Key]node.Value
	errors map[node.Key]*NodeError
}

// Value returns the computed value for a root, nil if it failed.
func (r *Result) Value(key node.Key) node.Value {
	return r.values[key]
}

// Error returns the failure for a root, nil if it succeeded.
func (r *Result) Error(key node.Key) *NodeError {
	return r.errors[key]
}

// Failed reports whether any root failed.
func (r *Result) Failed() bool {
	return len(r.errors) > 0
}

// Errors returns all per-root failures.
func (r *Result) Errors() map[node.Key]*NodeError {
	return r.errors
}

// Evaluate computes the requested roots. It first runs the dirtiness sweep
// over previously cached state (when a session is given), advances the graph
// version, and then evaluates. Per-root failures are reported in the Result;
// the returned error is non-nil only when the evaluation as a whole was
// interrupted.
func (ev *Evaluator) Evaluate(ctx context.Context, session *dirty.Session, roots ...node.Key) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if session != nil {
		ev.runDirtinessSweep(ctx, session)
	}
	version := ev.graph.NextVersion()
	logger.Debug("Evaluation starting.", "version", version, "roots", len(roots), "workers", ev.workers)

	e := newEvaluation(ev)
	e.mu.Lock()
	for _, root := range roots {
		e.scheduleLocked(root)
	}
	e.mu.Unlock()

	group, gctx := errgroup.WithContext(ctx)
	watcherDone := make(chan struct{})
	go func() {
		select {
		case <-gctx.Done():
			e.close()
		case <-watcherDone:
		}
	}()
	for i := 0; i < ev.workers; i++ {
		group.Go(func() error { return e.worker(gctx) })
	}
	err := group.Wait()
	close(watcherDone)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		logger.Warn("Evaluation interrupted.", "error", err)
		return nil, err
	}

	result := &Result{
		values: make(map[node.Key]node.Value),
		errors: make(map[node.Key]*NodeError),
	}
	e.mu.Lock()
	for _, root := range roots {
		if st, ok := e.states[root]; ok && st.err != nil {
			result.errors[root] = st.err
			continue
		}
		if state := ev.graph.Get(root); state.Status == graph.StatusClean {
			result.values[root] = state.Value
		}
	}
	e.mu.Unlock()

	logger.Debug("Evaluation finished.", "succeeded", len(result.values), "failed", len(result.errors))
	return result, nil
}

// runDirtinessSweep consults the registered checkers for every cached clean
// value and invalidates (or splices) accordingly. The splice outcome is
// treated exactly like not-dirty except that the stored value is atomically
// replaced before anyone reads it.
func (ev *Evaluator) runDirtinessSweep(ctx context.Context, session *dirty.Session) {
	logger := ctxlog.FromContext(ctx)
	for _, key := range ev.graph.Keys() {
		state := ev.graph.Get(key)
		if state.Status != graph.StatusClean || state.Value == nil {
			continue
		}
		for _, checker := range ev.checkers {
			if !checker.Applies(key) {
				continue
			}
			result := checker.Check(ctx, key, state.Value, session)
			switch result.Outcome {
			case dirty.NotDirty:
				ev.metrics.DirtyChecks.WithLabelValues("not_dirty").Inc()
			case dirty.NeedsRebuild:
				ev.metrics.DirtyChecks.WithLabelValues("dirty").Inc()
				logger.Debug("Invalidating stale node and its dependents.", "key", key.String())
				ev.graph.Invalidate(key)
			case dirty.NewValue:
				ev.metrics.DirtyChecks.WithLabelValues("new_value").Inc()
				ev.graph.Replace(key, result.Replacement)
			}
			break
		}
	}
}

// evaluation is the transient run-state of one Evaluate call.
type evaluation struct {
	ev *Evaluator

	mu      sync.Mutex
	cond    *sync.Cond
	pending []node.Key
	states  map[node.Key]*keyState
	active  int // scheduled or executing keys
	closed  bool
}

// keyState tracks one key's progress through this evaluation.
type keyState struct {
	enqueued  bool
	done      bool
	err       *NodeError
	waitingOn map[node.Key]struct{}
	waiters   map[node.Key]struct{}
}

func newEvaluation(ev *Evaluator) *evaluation {
	e := &evaluation{
		ev:     ev,
		states: make(map[node.Key]*keyState),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *evaluation) stateFor(key node.Key) *keyState {
	st, ok := e.states[key]
	if !ok {
		st = &keyState{
			waitingOn: make(map[node.Key]struct{}),
			waiters:   make(map[node.Key]struct{}),
		}
		e.states[key] = st
	}
	return st
}

// scheduleLocked enqueues a key unless it is finished or already queued.
func (e *evaluation) scheduleLocked(key node.Key) {
	st := e.stateFor(key)
	if st.done || st.enqueued {
		return
	}
	st.enqueued = true
	e.active++
	e.pending = append(e.pending, key)
	e.cond.Signal()
}

// releaseSlotLocked gives back one execution slot and shuts the evaluation
// down when no work remains.
func (e *evaluation) releaseSlotLocked() {
	e.active--
	if e.active == 0 {
		e.closed = true
		e.cond.Broadcast()
	}
}

// close aborts the evaluation, waking all workers.
func (e *evaluation) close() {
	e.mu.Lock()
	e.closed = true
	e.cond.Broadcast()
	e.mu.Unlock()
}

// next blocks until work is available. ok is false once the evaluation is
// finished or aborted.
func (e *evaluation) next() (node.Key, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.pending) == 0 && !e.closed {
		e.cond.Wait()
	}
	if len(e.pending) == 0 {
		return nil, false
	}
	key := e.pending[0]
	e.pending = e.pending[1:]
	return key, true
}

// worker is the processing loop of one concurrent worker.
func (e *evaluation) worker(ctx context.Context) error {
	for {
		key, ok := e.next()
		if !ok {
			return ctx.Err()
		}
		e.process(ctx, key)
	}
}

// process runs one computation attempt for key.
func (e *evaluation) process(ctx context.Context, key node.Key) {
	logger := ctxlog.FromContext(ctx).With("key", key.String())

	if ctx.Err() != nil {
		// Interrupted: unwind without committing anything.
		e.mu.Lock()
		e.stateFor(key).enqueued = false
		e.releaseSlotLocked()
		e.mu.Unlock()
		return
	}

	if state := e.ev.graph.Get(key); state.Status == graph.StatusClean {
		logger.Debug("Reusing clean cached value.")
		e.finishExecuting(key, nil)
		return
	}

	fn, ok := e.ev.funcs[key.Kind()]
	if !ok {
		err := fmt.Errorf("no function registered for kind %q", key.Kind())
		e.finishExecuting(key, &NodeError{Key: key, Causes: causes.NewSet(leafCause(key, err)), Err: err})
		return
	}

	if !e.ev.graph.TryStartEvaluation(key) {
		// Another computation holds the key; put it back and let the
		// admission reopen.
		e.mu.Lock()
		st := e.stateFor(key)
		st.enqueued = false
		e.scheduleLocked(key)
		e.releaseSlotLocked()
		e.mu.Unlock()
		return
	}

	env := newEnv(e)
	value, err := fn.Compute(ctx, key, env)

	switch {
	case err != nil:
		e.ev.graph.AbortEvaluation(key)
		nodeErr := &NodeError{Key: key, Causes: causes.NewSet(leafCause(key, err)), Err: err}
		for _, depErr := range env.depErrors {
			nodeErr.Causes.AddAll(depErr.Causes)
		}
		logger.Debug("Node computation failed.", "error", err)
		e.finishExecuting(key, nodeErr)

	case value != nil:
		if ctx.Err() != nil {
			e.ev.graph.AbortEvaluation(key)
			e.mu.Lock()
			e.stateFor(key).enqueued = false
			e.releaseSlotLocked()
			e.mu.Unlock()
			return
		}
		e.ev.graph.SetValue(key, value, env.DepsRequested())
		e.ev.metrics.NodesComputed.WithLabelValues(string(key.Kind())).Inc()
		e.finishExecuting(key, nil)

	default:
		// Suspended: either waiting on missing deps, or every dep resolved
		// but some failed.
		e.ev.graph.AbortEvaluation(key)
		if len(env.missing) == 0 {
			set := causes.NewSet()
			for _, depErr := range env.depErrors {
				set.AddAll(depErr.Causes)
			}
			logger.Debug("Node failed due to dependency failures.", "causes", set.Len())
			e.finishExecuting(key, &NodeError{Key: key, Causes: set})
			return
		}
		logger.Debug("Node suspended awaiting dependencies.", "missing", len(env.missing))
		e.park(key, env.missing)
	}
}

// finishExecuting records the outcome of an executing key and releases its
// slot.
func (e *evaluation) finishExecuting(key node.Key, nodeErr *NodeError) {
	e.mu.Lock()
	e.stateFor(key).enqueued = false
	e.finishLocked(key, nodeErr)
	e.releaseSlotLocked()
	e.mu.Unlock()
}

// finishLocked marks a key done and restarts any waiter whose last awaited
// dependency this was.
func (e *evaluation) finishLocked(key node.Key, nodeErr *NodeError) {
	st := e.stateFor(key)
	if st.done {
		return
	}
	st.done = true
	st.err = nodeErr
	for waiter := range st.waiters {
		ws := e.stateFor(waiter)
		delete(ws.waitingOn, key)
		if len(ws.waitingOn) == 0 && !ws.done {
			e.ev.metrics.NodeRestarts.Inc()
			e.scheduleLocked(waiter)
		}
	}
	st.waiters = make(map[node.Key]struct{})
}

// park suspends a key until the given missing deps finish, scheduling each
// of them. Cycles through the waiting edges are failed immediately.
func (e *evaluation) park(key node.Key, missing []node.Key) {
	e.mu.Lock()
	st := e.stateFor(key)
	st.enqueued = false

	for _, dep := range missing {
		depState := e.stateFor(dep)
		if depState.done {
			continue
		}
		st.waitingOn[dep] = struct{}{}
		depState.waiters[key] = struct{}{}
		e.scheduleLocked(dep)
	}

	if len(st.waitingOn) == 0 {
		// Everything resolved while we were deciding; restart immediately.
		e.ev.metrics.NodeRestarts.Inc()
		e.scheduleLocked(key)
		e.releaseSlotLocked()
		e.mu.Unlock()
		return
	}

	cycle := e.findCycleLocked(key)
	if cycle != nil {
		cycleErr := &CycleError{Path: cycle}
		for _, member := range cycle[:len(cycle)-1] {
			memberErr := &NodeError{
				Key:    member,
				Causes: causes.NewSet(leafCause(member, cycleErr)),
				Err:    cycleErr,
			}
			e.finishLocked(member, memberErr)
		}
	}
	e.releaseSlotLocked()
	e.mu.Unlock()
}

// findCycleLocked looks for a waiting-edge path from start back to itself.
// The returned path starts and ends with start; nil when acyclic.
func (e *evaluation) findCycleLocked(start node.Key) []node.Key {
	visited := make(map[node.Key]struct{})
	var dfs func(from node.Key) []node.Key
	dfs = func(from node.Key) []node.Key {
		if from == start {
			return []node.Key{start}
		}
		if _, seen := visited[from]; seen {
			return nil
		}
		visited[from] = struct{}{}
		st, ok := e.states[from]
		if !ok {
			return nil
		}
		for dep := range st.waitingOn {
			if tail := dfs(dep); tail != nil {
				return append([]node.Key{from}, tail...)
			}
		}
		return nil
	}

	st := e.states[start]
	for dep := range st.waitingOn {
		if tail := dfs(dep); tail != nil {
			return append([]node.Key{start}, tail...)
		}
	}
	return nil
}

// errorFor reports a key's failure if it already finished unsuccessfully
// during this evaluation.
func (e *evaluation) errorFor(key node.Key) *NodeError {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[key]; ok && st.done {
		return st.err
	}
	return nil
}
