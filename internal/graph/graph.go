package graph

import (
	"sync"

	"github.com/vk/buildgraphgo/internal/node"
)

// Graph is the versioned store of node state shared by all workers of an
// evaluation. It is an arena of entries addressed by interned key -> index;
// entry values are guarded per entry, while the edge sets are guarded by a
// single graph-wide lock so that dependency rewrites stay deadlock-free.
type Graph struct {
	mu      sync.RWMutex // guards index and arena growth
	index   map[node.Key]int
	arena   []*entry
	version int64

	edgeMu sync.RWMutex // guards deps and rdeps of all entries
}

// entry is the graph-internal record for one key.
type entry struct {
	key node.Key

	mu            sync.Mutex // guards the fields below
	value         node.Value
	status        Status
	lastChanged   int64
	lastEvaluated int64
	inFlight      bool

	// deps and rdeps are guarded by Graph.edgeMu, not entry.mu.
	deps  []node.Key
	rdeps map[node.Key]struct{}
}

// New creates an empty graph at version 1.
func New() *Graph {
	return &Graph{
		index:   make(map[node.Key]int),
		version: 1,
	}
}

// Version returns the current build invocation version.
func (g *Graph) Version() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// NextVersion advances the graph to a new build invocation version and
// returns it. Called once at the start of each evaluation.
func (g *Graph) NextVersion() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.version++
	return g.version
}

// entryFor returns the entry for key, creating it on first request.
func (g *Graph) entryFor(key node.Key) *entry {
	g.mu.RLock()
	if i, ok := g.index[key]; ok {
		e := g.arena[i]
		g.mu.RUnlock()
		return e
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if i, ok := g.index[key]; ok {
		return g.arena[i]
	}
	e := &entry{key: key, status: StatusAbsent, rdeps: make(map[node.Key]struct{})}
	g.index[key] = len(g.arena)
	g.arena = append(g.arena, e)
	return e
}

// lookup returns the entry for key without creating it.
func (g *Graph) lookup(key node.Key) (*entry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[key]
	if !ok {
		return nil, false
	}
	return g.arena[i], true
}

// Get reports the current state of a key. A key that was never requested is
// reported as absent, never as an error. A clean state always carries a fully
// written value: SetValue publishes the value and the clean status under the
// same entry lock.
func (g *Graph) Get(key node.Key) NodeState {
	e, ok := g.lookup(key)
	if !ok {
		return NodeState{Status: StatusAbsent}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return NodeState{Status: e.status, Value: e.value, Version: e.lastChanged}
}

// SetValue commits a computed value together with the exact dependency set
// read during the computation. The previous edge set is discarded: after
// SetValue returns, Deps(key) equals depsUsed and every dep's rdeps contain
// key. Exactly one writer commits per key per version; callers serialize
// through TryStartEvaluation.
func (g *Graph) SetValue(key node.Key, value node.Value, depsUsed []node.Key) {
	e := g.entryFor(key)

	// Rewrite edges first so no reader observes a clean value with stale edges.
	unique := dedupeKeys(depsUsed)
	g.edgeMu.Lock()
	for _, old := range e.deps {
		if dep, ok := g.lookup(old); ok {
			delete(dep.rdeps, key)
		}
	}
	e.deps = unique
	for _, d := range unique {
		dep := g.entryFor(d)
		dep.rdeps[key] = struct{}{}
	}
	g.edgeMu.Unlock()

	version := g.Version()
	e.mu.Lock()
	changed := e.value == nil || !sameValue(e.value, value)
	e.value = value
	e.status = StatusClean
	if changed {
		e.lastChanged = version
	}
	e.lastEvaluated = version
	e.inFlight = false
	e.mu.Unlock()
}

// Replace atomically splices in a replacement value for an already-known key
// without touching its recorded edges. Used for the dirty-with-known-new-value
// dirtiness outcome: the node stays clean, only the stored value changes.
// Replacing an absent key is a no-op.
func (g *Graph) Replace(key node.Key, value node.Value) {
	e, ok := g.lookup(key)
	if !ok {
		return
	}
	version := g.Version()
	e.mu.Lock()
	e.value = value
	e.status = StatusClean
	e.lastChanged = version
	e.lastEvaluated = version
	e.mu.Unlock()
}

// MarkDirty flags a key as needing re-evaluation. The stored value is kept so
// dirtiness checkers and change pruning can still inspect it. Unknown keys
// are ignored.
func (g *Graph) MarkDirty(key node.Key) {
	e, ok := g.lookup(key)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.status == StatusClean {
		e.status = StatusDirty
	}
	e.mu.Unlock()
}

// Invalidate marks key and its transitive dependents dirty. This is the
// invalidation propagation used after a dirtiness sweep or an explicit
// invalidation event.
func (g *Graph) Invalidate(key node.Key) {
	g.MarkDirty(key)
	for _, dep := range g.AllDependents(key) {
		g.MarkDirty(dep)
	}
}

// Deps returns the recorded direct dependency edges of a key.
func (g *Graph) Deps(key node.Key) []node.Key {
	e, ok := g.lookup(key)
	if !ok {
		return nil
	}
	g.edgeMu.RLock()
	defer g.edgeMu.RUnlock()
	return append([]node.Key(nil), e.deps...)
}

// Dependents returns the direct reverse dependency edges of a key.
func (g *Graph) Dependents(key node.Key) []node.Key {
	e, ok := g.lookup(key)
	if !ok {
		return nil
	}
	g.edgeMu.RLock()
	defer g.edgeMu.RUnlock()
	out := make([]node.Key, 0, len(e.rdeps))
	for k := range e.rdeps {
		out = append(out, k)
	}
	return out
}

// AllDependents returns the transitive closure of reverse dependency edges of
// a key, excluding the key itself.
func (g *Graph) AllDependents(key node.Key) []node.Key {
	g.edgeMu.RLock()
	defer g.edgeMu.RUnlock()

	start, ok := g.lookup(key)
	if !ok {
		return nil
	}
	var out []node.Key
	seen := map[node.Key]struct{}{key: {}}
	frontier := []*entry{start}
	for len(frontier) > 0 {
		e := frontier[0]
		frontier = frontier[1:]
		for k := range e.rdeps {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
			if dep, ok := g.lookup(k); ok {
				frontier = append(frontier, dep)
			}
		}
	}
	return out
}

// TryStartEvaluation admits key for computation. It returns false when a
// computation for the key is already in flight, guaranteeing a single
// concurrent computation per key.
func (g *Graph) TryStartEvaluation(key node.Key) bool {
	e := g.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return false
	}
	e.inFlight = true
	return true
}

// AbortEvaluation releases the in-flight admission for key without
// committing a value, e.g. after a failure or cancellation.
func (g *Graph) AbortEvaluation(key node.Key) {
	e, ok := g.lookup(key)
	if !ok {
		return
	}
	e.mu.Lock()
	e.inFlight = false
	e.mu.Unlock()
}

// Keys returns all keys known to the graph, in arena order.
func (g *Graph) Keys() []node.Key {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]node.Key, len(g.arena))
	for i, e := range g.arena {
		out[i] = e.key
	}
	return out
}

// Records snapshots every clean entry for persistence. Dirty entries are
// skipped: restoring one would revive a value whose recomputation never
// committed.
func (g *Graph) Records() []Record {
	g.mu.RLock()
	arena := append([]*entry(nil), g.arena...)
	g.mu.RUnlock()

	var out []Record
	for _, e := range arena {
		e.mu.Lock()
		status, value, version := e.status, e.value, e.lastChanged
		e.mu.Unlock()
		if status != StatusClean || value == nil {
			continue
		}
		g.edgeMu.RLock()
		deps := append([]node.Key(nil), e.deps...)
		g.edgeMu.RUnlock()
		out = append(out, Record{Key: e.key, Value: value, Deps: deps, Version: version})
	}
	return out
}

// Restore installs a persisted record as a clean entry, rebuilding edges.
// Used when reloading the graph at startup; restored values are subject to
// dirtiness checking before reuse.
func (g *Graph) Restore(rec Record) {
	e := g.entryFor(rec.Key)

	g.edgeMu.Lock()
	e.deps = dedupeKeys(rec.Deps)
	for _, d := range e.deps {
		dep := g.entryFor(d)
		dep.rdeps[rec.Key] = struct{}{}
	}
	g.edgeMu.Unlock()

	e.mu.Lock()
	e.value = rec.Value
	e.status = StatusClean
	e.lastChanged = rec.Version
	e.lastEvaluated = rec.Version
	e.mu.Unlock()

	g.mu.Lock()
	if rec.Version > g.version {
		g.version = rec.Version
	}
	g.mu.Unlock()
}

func dedupeKeys(keys []node.Key) []node.Key {
	seen := make(map[node.Key]struct{}, len(keys))
	out := make([]node.Key, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// sameValue reports best-effort value identity for change pruning. Values are
// immutable, so pointer identity is sufficient; distinct pointers are treated
// as changed.
func sameValue(a, b node.Value) bool {
	return a == b
}
