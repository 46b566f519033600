package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/buildgraphgo/internal/label"
	"github.com/vk/buildgraphgo/internal/node"
)

func targetKey(name string) node.Key {
	return node.ConfiguredTargetKey{Label: label.Label{Package: "pkg", Name: name}, ConfigChecksum: "cfg"}
}

func targetValue(name string) node.Value {
	return &node.ConfiguredTargetValue{Label: label.Label{Package: "pkg", Name: name}}
}

func TestGetAbsent(t *testing.T) {
	g := New()
	state := g.Get(targetKey("never-requested"))
	assert.Equal(t, StatusAbsent, state.Status)
	assert.Nil(t, state.Value)
}

func TestSetValueRecordsExactDeps(t *testing.T) {
	g := New()
	a, b, c := targetKey("a"), targetKey("b"), targetKey("c")

	g.SetValue(a, targetValue("a"), []node.Key{b, c, b})
	assert.ElementsMatch(t, []node.Key{b, c}, g.Deps(a))
	assert.ElementsMatch(t, []node.Key{a}, g.Dependents(b))
	assert.ElementsMatch(t, []node.Key{a}, g.Dependents(c))

	// Recomputation with a different dep set replaces the edges exactly.
	d := targetKey("d")
	g.SetValue(a, targetValue("a"), []node.Key{d})
	assert.Equal(t, []node.Key{d}, g.Deps(a))
	assert.Empty(t, g.Dependents(b))
	assert.Empty(t, g.Dependents(c))
	assert.ElementsMatch(t, []node.Key{a}, g.Dependents(d))
}

func TestMarkDirtyAndInvalidate(t *testing.T) {
	g := New()
	leaf, mid, top := targetKey("leaf"), targetKey("mid"), targetKey("top")

	g.SetValue(leaf, targetValue("leaf"), nil)
	g.SetValue(mid, targetValue("mid"), []node.Key{leaf})
	g.SetValue(top, targetValue("top"), []node.Key{mid})

	assert.ElementsMatch(t, []node.Key{mid, top}, g.AllDependents(leaf))

	g.Invalidate(leaf)
	assert.Equal(t, StatusDirty, g.Get(leaf).Status)
	assert.Equal(t, StatusDirty, g.Get(mid).Status)
	assert.Equal(t, StatusDirty, g.Get(top).Status)

	// The stored value survives dirtying so checkers can inspect it.
	assert.NotNil(t, g.Get(leaf).Value)

	// MarkDirty on an unknown key is a no-op, not an error.
	g.MarkDirty(targetKey("unknown"))
}

func TestReplaceSplicesValue(t *testing.T) {
	g := New()
	a, b := targetKey("a"), targetKey("b")
	g.SetValue(a, targetValue("a"), []node.Key{b})

	replacement := targetValue("a2")
	g.Replace(a, replacement)

	state := g.Get(a)
	assert.Equal(t, StatusClean, state.Status)
	assert.Same(t, replacement, state.Value)
	// Edges are untouched by a splice.
	assert.Equal(t, []node.Key{b}, g.Deps(a))

	// Replacing an absent key is ignored.
	g.Replace(targetKey("absent"), replacement)
	assert.Equal(t, StatusAbsent, g.Get(targetKey("absent")).Status)
}

func TestVersioning(t *testing.T) {
	g := New()
	a := targetKey("a")

	v1 := g.Version()
	g.SetValue(a, targetValue("a"), nil)
	assert.Equal(t, v1, g.Get(a).Version)

	v2 := g.NextVersion()
	require.Greater(t, v2, v1)

	// Recommitting a different value at the new version bumps lastChanged.
	g.SetValue(a, targetValue("a"), nil)
	assert.Equal(t, v2, g.Get(a).Version)
}

func TestSingleInFlightAdmission(t *testing.T) {
	g := New()
	a := targetKey("a")

	require.True(t, g.TryStartEvaluation(a))
	assert.False(t, g.TryStartEvaluation(a), "second admission for the same key must fail")

	g.AbortEvaluation(a)
	assert.True(t, g.TryStartEvaluation(a), "admission reopens after abort")

	g.SetValue(a, targetValue("a"), nil)
	assert.True(t, g.TryStartEvaluation(a), "admission reopens after commit")
}

func TestConcurrentReadersSeeCompleteValues(t *testing.T) {
	g := New()
	a := targetKey("a")
	deps := []node.Key{targetKey("b"), targetKey("c")}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			state := g.Get(a)
			if state.Status == StatusClean {
				// A clean read must never observe a nil value.
				assert.NotNil(t, state.Value)
			}
		}
	}()

	for i := 0; i < 100; i++ {
		g.SetValue(a, targetValue("a"), deps)
	}
	close(stop)
	wg.Wait()
}

func TestRecordsSkipsDirtyEntries(t *testing.T) {
	g := New()
	a, b := targetKey("a"), targetKey("b")
	g.SetValue(b, targetValue("b"), nil)
	g.SetValue(a, targetValue("a"), []node.Key{b})

	g.Invalidate(b)

	records := g.Records()
	assert.Empty(t, records, "a dirtied value and its dependents must not be snapshotted")
}

func TestRecordsAndRestore(t *testing.T) {
	g := New()
	a, b := targetKey("a"), targetKey("b")
	g.SetValue(b, targetValue("b"), nil)
	g.SetValue(a, targetValue("a"), []node.Key{b})

	records := g.Records()
	require.Len(t, records, 2)

	fresh := New()
	for _, rec := range records {
		fresh.Restore(rec)
	}
	assert.Equal(t, StatusClean, fresh.Get(a).Status)
	assert.Equal(t, []node.Key{b}, fresh.Deps(a))
	assert.ElementsMatch(t, []node.Key{a}, fresh.Dependents(b))
	assert.GreaterOrEqual(t, fresh.Version(), g.Get(a).Version)
}
