package dirty

import (
	"context"

	"github.com/vk/buildgraphgo/internal/node"
)

// Outcome classifies the result of a dirtiness check.
type Outcome int

const (
	// NotDirty means the stored value is still valid.
	NotDirty Outcome = iota
	// NeedsRebuild means the value is stale and must be recomputed.
	NeedsRebuild
	// NewValue means the checker already knows the replacement value: the
	// rebuild is skipped and the replacement is spliced into the graph.
	NewValue
)

// Result is the outcome of checking one node, optionally carrying the
// replacement value for the NewValue outcome.
type Result struct {
	Outcome     Outcome
	Replacement node.Value
}

// ResultNotDirty reports a still-valid value.
func ResultNotDirty() Result { return Result{Outcome: NotDirty} }

// ResultDirty reports a stale value that needs recomputation.
func ResultDirty() Result { return Result{Outcome: NeedsRebuild} }

// ResultNewValue reports a stale value whose replacement is already known.
func ResultNewValue(replacement node.Value) Result {
	return Result{Outcome: NewValue, Replacement: replacement}
}

// Session carries the per-build signals dirtiness checks consult. It is
// constructed once per build invocation and threaded into every check, so no
// checker depends on process-wide mutable state.
type Session struct {
	// WorkspaceRoot is the directory managed side-directory paths are
	// resolved against.
	WorkspaceRoot string
	// FetchEnabled is false when external fetching is suppressed for this
	// build.
	FetchEnabled bool
}

// Checker decides, for the node kinds it governs, whether a previously
// computed value is stale, using cheap external signals rather than
// recomputation. Checkers never fabricate replacement values unless they can
// do so without recomputation, and they must not mutate shared state.
type Checker interface {
	// Applies selects the keys this checker governs.
	Applies(key node.Key) bool
	// Check decides staleness of an existing (key, value) pair.
	Check(ctx context.Context, key node.Key, value node.Value, session *Session) Result
}
