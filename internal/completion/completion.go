package completion

import (
	"errors"
	"fmt"

	"github.com/vk/buildgraphgo/internal/causes"
	"github.com/vk/buildgraphgo/internal/node"
)

// ErrNotReady signals that the configuration event identifier of a top-level
// unit cannot be resolved yet. It is a suspension, not a failure: the caller
// must retry once the owning configuration node has been computed, and must
// not emit any event on the attempt that saw it.
var ErrNotReady = errors.New("completion: event identifier not ready")

// Completor is the per-kind behavior of the completion coordinator. The
// variant set is closed: one completor per top-level kind (target, aspect),
// dispatched by key kind.
type Completor interface {
	// Kind is the completion key kind this completor governs.
	Kind() node.Kind
	// Result returns the stateless sentinel stored in the graph once the
	// completion succeeds.
	Result() node.Value
	// UnderlyingKey returns the analysis key whose value this completion
	// aggregates.
	UnderlyingKey(key node.Key) node.Key
	// ConfigurationKey returns the key of the owning configuration, or nil
	// for a configuration-free unit.
	ConfigurationKey(key node.Key) node.Key
	// RequestedGroups returns the output groups the request asked for.
	RequestedGroups(key node.Key) []string
	// LocationIdentifier returns the stable string correlating all events
	// for this top-level unit.
	LocationIdentifier(key node.Key) string
	// AspectClass names the aspect for aspect completions, empty otherwise.
	AspectClass(key node.Key) string
	// OutputGroups extracts the artifact mapping from the underlying value.
	OutputGroups(value node.Value) map[string][]node.Artifact
	// RootCauseError renders the one-line diagnostic for a single root
	// cause of this unit's failure.
	RootCauseError(key node.Key, cause causes.Cause) string
}

// TargetCompletor completes configured targets.
type TargetCompletor struct{}

func (TargetCompletor) Kind() node.Kind    { return node.KindTargetCompletion }
func (TargetCompletor) Result() node.Value { return node.Completed }

func (TargetCompletor) UnderlyingKey(key node.Key) node.Key {
	return key.(node.TargetCompletionKey).Target
}

func (TargetCompletor) ConfigurationKey(key node.Key) node.Key {
	return key.(node.TargetCompletionKey).Target.ConfigurationKeyOrNil()
}

func (TargetCompletor) RequestedGroups(key node.Key) []string {
	return node.SplitGroups(key.(node.TargetCompletionKey).Groups)
}

func (TargetCompletor) LocationIdentifier(key node.Key) string {
	return key.(node.TargetCompletionKey).Target.Label.String()
}

func (TargetCompletor) AspectClass(node.Key) string { return "" }

func (TargetCompletor) OutputGroups(value node.Value) map[string][]node.Artifact {
	if v, ok := value.(*node.ConfiguredTargetValue); ok {
		return v.OutputGroups
	}
	return nil
}

func (TargetCompletor) RootCauseError(key node.Key, cause causes.Cause) string {
	target := key.(node.TargetCompletionKey).Target
	return fmt.Sprintf("%s: %s", target.Label, cause.Message)
}

// AspectCompletor completes aspects applied to targets.
type AspectCompletor struct{}

func (AspectCompletor) Kind() node.Kind    { return node.KindAspectCompletion }
func (AspectCompletor) Result() node.Value { return node.Completed }

func (AspectCompletor) UnderlyingKey(key node.Key) node.Key {
	return key.(node.AspectCompletionKey).Aspect
}

func (AspectCompletor) ConfigurationKey(key node.Key) node.Key {
	return key.(node.AspectCompletionKey).Aspect.Base.ConfigurationKeyOrNil()
}

func (AspectCompletor) RequestedGroups(key node.Key) []string {
	return node.SplitGroups(key.(node.AspectCompletionKey).Groups)
}

func (AspectCompletor) LocationIdentifier(key node.Key) string {
	aspect := key.(node.AspectCompletionKey).Aspect
	return fmt.Sprintf("%s, aspect %s", aspect.Base.Label, aspect.AspectClass)
}

func (AspectCompletor) AspectClass(key node.Key) string {
	return key.(node.AspectCompletionKey).Aspect.AspectClass
}

func (AspectCompletor) OutputGroups(value node.Value) map[string][]node.Artifact {
	if v, ok := value.(*node.AspectValue); ok {
		return v.OutputGroups
	}
	return nil
}

func (AspectCompletor) RootCauseError(key node.Key, cause causes.Cause) string {
	aspect := key.(node.AspectCompletionKey).Aspect
	return fmt.Sprintf("%s, aspect %s: %s", aspect.Base.Label, aspect.AspectClass, cause.Message)
}
