package eval

import (
	"fmt"
	"strings"

	"github.com/vk/buildgraphgo/internal/causes"
	"github.com/vk/buildgraphgo/internal/label"
	"github.com/vk/buildgraphgo/internal/node"
)

// CycleError reports that evaluating a key transitively required itself. The
// affected subgraph fails; independent subgraphs continue evaluating.
type CycleError struct {
	// Path lists the keys forming the cycle, starting and ending at the
	// same key.
	Path []node.Key
}

// Error renders the cycle as "a -> b -> a".
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return "dependency cycle detected: " + strings.Join(parts, " -> ")
}

// NodeError is the failure of one node, carrying every root cause reachable
// through its dependency subgraph.
type NodeError struct {
	Key    node.Key
	Causes *causes.Set
	// Err is the node's own underlying error, nil when the node failed only
	// because dependencies failed.
	Err error
}

// Error summarizes the failure with its first root cause.
func (e *NodeError) Error() string {
	all := e.Causes.Causes()
	if len(all) == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Key, e.Err)
		}
		return fmt.Sprintf("%s: failed", e.Key)
	}
	if len(all) == 1 {
		return fmt.Sprintf("%s: %s", e.Key, all[0])
	}
	return fmt.Sprintf("%s: %d root causes, first: %s", e.Key, len(all), all[0])
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// ownerLabel attributes a key to a target label for cause reporting.
func ownerLabel(key node.Key) label.Label {
	switch k := key.(type) {
	case node.ConfiguredTargetKey:
		return k.Label
	case node.AspectKey:
		return k.Base.Label
	case node.TargetCompletionKey:
		return k.Target.Label
	case node.AspectCompletionKey:
		return k.Aspect.Base.Label
	case node.RepoDirKey:
		return label.Label{Repo: k.Repo, Package: "", Name: ""}
	default:
		return label.Label{}
	}
}

// leafCause builds the cause attributed to a failing leaf computation.
func leafCause(key node.Key, err error) causes.Cause {
	return causes.Cause{
		Key:     key.String(),
		Label:   ownerLabel(key),
		Message: err.Error(),
	}
}
