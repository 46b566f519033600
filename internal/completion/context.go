package completion

import (
	"path"

	"github.com/vk/buildgraphgo/internal/metrics"
	"github.com/vk/buildgraphgo/internal/node"
)

// PathResolver maps an artifact's graph-internal path to the path reported
// in events.
type PathResolver interface {
	Resolve(artifact node.Artifact) string
}

// ExecRootResolver resolves artifact paths against an execution root.
type ExecRootResolver struct {
	ExecRoot string
}

// Resolve implements PathResolver.
func (r ExecRootResolver) Resolve(artifact node.Artifact) string {
	if r.ExecRoot == "" {
		return artifact.Path
	}
	return path.Join(r.ExecRoot, artifact.Path)
}

// Context is the per-request state of one completion: the path resolution
// strategy and the metrics sinks. It is owned by exactly one completion
// attempt and discarded when that completion finishes.
type Context struct {
	resolver PathResolver
	metrics  *metrics.Metrics
}

// realizeGroups maps the requested output groups of an underlying value to
// their resolved artifact lists. Groups the value does not provide are
// silently absent from the result.
func (c *Context) realizeGroups(requested []string, available map[string][]node.Artifact) map[string][]node.Artifact {
	realized := make(map[string][]node.Artifact, len(requested))
	for _, group := range requested {
		artifacts, ok := available[group]
		if !ok {
			continue
		}
		resolved := make([]node.Artifact, len(artifacts))
		for i, artifact := range artifacts {
			resolved[i] = node.Artifact{
				Path:  c.resolver.Resolve(artifact),
				Owner: artifact.Owner,
			}
		}
		realized[group] = resolved
	}
	return realized
}

func (c *Context) countArtifacts(groups map[string][]node.Artifact) {
	for _, artifacts := range groups {
		c.metrics.ArtifactsBuilt.Add(float64(len(artifacts)))
	}
}
