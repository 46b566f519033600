package events

import (
	"github.com/vk/buildgraphgo/internal/causes"
	"github.com/vk/buildgraphgo/internal/node"
)

// ConfigurationID is the configuration/event identifier completion events are
// keyed by. It is derived from the owning configuration's checksum.
type ConfigurationID struct {
	Checksum string `json:"checksum"`
}

// NullConfigurationID is the fixed sentinel used for top-level units with no
// associated configuration.
var NullConfigurationID = ConfigurationID{Checksum: "none"}

// Event is one entry in the build event stream.
type Event interface {
	// Location correlates events for the same top-level unit.
	Location() string
}

// ProgressEvent reports a partial update for a top-level unit.
type ProgressEvent struct {
	LocationID string `json:"location_id"`
	Message    string `json:"message"`
}

func (e *ProgressEvent) Location() string { return e.LocationID }

// CompletionEvent is the single terminal event for one top-level unit:
// either its realized output-group artifact mapping, or the deduplicated set
// of root causes for its failure.
type CompletionEvent struct {
	LocationID      string                     `json:"location_id"`
	AspectClass     string                     `json:"aspect_class,omitempty"`
	ConfigurationID ConfigurationID            `json:"configuration_id"`
	Success         bool                       `json:"success"`
	OutputGroups    map[string][]node.Artifact `json:"output_groups,omitempty"`
	RootCauses      []causes.Cause             `json:"root_causes,omitempty"`
}

func (e *CompletionEvent) Location() string { return e.LocationID }
