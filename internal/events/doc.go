// Package events implements the build event stream: completion success and
// failure events keyed by a configuration/event identifier, delivered in
// posting order to subscribed sinks.
package events
