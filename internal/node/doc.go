// Package node defines the typed key/value pairs that populate the dependency
// graph: canonical, comparable keys tagged with the kind of function that
// computes them, and the immutable values those functions produce.
package node
