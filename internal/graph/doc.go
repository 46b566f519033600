// Package graph implements the versioned dependency graph at the center of
// incremental evaluation: node values, exact dependency edges, dirty/clean
// state, and the per-key admission check that guarantees a single in-flight
// computation.
//
// The graph is the only mutable structure shared between evaluation workers.
// All value mutation goes through SetValue, which commits a value together
// with the exact set of dependencies read during its computation, or through
// Replace, which atomically splices in a known replacement for a clean node.
package graph
