// Package label provides a structured, type-safe representation for target
// identifiers within the build graph, based on the canonical format
// `@repo//package/path:name`.
//
// The package enforces the identifier schema and centralizes all formatting
// and parsing logic. Labels are small comparable values and are used directly
// as parts of graph node keys.
package label
