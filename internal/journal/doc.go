// Package journal persists the dependency graph between build invocations.
// Node records (key, value, edges, version) are written to an embedded
// BadgerDB on shutdown and restored on startup, giving the dirtiness
// checkers prior state to check instead of forcing a cold build.
package journal
