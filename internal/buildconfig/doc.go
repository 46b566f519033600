// Package buildconfig models build configurations: immutable option sets with
// a stable content-derived checksum, and the per-request collection that
// rejects checksum conflicts at construction time.
package buildconfig
