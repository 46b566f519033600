// Package dirty implements dirtiness checking: deciding whether a previously
// computed graph node is stale using cheap external signals (filesystem
// existence probes, the per-build fetch-suppression setting) instead of
// recomputing it. Checkers are registered per node kind and consulted before
// each evaluation reuses cached state.
package dirty
