// Package eval implements the evaluator: the driver that computes requested
// node keys in dependency order over the shared graph. Computations discover
// their dependencies lazily through an environment handle; a computation that
// requests a not-yet-available dependency suspends and is restarted from
// scratch once every outstanding dependency has landed. Independent nodes
// evaluate in parallel on a bounded worker pool, cycles fail their subgraph
// with a structured error, and failures accumulate root causes from all
// failed dependencies.
package eval
