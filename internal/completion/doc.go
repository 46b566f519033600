// Package completion turns finished top-level computations into build
// events. For every requested target or aspect completion key it waits for
// the underlying analysis value, resolves the configuration event
// identifier, and posts exactly one terminal event: success with the
// realized output-group artifact mapping, or failure with the full
// deduplicated root-cause set.
//
// Identifier resolution can itself lag behind the rest of the build. In
// that case the completion suspends like any other computation and emits
// nothing until the identifier is available. Configuration-free units skip
// resolution entirely and use the null-configuration sentinel.
package completion
