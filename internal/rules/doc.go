// Package rules backs the evaluator with manifest-driven stand-ins for the
// external rule logic: repository materialization, configuration
// computation, and configured-target / aspect analysis. The real systems
// behind these (fetchers, toolchains, action executors) are collaborators
// reached through narrow interfaces; rules gives the evaluation core
// something concrete to drive end to end.
package rules
