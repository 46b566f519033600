// Package execlog defines the fixed external schema used to log executed
// computation steps, and an append-only JSON-lines writer for it. The schema
// is owned by the execution layer; the core only populates it.
package execlog
