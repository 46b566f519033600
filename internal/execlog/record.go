package execlog

import "time"

// Digest identifies file contents: the hash string, the size in bytes, and
// the name of the hash function that produced it.
type Digest struct {
	Hash         string `json:"hash"`
	SizeBytes    int64  `json:"size_bytes"`
	HashFunction string `json:"hash_function"`
}

// File is one input or output file of an executed step.
type File struct {
	Path   string `json:"path"`
	Digest Digest `json:"digest"`
}

// EnvVar is one environment variable of an executed step.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PlatformProperty is one entry of the ordered execution platform description.
type PlatformProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record describes one executed computation step. The schema is fixed and
// external: the core populates it on behalf of the execution layer it drives.
//
// Runner is empty when the step was a local cache hit, in which case the step
// is not logged at all. ExitCode is guaranteed to be zero when Status is
// empty.
type Record struct {
	CommandArgs     []string           `json:"command_args"`
	EnvVars         []EnvVar           `json:"env_vars,omitempty"`
	Platform        []PlatformProperty `json:"platform,omitempty"`
	Inputs          []File             `json:"inputs,omitempty"`
	ListedOutputs   []string           `json:"listed_outputs,omitempty"`
	Remotable       bool               `json:"remotable"`
	Cacheable       bool               `json:"cacheable"`
	TimeoutMillis   int64              `json:"timeout_millis,omitempty"`
	Mnemonic        string             `json:"mnemonic"`
	ActualOutputs   []File             `json:"actual_outputs,omitempty"`
	Runner          string             `json:"runner"`
	RemoteCacheHit  bool               `json:"remote_cache_hit"`
	Status          string             `json:"status,omitempty"`
	ExitCode        int32              `json:"exit_code"`
	RemoteCacheable bool               `json:"remote_cacheable"`
	WallTime        time.Duration      `json:"wall_time_nanos"`
	TargetLabel     string             `json:"target_label,omitempty"`
}

// Succeeded reports whether the step completed without a failure status.
func (r *Record) Succeeded() bool {
	return r.Status == ""
}
