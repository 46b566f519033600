package execlog

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Writer appends execution records to an output stream, one JSON object per
// line. Writes are serialized, so concurrent steps may log safely.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append validates and writes one record. Records with an empty Runner are
// skipped silently: a local cache hit is not logged. Listed outputs are
// sorted before writing, matching the schema's sortedness requirement.
func (lw *Writer) Append(rec *Record) error {
	if rec.Runner == "" {
		return nil
	}
	if rec.Status == "" && rec.ExitCode != 0 {
		return fmt.Errorf("record for %q: exit code %d with empty status", rec.Mnemonic, rec.ExitCode)
	}

	sorted := *rec
	sorted.ListedOutputs = append([]string(nil), rec.ListedOutputs...)
	sort.Strings(sorted.ListedOutputs)

	data, err := json.Marshal(&sorted)
	if err != nil {
		return fmt.Errorf("encoding execution record: %w", err)
	}
	data = append(data, '\n')

	lw.mu.Lock()
	defer lw.mu.Unlock()
	if _, err := lw.w.Write(data); err != nil {
		return fmt.Errorf("writing execution record: %w", err)
	}
	return nil
}
