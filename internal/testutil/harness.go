package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/buildgraphgo/internal/app"
	"github.com/vk/buildgraphgo/internal/hcl_adapter"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Workspace is a temporary on-disk workspace shared across the build
// invocations of one test, so incremental behavior is observable.
type Workspace struct {
	Dir        string
	OutputBase string
}

// HarnessResult holds the outcomes of one integration build.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// NewWorkspace creates a workspace populated with the given manifest files,
// keyed by relative path.
func NewWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", ".tmp-integration-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	w := &Workspace{
		Dir:        tmpDir,
		OutputBase: filepath.Join(tmpDir, ".out"),
	}
	for name, content := range files {
		w.WriteFile(t, name, content)
	}
	return w
}

// WriteFile creates or replaces one file inside the workspace.
func (w *Workspace) WriteFile(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(w.Dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// MakeDir creates a directory inside the workspace, e.g. a managed side
// directory a manifest declares.
func (w *Workspace) MakeDir(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(w.Dir, name), 0o755))
}

// RemoveDir deletes a directory inside the workspace.
func (w *Workspace) RemoveDir(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(filepath.Join(w.Dir, name)))
}

// RunBuild runs one build invocation against the workspace. The caller fills
// in the request fields of cfg (Targets, AspectClass, NoFetch, ...); the
// harness supplies paths and logging.
func (w *Workspace) RunBuild(t *testing.T, cfg app.Config) *HarnessResult {
	t.Helper()

	cfg.ManifestPath = w.Dir
	cfg.OutputBase = w.OutputBase
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, hcl_adapter.NewLoader())
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(context.Background())

	if os.Getenv("BGGO_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}

// Event is one decoded entry of the persisted event stream.
type Event struct {
	InvocationID string          `json:"invocation_id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
}

// ReadEvents decodes the event stream written by the most recent build.
func (w *Workspace) ReadEvents(t *testing.T) []Event {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.OutputBase, "events.jsonl"))
	require.NoError(t, err)

	var decoded []Event
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var event Event
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		decoded = append(decoded, event)
	}
	return decoded
}

// CompletionEvents filters the decoded stream down to terminal completion
// payloads.
func (w *Workspace) CompletionEvents(t *testing.T) []map[string]any {
	t.Helper()
	var completions []map[string]any
	for _, event := range w.ReadEvents(t) {
		if event.Type != "completion" {
			continue
		}
		var payload map[string]any
		require.NoError(t, json.Unmarshal(event.Payload, &payload))
		completions = append(completions, payload)
	}
	return completions
}

// ReadExecutionLog returns the JSON lines of the execution log written by
// the most recent build. An empty slice means no actions ran.
func (w *Workspace) ReadExecutionLog(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.OutputBase, "execution.log"))
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
