package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/buildgraphgo/internal/app"
	"github.com/vk/buildgraphgo/internal/testutil"
)

const managedManifest = `
repository "deps" {
  path         = "external/deps"
  managed_dirs = ["vendor"]
}

configuration "fastbuild" {
  options = {
    compilation_mode = "fastbuild"
  }
}

target "//app:tool" {
  configuration = "fastbuild"
  repositories  = ["deps"]

  output_group "default" {
    files = ["bin/tool"]
  }

  action "Link" {
    args    = ["cc", "-o", "bin/tool"]
    outputs = ["bin/tool"]
  }
}
`

func TestIncremental_RemovedManagedDirTriggersRebuild(t *testing.T) {
	t.Parallel()

	// Arrange
	workspace := testutil.NewWorkspace(t, map[string]string{"workspace.hcl": managedManifest})
	workspace.MakeDir(t, "vendor")

	first := workspace.RunBuild(t, app.Config{Targets: []string{"//app:tool"}})
	require.NoError(t, first.Err)
	require.Len(t, workspace.ReadExecutionLog(t), 1)

	second := workspace.RunBuild(t, app.Config{Targets: []string{"//app:tool"}})
	require.NoError(t, second.Err)
	require.Empty(t, workspace.ReadExecutionLog(t),
		"with the managed directory intact, nothing is recomputed")

	// Act
	workspace.RemoveDir(t, "vendor")
	third := workspace.RunBuild(t, app.Config{Targets: []string{"//app:tool"}})

	// Assert
	require.NoError(t, third.Err)
	assert.Len(t, workspace.ReadExecutionLog(t), 1,
		"the missing managed directory dirties the repository, invalidating the target through restored edges")

	completions := workspace.CompletionEvents(t)
	require.Len(t, completions, 1)
	assert.Equal(t, true, completions[0]["success"])
}

func TestIncremental_FetchSuppressionRecoversOnNextBuild(t *testing.T) {
	t.Parallel()

	// Arrange
	workspace := testutil.NewWorkspace(t, map[string]string{"workspace.hcl": managedManifest})
	workspace.MakeDir(t, "vendor")

	// Act: the first build suppresses fetching, so the repository the target
	// reads is only a fetch-delayed marker.
	first := workspace.RunBuild(t, app.Config{
		Targets: []string{"//app:tool"},
		NoFetch: true,
	})

	// Assert
	require.Error(t, first.Err)
	assert.Contains(t, first.Err.Error(), "build failed")

	completions := workspace.CompletionEvents(t)
	require.Len(t, completions, 1)
	event := completions[0]
	assert.Equal(t, false, event["success"])

	rootCauses, ok := event["root_causes"].([]any)
	require.True(t, ok)
	require.Len(t, rootCauses, 1)
	cause := rootCauses[0].(map[string]any)
	assert.Contains(t, cause["message"], "fetch was suppressed")
	assert.Empty(t, workspace.ReadExecutionLog(t), "a failed target runs no actions")

	// Act: a normal build dirties the fetch-delayed repository value and
	// recomputes everything downstream of it.
	second := workspace.RunBuild(t, app.Config{Targets: []string{"//app:tool"}})

	// Assert
	require.NoError(t, second.Err)
	assert.Len(t, workspace.ReadExecutionLog(t), 1)

	completions = workspace.CompletionEvents(t)
	require.Len(t, completions, 1)
	assert.Equal(t, true, completions[0]["success"])
}
