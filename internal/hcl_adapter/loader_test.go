package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/buildgraphgo/internal/label"
)

const sampleManifest = `
settings {
  fetch       = false
  output_base = ".out"
  exec_root   = "exec"
}

repository "deps" {
  path         = "external/deps"
  managed_dirs = ["node_modules"]
}

configuration "fastbuild" {
  options = {
    compilation_mode = "fastbuild"
    cpu              = "k8"
  }
}

target "//app:server" {
  configuration = "fastbuild"
  deps          = ["//lib:core"]
  repositories  = ["deps"]

  output_group "default" {
    files = ["bin/server"]
  }

  action "Compile" {
    args      = ["cc", "-o", "server"]
    env       = { PATH = "/usr/bin" }
    outputs   = ["bin/server"]
    cacheable = true
  }
}

target "//lib:core" {
  configuration = "fastbuild"

  output_group "default" {
    files = ["lib/core.a"]
  }
}

aspect "lint" {
  description = "style checks"
}
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workspace.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), writeManifest(t, sampleManifest))
	require.NoError(t, err)

	t.Run("settings", func(t *testing.T) {
		assert.False(t, model.Settings.Fetch)
		assert.Equal(t, ".out", model.Settings.OutputBase)
		assert.Equal(t, "exec", model.Settings.ExecRoot)
	})

	t.Run("repository", func(t *testing.T) {
		repo := model.Repositories["deps"]
		require.NotNil(t, repo)
		assert.Equal(t, "external/deps", repo.Path)
		assert.Equal(t, []string{"node_modules"}, repo.ManagedDirs)
	})

	t.Run("configuration", func(t *testing.T) {
		cfg := model.Configurations["fastbuild"]
		require.NotNil(t, cfg)
		assert.Equal(t, map[string]string{
			"compilation_mode": "fastbuild",
			"cpu":              "k8",
		}, cfg.Options)
	})

	t.Run("target", func(t *testing.T) {
		target, ok := model.TargetByLabel(label.Label{Package: "app", Name: "server"})
		require.True(t, ok)
		assert.Equal(t, "fastbuild", target.Configuration)
		assert.Equal(t, []label.Label{{Package: "lib", Name: "core"}}, target.Deps)
		assert.Equal(t, []string{"deps"}, target.Repositories)
		assert.Equal(t, []string{"bin/server"}, target.OutputGroups["default"])
		require.Len(t, target.Actions, 1)
		action := target.Actions[0]
		assert.Equal(t, "Compile", action.Mnemonic)
		assert.Equal(t, []string{"cc", "-o", "server"}, action.Args)
		assert.Equal(t, map[string]string{"PATH": "/usr/bin"}, action.Env)
		assert.True(t, action.Cacheable)
	})

	t.Run("aspect", func(t *testing.T) {
		aspect := model.Aspects["lint"]
		require.NotNil(t, aspect)
		assert.Equal(t, "style checks", aspect.Description)
	})
}

func TestLoadDefaultsApply(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), writeManifest(t, `
target "//app:tool" {
  output_group "default" {
    files = ["bin/tool"]
  }
}
`))
	require.NoError(t, err)
	assert.True(t, model.Settings.Fetch)
	assert.Equal(t, ".buildgraph", model.Settings.OutputBase)
}

func TestLoadRejectsUnknownConfiguration(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), writeManifest(t, `
target "//app:server" {
  configuration = "nope"
}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown configuration")
}

func TestLoadRejectsDuplicateTargets(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), writeManifest(t, `
target "//app:server" {}
target "//app:server" {}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestLoadMissingPathIsNotAnError(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, model.Targets)
}
