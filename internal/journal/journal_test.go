package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/buildgraphgo/internal/buildconfig"
	"github.com/vk/buildgraphgo/internal/graph"
	"github.com/vk/buildgraphgo/internal/label"
	"github.com/vk/buildgraphgo/internal/node"
)

func sampleRecords() []graph.Record {
	config := buildconfig.New("fastbuild", map[string]string{"compilation_mode": "fastbuild"})
	target := node.ConfiguredTargetKey{
		Label:          label.Label{Package: "app", Name: "server"},
		ConfigChecksum: config.Checksum(),
	}
	return []graph.Record{
		{
			Key:     node.ConfigurationKey{Checksum: config.Checksum()},
			Value:   &node.ConfigurationValue{Configuration: config},
			Version: 1,
		},
		{
			Key: target,
			Value: &node.ConfiguredTargetValue{
				Label: target.Label,
				OutputGroups: map[string][]node.Artifact{
					"default": {{Path: "bin/server", Owner: target.Label}},
				},
			},
			Deps:    []node.Key{node.ConfigurationKey{Checksum: config.Checksum()}},
			Version: 1,
		},
		{
			Key:     node.RepoDirKey{Repo: "deps"},
			Value:   &node.RepoDirValue{Path: "external/deps", ManagedDirs: []string{"node_modules"}},
			Version: 1,
		},
		{
			Key: node.TargetCompletionKey{Target: target, Groups: "default"},
			Value: node.Completed,
			Deps: []node.Key{target},
			Version: 2,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.Save(ctx, sampleRecords()))

	loaded, err := j.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 4)

	byKey := make(map[node.Key]graph.Record)
	for _, record := range loaded {
		byKey[record.Key] = record
	}

	t.Run("configuration", func(t *testing.T) {
		config := buildconfig.New("fastbuild", map[string]string{"compilation_mode": "fastbuild"})
		record, ok := byKey[node.ConfigurationKey{Checksum: config.Checksum()}]
		require.True(t, ok)
		value := record.Value.(*node.ConfigurationValue)
		assert.Equal(t, config.Checksum(), value.Configuration.Checksum(),
			"checksum recomputed from persisted options must match")
		assert.Equal(t, "fastbuild", value.Configuration.Mnemonic())
	})

	t.Run("configured target keeps edges", func(t *testing.T) {
		config := buildconfig.New("fastbuild", map[string]string{"compilation_mode": "fastbuild"})
		key := node.ConfiguredTargetKey{
			Label:          label.Label{Package: "app", Name: "server"},
			ConfigChecksum: config.Checksum(),
		}
		record, ok := byKey[key]
		require.True(t, ok)
		require.Len(t, record.Deps, 1)
		assert.Equal(t, node.ConfigurationKey{Checksum: config.Checksum()}, record.Deps[0])
		value := record.Value.(*node.ConfiguredTargetValue)
		assert.Equal(t, "bin/server", value.OutputGroups["default"][0].Path)
	})

	t.Run("repo dir", func(t *testing.T) {
		record, ok := byKey[node.RepoDirKey{Repo: "deps"}]
		require.True(t, ok)
		value := record.Value.(*node.RepoDirValue)
		assert.Equal(t, []string{"node_modules"}, value.ManagedDirs)
	})

	t.Run("completion sentinel", func(t *testing.T) {
		config := buildconfig.New("fastbuild", map[string]string{"compilation_mode": "fastbuild"})
		target := node.ConfiguredTargetKey{
			Label:          label.Label{Package: "app", Name: "server"},
			ConfigChecksum: config.Checksum(),
		}
		record, ok := byKey[node.TargetCompletionKey{Target: target, Groups: "default"}]
		require.True(t, ok)
		assert.Same(t, node.Completed, record.Value)
		assert.Equal(t, int64(2), record.Version)
	})
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.Save(ctx, sampleRecords()))
	require.NoError(t, j.Save(ctx, sampleRecords()[:1]))

	loaded, err := j.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "a snapshot fully replaces its predecessor")
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	j, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, j.Save(ctx, sampleRecords()))
	require.NoError(t, j.Close())

	reopened, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 4)
}

func TestRestoreIntoGraph(t *testing.T) {
	// The round trip the app performs: save one graph, restore into a
	// fresh one, and observe the same values and edges.
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	g := graph.New()
	for _, record := range sampleRecords() {
		g.Restore(record)
	}
	ctx := context.Background()
	require.NoError(t, j.Save(ctx, g.Records()))

	loaded, err := j.Load(ctx)
	require.NoError(t, err)

	fresh := graph.New()
	for _, record := range loaded {
		fresh.Restore(record)
	}
	config := buildconfig.New("fastbuild", map[string]string{"compilation_mode": "fastbuild"})
	target := node.ConfiguredTargetKey{
		Label:          label.Label{Package: "app", Name: "server"},
		ConfigChecksum: config.Checksum(),
	}
	state := fresh.Get(target)
	assert.Equal(t, graph.StatusClean, state.Status)
	assert.Equal(t, []node.Key{node.ConfigurationKey{Checksum: config.Checksum()}}, fresh.Deps(target))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}
