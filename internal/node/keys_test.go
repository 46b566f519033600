package node

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/buildgraphgo/internal/label"
)

func TestKeyEquality(t *testing.T) {
	lbl := label.Label{Package: "pkg", Name: "bin"}

	t.Run("identical inputs produce equal keys", func(t *testing.T) {
		a := TargetCompletionKey{Target: ConfiguredTargetKey{Label: lbl, ConfigChecksum: "abc"}, Groups: "default"}
		b := TargetCompletionKey{Target: ConfiguredTargetKey{Label: lbl, ConfigChecksum: "abc"}, Groups: "default"}
		assert.True(t, a == b)

		m := map[Key]int{a: 1}
		assert.Equal(t, 1, m[b])
	})

	t.Run("differing config checksums differ", func(t *testing.T) {
		a := ConfiguredTargetKey{Label: lbl, ConfigChecksum: "abc"}
		b := ConfiguredTargetKey{Label: lbl, ConfigChecksum: "def"}
		assert.False(t, a == b)
	})
}

func TestConfigurationKeyOrNil(t *testing.T) {
	lbl := label.Label{Package: "pkg", Name: "bin"}

	withConfig := ConfiguredTargetKey{Label: lbl, ConfigChecksum: "abc"}
	assert.Equal(t, ConfigurationKey{Checksum: "abc"}, withConfig.ConfigurationKeyOrNil())

	configFree := ConfiguredTargetKey{Label: lbl}
	assert.Nil(t, configFree.ConfigurationKeyOrNil())
}

func TestCanonicalGroups(t *testing.T) {
	assert.Equal(t, "default", CanonicalGroups(nil))
	assert.Equal(t, "a,b,c", CanonicalGroups([]string{"c", "a", "b"}))
	assert.Equal(t, "a,b", CanonicalGroups([]string{"b", "a", "b"}))
	assert.Equal(t, []string{"a", "b"}, SplitGroups("a,b"))
	assert.Nil(t, SplitGroups(""))
}

func TestKeyStrings(t *testing.T) {
	lbl := label.Label{Package: "pkg", Name: "bin"}

	assert.Equal(t, "repository-directory:@deps", RepoDirKey{Repo: "deps"}.String())
	assert.Contains(t, ConfiguredTargetKey{Label: lbl}.String(), "@null")

	long := ConfigurationKey{Checksum: "0123456789abcdef0123"}
	assert.Equal(t, "configuration:0123456789abcdef0123", long.String())

	ct := ConfiguredTargetKey{Label: lbl, ConfigChecksum: "0123456789abcdef0123"}
	assert.Contains(t, ct.String(), "0123456789ab")
	assert.NotContains(t, ct.String(), "0123456789abc")
}
