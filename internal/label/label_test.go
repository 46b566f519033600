package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("main repository label", func(t *testing.T) {
		l, err := Parse("//pkg/sub:tool")
		require.NoError(t, err)
		assert.Equal(t, "", l.Repo)
		assert.Equal(t, "pkg/sub", l.Package)
		assert.Equal(t, "tool", l.Name)
		assert.False(t, l.IsExternal())
	})

	t.Run("external repository label", func(t *testing.T) {
		l, err := Parse("@deps//lib:lib")
		require.NoError(t, err)
		assert.Equal(t, "deps", l.Repo)
		assert.Equal(t, "lib", l.Package)
		assert.Equal(t, "lib", l.Name)
		assert.True(t, l.IsExternal())
	})

	t.Run("shorthand target name", func(t *testing.T) {
		l, err := Parse("//tools/compiler")
		require.NoError(t, err)
		assert.Equal(t, "compiler", l.Name)
		assert.Equal(t, "tools/compiler", l.Package)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, raw := range []string{"//a:b", "@r//a/b:c", "//x/y.z:w-1"} {
			l, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, l.String())
		}
	})

	t.Run("error cases", func(t *testing.T) {
		cases := map[string]string{
			"":             "cannot be empty",
			"pkg:name":     "must start with",
			"@//pkg:name":  "bad repository name",
			"@repo:name":   "missing //",
			"//:name":      "empty package path",
			"//a//b:name":  "empty segment",
			"//a:":         "bad target name",
			"//a/..:name":  "bad package segment",
			"//a b:name":   "bad package segment",
			"//a:na me":    "bad target name",
		}
		for raw, wantSubstr := range cases {
			_, err := Parse(raw)
			assert.ErrorContains(t, err, wantSubstr, "input %q", raw)
		}
	})
}

func TestLabelString(t *testing.T) {
	l := Label{Repo: "ext", Package: "a/b", Name: "c"}
	assert.Equal(t, "@ext//a/b:c", l.String())

	l = Label{Package: "a", Name: "a"}
	assert.Equal(t, "//a:a", l.String())
}
