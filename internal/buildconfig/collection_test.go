package buildconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumStability(t *testing.T) {
	a := New("k8-fastbuild", map[string]string{"cpu": "k8", "mode": "fastbuild"})
	b := New("k8-fastbuild", map[string]string{"mode": "fastbuild", "cpu": "k8"})
	assert.Equal(t, a.Checksum(), b.Checksum(), "option order must not affect the checksum")

	c := New("k8-opt", map[string]string{"cpu": "k8", "mode": "opt"})
	assert.NotEqual(t, a.Checksum(), c.Checksum())
}

func TestChecksumDistinguishesKeyValueBoundaries(t *testing.T) {
	// "ab"->"c" and "a"->"bc" must not collide.
	a := New("m", map[string]string{"ab": "c"})
	b := New("m", map[string]string{"a": "bc"})
	assert.NotEqual(t, a.Checksum(), b.Checksum())
}

func TestNewCollection(t *testing.T) {
	host := New("host", map[string]string{"cpu": "k8"})

	t.Run("distinct checksums succeed in input order", func(t *testing.T) {
		first := New("k8-fastbuild", map[string]string{"cpu": "k8"})
		second := New("arm-fastbuild", map[string]string{"cpu": "arm"})

		coll, err := NewCollection([]*Configuration{first, second}, host)
		require.NoError(t, err)
		got := coll.TargetConfigurations()
		require.Len(t, got, 2)
		assert.Same(t, first, got[0])
		assert.Same(t, second, got[1])
		assert.Same(t, host, coll.HostConfiguration())
	})

	t.Run("duplicate checksums conflict regardless of order", func(t *testing.T) {
		first := New("k8-fastbuild", map[string]string{"cpu": "k8"})
		second := New("k8-fastbuild", map[string]string{"cpu": "k8"})
		third := New("arm-fastbuild", map[string]string{"cpu": "arm"})

		_, err := NewCollection([]*Configuration{first, third, second}, host)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflictingConfigurations)

		_, err = NewCollection([]*Configuration{second, third, first}, host)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflictingConfigurations)
	})

	t.Run("host configuration is exempt from conflict detection", func(t *testing.T) {
		target := New("host", map[string]string{"cpu": "k8"})
		require.Equal(t, target.Checksum(), host.Checksum())

		_, err := NewCollection([]*Configuration{target}, host)
		assert.NoError(t, err)
	})
}
