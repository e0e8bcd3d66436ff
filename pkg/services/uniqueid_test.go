package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeGeneratorUniqueWithinMillisecond(t *testing.T) {
	fixed := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	g := NewSnowflakeGenerator("123", func() time.Time { return fixed })

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := g.NewID()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSnowflakeGeneratorsOnDifferentMachinesNeverCollide(t *testing.T) {
	fixed := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }
	a := NewSnowflakeGenerator("123", clock)
	b := NewSnowflakeGenerator("456", clock)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		for _, g := range []*SnowflakeGenerator{a, b} {
			id, err := g.NewID()
			require.NoError(t, err)
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 400)
}

func TestSnowflakeGeneratorRejectsClockGoingBack(t *testing.T) {
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	g := NewSnowflakeGenerator("123", func() time.Time { return now })
	_, err := g.NewID()
	require.NoError(t, err)

	now = now.Add(-time.Second)
	_, err = g.NewID()
	assert.Error(t, err)
}

func TestNewIDGenerator(t *testing.T) {
	for _, scheme := range []string{"", IDSchemeUUID, IDSchemeSnowflake} {
		g, err := NewIDGenerator(scheme)
		require.NoError(t, err)
		a, err := g.NewID()
		require.NoError(t, err)
		b, err := g.NewID()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	}

	_, err := NewIDGenerator("sequential")
	assert.Error(t, err)
}
