package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionFromZone(t *testing.T) {
	region, err := regionFromZone("projects/1234/zones/europe-west1-b")
	require.NoError(t, err)
	assert.Equal(t, "europe-west1", region)

	_, err = regionFromZone("garbage")
	assert.Error(t, err)
}

func TestGenUniqueIDIsPositiveAndOrdered(t *testing.T) {
	a, err := GenUniqueID("999", 1000, 1)
	require.NoError(t, err)
	b, err := GenUniqueID("999", 1000, 2)
	require.NoError(t, err)
	c, err := GenUniqueID("999", 1001, 1)
	require.NoError(t, err)

	assert.Positive(t, a)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestHashMacAddressPidIsThreeDigits(t *testing.T) {
	assert.Len(t, HashMacAddressPid("00:1a:2b:3c:4d:5e"), 3)
	assert.NotEmpty(t, GetMachineID())
}

func TestGenUniqueIDDiffersAcrossMachines(t *testing.T) {
	seen := map[int64]string{}
	for _, machine := range []string{"001", "123", "999"} {
		for ts := int64(0); ts < 20; ts++ {
			for counter := int64(0); counter < 20; counter++ {
				id, err := GenUniqueID(machine, ts, counter)
				require.NoError(t, err)
				prev, dup := seen[id]
				require.False(t, dup, "machine %s collides with %s", machine, prev)
				seen[id] = machine
			}
		}
	}
}
