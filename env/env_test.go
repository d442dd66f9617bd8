package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv(RankEnvKey, "5")
	t.Setenv(WorldSizeEnvKey, "8")
	t.Setenv(LocalRankEnvKey, "1")
	t.Setenv(LocalSizeEnvKey, "4")
	t.Setenv(MasterAddrEnvKey, "10.0.0.7")
	t.Setenv(ServicePortEnvKey, "9000")
	t.Setenv(BucketBytesEnvKey, "4194304")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5, c.Rank)
	assert.Equal(t, 8, c.WorldSize)
	assert.Equal(t, 1, c.LocalRank)
	assert.Equal(t, 4, c.LocalSize)
	assert.Equal(t, "10.0.0.7", c.MasterAddr)
	assert.Equal(t, 9000, c.ServicePort)
	assert.Equal(t, 4194304, c.BucketBytes)
}

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		RankEnvKey, WorldSizeEnvKey, LocalRankEnvKey, LocalSizeEnvKey,
		MasterAddrEnvKey, ServicePortEnvKey, BucketBytesEnvKey,
	} {
		t.Setenv(key, "")
	}
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0, c.Rank)
	assert.Equal(t, 1, c.WorldSize)
	assert.Equal(t, 1, c.LocalSize)
	assert.Equal(t, defaultMasterAddr, c.MasterAddr)
	assert.Equal(t, defaultServicePort, c.ServicePort)
	assert.Equal(t, defaultBucketBytes, c.BucketBytes)
}

func TestFromEnvInvalid(t *testing.T) {
	t.Setenv(WorldSizeEnvKey, "eight")
	_, err := FromEnv()
	require.Error(t, err)
}
