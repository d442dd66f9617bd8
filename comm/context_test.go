package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/device"
	"github.com/tensormesh/tensormesh/plan"
	"github.com/tensormesh/tensormesh/store"
)

func resetContext() {
	initMu.Lock()
	procCtx = nil
	initMu.Unlock()
}

func singleRankConfig() Config {
	return Config{
		Rank:        0,
		WorldSize:   1,
		LocalRank:   0,
		LocalSize:   1,
		MasterAddr:  "127.0.0.1",
		ServicePort: 29501,
		BucketBytes: 1 << 20,
	}
}

func TestCurrentBeforeInit(t *testing.T) {
	resetContext()
	assert.False(t, IsInitialized())
	_, err := Current()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitOnce(t *testing.T) {
	resetContext()
	ctx, err := Init(singleRankConfig())
	require.NoError(t, err)
	require.True(t, IsInitialized())

	got, err := Current()
	require.NoError(t, err)
	assert.Same(t, ctx, got)

	// A second initialization is refused and the existing context stands.
	_, err = Init(singleRankConfig())
	require.ErrorIs(t, err, ErrRepeatedInitialization)
	got, err = Current()
	require.NoError(t, err)
	assert.Same(t, ctx, got)
}

func TestInitConfigurationError(t *testing.T) {
	resetContext()
	cfg := singleRankConfig()
	cfg.WorldSize = 8
	cfg.LocalSize = 3
	_, err := Init(cfg)
	require.ErrorIs(t, err, plan.ErrConfiguration)
	assert.False(t, IsInitialized())
}

func TestContextAccessors(t *testing.T) {
	resetContext()
	launched := make(chan int, 1)
	ctx, err := Init(singleRankConfig(), WithServiceLauncher(func(port int) error {
		launched <- port
		return nil
	}))
	require.NoError(t, err)

	// Rank 0 starts the external autotune service.
	assert.Equal(t, 29501, <-launched)

	assert.Equal(t, 0, ctx.Rank())
	assert.Equal(t, 1, ctx.WorldSize())
	assert.Equal(t, device.Accel(0), ctx.Device())
	assert.Equal(t, device.HighPriority, ctx.Stream().Priority())

	require.NotNil(t, ctx.GlobalCommunicator())
	require.NotNil(t, ctx.IntraNodeCommunicator())
	inter, ok := ctx.InterNodeCommunicator()
	require.True(t, ok) // the only rank is its node's leader
	assert.Equal(t, 1, inter.Size)

	assert.Equal(t, 1<<20, ctx.Hyperparameters().BucketBytes)
	assert.NotNil(t, ctx.AutotuneClient())
}

func TestRendezvousTokenExchange(t *testing.T) {
	st := store.NewMem()
	token, err := PublishOrFetch(st, "k", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := PublishOrFetch(st, "k", false)
	require.NoError(t, err)
	assert.Equal(t, token, got)
}
