package store

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNATS(t *testing.T) string {
	t.Helper()
	opts := &server.Options{JetStream: true, Port: -1, StoreDir: t.TempDir()}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(10*time.Second))
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestNATSRendezvous(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping NATS-backed store test in short mode")
	}
	url := startNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root, err := NewNATS(ctx, url, "mesh-rendezvous")
	require.NoError(t, err)
	defer root.Close()
	member, err := NewNATS(ctx, url, "mesh-rendezvous")
	require.NoError(t, err)
	defer member.Close()

	// The member starts fetching before the root publishes.
	got := make(chan []byte, 1)
	go func() {
		v, err := member.Get("mesh_global_comm-0-unique_id")
		if err == nil {
			got <- v
		} else {
			close(got)
		}
	}()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, root.Set("mesh_global_comm-0-unique_id", []byte("token-1")))

	select {
	case v := <-got:
		assert.Equal(t, []byte("token-1"), v)
	case <-time.After(10 * time.Second):
		t.Fatal("member never observed the published token")
	}

	// Set-once semantics.
	require.Error(t, root.Set("mesh_global_comm-0-unique_id", []byte("token-2")))
}
