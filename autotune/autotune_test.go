package autotune

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientFor(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return NewClient(host, port)
}

func TestRequestHyperparameters(t *testing.T) {
	var gotReq tuneRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/hyperparameters", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(Hyperparameter{
			BucketBytes:        1 << 22,
			HierarchicalReduce: true,
			Buckets:            [][]string{{"w1", "w2"}, {"w3"}},
		})
	}))
	defer srv.Close()

	hp, err := clientFor(t, srv).RequestHyperparameters(context.Background(), 3, Metrics{Throughput: 1200.5, Iter: 42})
	require.NoError(t, err)
	assert.Equal(t, 3, gotReq.Rank)
	assert.Equal(t, 1200.5, gotReq.Metrics.Throughput)
	assert.Equal(t, 1<<22, hp.BucketBytes)
	assert.True(t, hp.HierarchicalReduce)
	assert.Len(t, hp.Buckets, 2)
}

func TestReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/report", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := clientFor(t, srv).Report(context.Background(), 0, Hyperparameter{BucketBytes: 4096})
	require.NoError(t, err)
}

func TestServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tuning not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := clientFor(t, srv).RequestHyperparameters(context.Background(), 0, Metrics{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
