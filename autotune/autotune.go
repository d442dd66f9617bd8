// Package autotune holds the hyperparameter snapshot the collective engine
// consumes and the client for the external autotune service that produces
// it. The service's HTTP surface itself is an external collaborator; only
// its address, port and request contract matter here.
package autotune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Hyperparameter is the tuning snapshot for one training job. It is
// immutable once stored in the process context; a new snapshot replaces
// the value wholesale.
type Hyperparameter struct {
	// BucketBytes is the coalescing bucket size hint in bytes.
	BucketBytes int `json:"bucket_bytes"`

	// HierarchicalReduce selects intra-node reduce + inter-node exchange
	// over a flat global all-reduce.
	HierarchicalReduce bool `json:"hierarchical_reduce"`

	// Buckets assigns tensor names to coalescing buckets.
	Buckets [][]string `json:"buckets,omitempty"`
}

// Metrics is the per-rank training feedback reported to the service.
type Metrics struct {
	Throughput float64 `json:"throughput"`
	Iter       int64   `json:"iter"`
}

const defaultRequestTimeout = 30 * time.Second

// Client talks to the autotune service over HTTP/JSON.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(addr string, port int) *Client {
	return &Client{
		base: fmt.Sprintf("http://%s:%d", addr, port),
		hc:   &http.Client{Timeout: defaultRequestTimeout},
	}
}

type tuneRequest struct {
	Rank    int     `json:"rank"`
	Metrics Metrics `json:"metrics"`
}

// RequestHyperparameters reports this rank's metrics and fetches the
// current snapshot recommended by the service.
func (c *Client) RequestHyperparameters(ctx context.Context, rank int, m Metrics) (*Hyperparameter, error) {
	var hp Hyperparameter
	if err := c.post(ctx, "/api/v1/hyperparameters", tuneRequest{Rank: rank, Metrics: m}, &hp); err != nil {
		return nil, err
	}
	return &hp, nil
}

type reportRequest struct {
	Rank           int            `json:"rank"`
	Hyperparameter Hyperparameter `json:"hyperparameter"`
}

// Report publishes the snapshot a rank has applied.
func (c *Client) Report(ctx context.Context, rank int, hp Hyperparameter) error {
	return c.post(ctx, "/api/v1/report", reportRequest{Rank: rank, Hyperparameter: hp}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "autotune service %s", c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("autotune service %s%s: %s", c.base, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
