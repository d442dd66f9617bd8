package store

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
)

// NATS adapts a JetStream key-value bucket to the rendezvous Store
// contract, for jobs whose launcher provides a NATS URL instead of an
// in-process store. Get blocks on a key watcher until the key is created.
type NATS struct {
	ctx context.Context
	nc  *nats.Conn
	kv  jetstream.KeyValue
}

// NewNATS connects to the server at url and opens (or creates) the named
// key-value bucket.
func NewNATS(ctx context.Context, url, bucket string) (*NATS, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, errors.Wrapf(ErrTransport, "connect %s: %v", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, errors.Wrapf(ErrTransport, "jetstream: %v", err)
	}
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	}
	if err != nil {
		nc.Close()
		return nil, errors.Wrapf(ErrTransport, "bucket %s: %v", bucket, err)
	}
	return &NATS{ctx: ctx, nc: nc, kv: kv}, nil
}

func (s *NATS) Set(key string, value []byte) error {
	_, err := s.kv.Create(s.ctx, key, value)
	if errors.Is(err, jetstream.ErrKeyExists) {
		return errors.Wrap(errWriteConflict, key)
	}
	if err != nil {
		return errors.Wrapf(ErrTransport, "set %s: %v", key, err)
	}
	return nil
}

func (s *NATS) Get(key string) ([]byte, error) {
	w, err := s.kv.Watch(s.ctx, key)
	if err != nil {
		return nil, errors.Wrapf(ErrTransport, "watch %s: %v", key, err)
	}
	defer w.Stop()
	for {
		select {
		case entry := <-w.Updates():
			// nil marks the end of initial values; keep waiting for the put.
			if entry == nil {
				continue
			}
			if entry.Operation() == jetstream.KeyValuePut {
				return entry.Value(), nil
			}
		case <-s.ctx.Done():
			return nil, errors.Wrapf(ErrTransport, "get %s: %v", key, s.ctx.Err())
		}
	}
}

func (s *NATS) Close() {
	s.nc.Close()
}
