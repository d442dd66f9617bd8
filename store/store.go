// Package store provides the shared rendezvous store through which
// communicator identity tokens are exchanged: a set-once, get-by-all
// key-value space.
package store

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrTransport reports an unreachable rendezvous store.
var ErrTransport = errors.New("rendezvous store unreachable")

var errWriteConflict = errors.New("key already published")

// Store is the rendezvous exchange contract. Get blocks until the key has
// been published; the store adds no timeout of its own.
type Store interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
}

// Mem is the in-process store used when all ranks share one process
// (tests, single-node debug runs).
type Mem struct {
	mu   sync.Mutex
	cond *sync.Cond
	data map[string][]byte
}

func NewMem() *Mem {
	s := &Mem{data: make(map[string][]byte)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Mem) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return errors.Wrap(errWriteConflict, key)
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	s.cond.Broadcast()
	return nil
}

func (s *Mem) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if v, ok := s.data[key]; ok {
			out := make([]byte, len(v))
			copy(out, v)
			return out, nil
		}
		s.cond.Wait()
	}
}
