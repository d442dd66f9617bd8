package comm

import (
	"fmt"
	"sync"

	"github.com/tensormesh/tensormesh/base"
)

// Transport is the raw collective engine a communicator delegates to.
// It moves host-visible bytes between the members identified by a shared
// token; buffer ownership, datatypes above the byte level and stream
// ordering are the caller's concern.
//
// Members of one communicator must issue the same operations in the same
// order, matching the all-or-nothing nature of collective communication.
type Transport interface {
	Broadcast(token string, rank, size, root int, payload []byte) error
	AllReduce(token string, rank, size int, payload []byte, t base.DataType, op base.Op) error
}

// Loopback is the in-process mesh transport: every rank of the job lives
// in the same process (one goroutine per rank), so collectives reduce to
// synchronized buffer exchange. Reduction is always evaluated in ascending
// rank order, so every member observes a bit-identical result.
type Loopback struct {
	mu     sync.Mutex
	seqs   map[string]uint64
	rounds map[string]*round
}

func NewLoopback() *Loopback {
	return &Loopback{
		seqs:   make(map[string]uint64),
		rounds: make(map[string]*round),
	}
}

func (lb *Loopback) AllReduce(token string, rank, size int, payload []byte, t base.DataType, op base.Op) error {
	r := lb.join(token, rank, size)
	res := r.exchange(rank, payload, func(bufs [][]byte) []byte {
		out := make([]byte, len(bufs[0]))
		copy(out, bufs[0])
		count := len(out) / t.Size()
		for i := 1; i < len(bufs); i++ {
			base.TransformBytes(out, bufs[i], count, t, op)
		}
		return out
	})
	copy(payload, res)
	return nil
}

func (lb *Loopback) Broadcast(token string, rank, size, root int, payload []byte) error {
	r := lb.join(token, rank, size)
	res := r.exchange(rank, payload, func(bufs [][]byte) []byte {
		return bufs[root]
	})
	copy(payload, res)
	return nil
}

// join finds the round for this rank's next collective on token. Rounds
// are matched purely by per-token call order.
func (lb *Loopback) join(token string, rank, size int) *round {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	seqKey := fmt.Sprintf("%s/%d", token, rank)
	n := lb.seqs[seqKey]
	lb.seqs[seqKey] = n + 1
	key := fmt.Sprintf("%s#%d", token, n)
	r, ok := lb.rounds[key]
	if !ok {
		r = newRound(size, func() { lb.remove(key) })
		lb.rounds[key] = r
	}
	if r.size != size {
		panic(fmt.Sprintf("loopback: size mismatch on %s: %d vs %d", key, r.size, size))
	}
	return r
}

func (lb *Loopback) remove(key string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	delete(lb.rounds, key)
}

// round is one collective call in flight: a barrier at which every member
// deposits its buffer, one member combines, and all members pick up the
// result.
type round struct {
	mu       sync.Mutex
	cond     *sync.Cond
	size     int
	bufs     [][]byte
	arrived  int
	released int
	result   []byte
	done     bool
	retire   func()
}

func newRound(size int, retire func()) *round {
	r := &round{
		size:   size,
		bufs:   make([][]byte, size),
		retire: retire,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *round) exchange(rank int, payload []byte, combine func([][]byte) []byte) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rank < 0 || rank >= r.size || r.bufs[rank] != nil {
		panic(fmt.Sprintf("loopback: invalid or duplicate rank %d in round of %d", rank, r.size))
	}
	for i := 0; i < r.size; i++ {
		if r.bufs[i] != nil && len(r.bufs[i]) != len(payload) {
			panic(fmt.Sprintf("loopback: payload size mismatch: %d vs %d", len(r.bufs[i]), len(payload)))
		}
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	r.bufs[rank] = buf
	r.arrived++
	if r.arrived == r.size {
		r.result = combine(r.bufs)
		r.done = true
		r.cond.Broadcast()
	} else {
		for !r.done {
			r.cond.Wait()
		}
	}
	r.released++
	if r.released == r.size {
		r.retire()
	}
	return r.result
}
