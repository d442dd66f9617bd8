// Package comm implements communicators over the three topology scopes and
// the collective operations issued against them.
package comm

import (
	"k8s.io/klog/v2"

	"github.com/tensormesh/tensormesh/device"
	"github.com/tensormesh/tensormesh/plan"
	"github.com/tensormesh/tensormesh/store"
)

// Communicator identifies one communication scope of one process. All
// members of a scope share the same Token, obtained via rendezvous.
type Communicator struct {
	Scope  plan.Scope
	Rank   int
	Size   int
	Device device.Device
	Token  string

	// Stream is the dedicated communication stream collectives execute on.
	Stream *device.Stream

	transport Transport
}

// NewCommunicator runs the rendezvous exchange for the given scope and binds
// a communicator to the calling process's device and stream.
//
// Every process of the job must call this for every scope, members and
// non-members alike: the exchange doubles as the scope's init barrier.
// Non-members get a nil communicator and no error.
func NewCommunicator(ss plan.ScopeSpec, globalRank int, dev device.Device, stream *device.Stream, tr Transport, st store.Store) (*Communicator, error) {
	key := plan.RendezvousKey(ss.Scope, ss.Root)
	token, err := PublishOrFetch(st, key, globalRank == ss.Root)
	if err != nil {
		return nil, err
	}
	if !ss.Member {
		return nil, nil
	}
	c := &Communicator{
		Scope:     ss.Scope,
		Rank:      ss.Rank,
		Size:      ss.Size,
		Device:    dev,
		Token:     token,
		Stream:    stream,
		transport: tr,
	}
	klog.V(1).Infof("%s communicator ready, global rank %d, rank %d/%d", ss.Scope, globalRank, c.Rank, c.Size)
	return c, nil
}
