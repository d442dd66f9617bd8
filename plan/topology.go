// Package plan derives the three communicator scopes of a process from its
// position in the flat global rank space.
package plan

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrConfiguration reports an invalid rank space layout.
var ErrConfiguration = errors.New("invalid communicator configuration")

type Scope int

const (
	Global Scope = iota
	IntraNode
	InterNode
)

var scopeKeys = map[Scope]string{
	Global:    "mesh_global_comm",
	IntraNode: "mesh_intra_comm",
	InterNode: "mesh_inter_comm",
}

func (s Scope) String() string {
	return scopeKeys[s]
}

// RendezvousKey is the store key under which the scope root publishes the
// communicator identity token.
func RendezvousKey(s Scope, root int) string {
	return fmt.Sprintf("%s-%d-unique_id", s, root)
}

// ScopeSpec places one process inside one communicator scope.
// Root is the global rank that generates the scope's identity token.
// A process with Member == false performs the rendezvous exchange but
// holds no communicator for the scope.
type ScopeSpec struct {
	Scope  Scope
	Rank   int
	Size   int
	Root   int
	Member bool
}

// Topology holds the scope placement of one process.
type Topology struct {
	Global ScopeSpec
	Intra  ScopeSpec
	Inter  ScopeSpec
}

// NewTopology derives the three scopes for global rank rank out of world
// processes grouped into nodes of local processes each. leaderOffset selects
// which local rank on every node joins the inter-node scope.
//
// All nodes are assumed to run the same number of processes; world must be
// evenly divisible by local.
func NewTopology(rank, world, local, leaderOffset int) (*Topology, error) {
	if world < 1 || local < 1 {
		return nil, errors.Wrapf(ErrConfiguration, "world size %d, local size %d", world, local)
	}
	if rank < 0 || rank >= world {
		return nil, errors.Wrapf(ErrConfiguration, "rank %d out of [0, %d)", rank, world)
	}
	if world%local != 0 {
		return nil, errors.Wrapf(ErrConfiguration, "world size %d not divisible by local size %d", world, local)
	}
	if leaderOffset < 0 || leaderOffset >= local {
		return nil, errors.Wrapf(ErrConfiguration, "leader offset %d out of [0, %d)", leaderOffset, local)
	}
	return &Topology{
		Global: ScopeSpec{
			Scope:  Global,
			Rank:   rank,
			Size:   world,
			Root:   0,
			Member: true,
		},
		Intra: ScopeSpec{
			Scope:  IntraNode,
			Rank:   rank % local,
			Size:   local,
			Root:   rank / local * local,
			Member: true,
		},
		Inter: ScopeSpec{
			Scope:  InterNode,
			Rank:   rank / local,
			Size:   world / local,
			Root:   leaderOffset,
			Member: rank%local == leaderOffset,
		},
	}, nil
}
