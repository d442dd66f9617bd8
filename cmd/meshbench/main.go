// meshbench runs every rank of a job as a goroutine of one process, over
// the in-process store and loopback transport, and measures coalesced
// all-reduce throughput.
package main

import (
	"flag"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tensormesh/tensormesh/base"
	"github.com/tensormesh/tensormesh/comm"
	"github.com/tensormesh/tensormesh/device"
	"github.com/tensormesh/tensormesh/plan"
	"github.com/tensormesh/tensormesh/store"
)

var (
	np      = flag.Int("np", 4, "number of in-process ranks")
	local   = flag.Int("local", 0, "ranks per simulated node (0 = all ranks on one node)")
	count   = flag.Int("count", 1<<20, "elements per tensor")
	tensors = flag.Int("tensors", 8, "tensors per coalesced call")
	rounds  = flag.Int("rounds", 10, "all-reduce rounds")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	l := *local
	if l == 0 {
		l = *np
	}
	st := store.NewMem()
	tr := comm.NewLoopback()
	g := new(errgroup.Group)
	for rank := 0; rank < *np; rank++ {
		rank := rank
		g.Go(func() error { return runRank(rank, *np, l, st, tr) })
	}
	if err := g.Wait(); err != nil {
		klog.Fatalf("meshbench: %v", err)
	}
}

func runRank(rank, world, local int, st store.Store, tr comm.Transport) error {
	topo, err := plan.NewTopology(rank, world, local, 0)
	if err != nil {
		return err
	}
	dev := device.Accel(rank)
	stream := device.NewStream(dev, device.HighPriority)
	if _, err := comm.NewCommunicator(topo.Inter, rank, dev, stream, tr, st); err != nil {
		return err
	}
	if _, err := comm.NewCommunicator(topo.Intra, rank, dev, stream, tr, st); err != nil {
		return err
	}
	global, err := comm.NewCommunicator(topo.Global, rank, dev, stream, tr, st)
	if err != nil {
		return err
	}

	ts := make([]*base.Buffer, *tensors)
	for i := range ts {
		ts[i] = base.Alloc(dev, *count, base.F32)
		xs := ts[i].AsF32()
		for j := range xs {
			xs[j] = float32(rank + 1)
		}
	}

	t0 := time.Now()
	for r := 0; r < *rounds; r++ {
		if err := comm.AllReduceCoalesced(ts, true, global); err != nil {
			return err
		}
	}
	d := time.Since(t0)
	if rank == 0 {
		moved := int64(*rounds) * int64(*tensors) * int64(*count) * int64(base.F32.Size())
		fmt.Printf("allreduce x%d, %d tensors x %d elems: %s (%.2f GiB/s)\n",
			*rounds, *tensors, *count, d, float64(moved)/d.Seconds()/(1<<30))
	}
	return nil
}
