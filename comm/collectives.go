package comm

import (
	"github.com/pkg/errors"

	"github.com/tensormesh/tensormesh/base"
	"github.com/tensormesh/tensormesh/device"
)

// Every collective follows the same call shape: validate inputs, order the
// communicator stream after the device's current compute stream, execute on
// the communicator stream, then synchronize before returning. The call is
// observably blocking even though the work overlaps internally.

// Broadcast copies root's buffer content to every member of c, in place.
func Broadcast(t *base.Buffer, root int, c *Communicator) error {
	if err := validate(c, root, t); err != nil {
		return err
	}
	var opErr error
	orderAfterCompute(c, t.Device())
	c.Stream.Do(func() {
		opErr = c.transport.Broadcast(c.Token, c.Rank, c.Size, root, t.Bytes())
	})
	synchronize(c, t.Device())
	return opErr
}

// BroadcastCoalesced broadcasts a batch of buffers as one coalesced
// transfer, then scatters the result back into the originals.
func BroadcastCoalesced(ts []*base.Buffer, root int, c *Communicator) error {
	if err := validate(c, root, ts...); err != nil {
		return err
	}
	var opErr error
	orderAfterCompute(c, ts[0].Device())
	c.Stream.Do(func() {
		coalesced, err := Coalesce(ts)
		if err != nil {
			opErr = err
			return
		}
		if err := c.transport.Broadcast(c.Token, c.Rank, c.Size, root, coalesced.Bytes()); err != nil {
			opErr = err
			return
		}
		Scatter(coalesced, ts)
	})
	synchronize(c, ts[0].Device())
	return opErr
}

// AllReduce sums the buffer elementwise across every member of c, in
// place; the summed result is bit-identical on every member. With average
// set, each member then divides its local copy by the communicator size.
func AllReduce(t *base.Buffer, average bool, c *Communicator) error {
	if err := validate(c, 0, t); err != nil {
		return err
	}
	var opErr error
	orderAfterCompute(c, t.Device())
	c.Stream.Do(func() {
		if err := c.transport.AllReduce(c.Token, c.Rank, c.Size, t.Bytes(), t.Type, base.SUM); err != nil {
			opErr = err
			return
		}
		if average {
			base.Scale1N(t, c.Size)
		}
	})
	synchronize(c, t.Device())
	return opErr
}

// AllReduceCoalesced all-reduces a batch of buffers as one coalesced
// transfer; averaging is applied to the coalesced buffer before the
// scatter.
func AllReduceCoalesced(ts []*base.Buffer, average bool, c *Communicator) error {
	if err := validate(c, 0, ts...); err != nil {
		return err
	}
	var opErr error
	orderAfterCompute(c, ts[0].Device())
	c.Stream.Do(func() {
		coalesced, err := Coalesce(ts)
		if err != nil {
			opErr = err
			return
		}
		if err := c.transport.AllReduce(c.Token, c.Rank, c.Size, coalesced.Bytes(), coalesced.Type, base.SUM); err != nil {
			opErr = err
			return
		}
		if average {
			base.Scale1N(coalesced, c.Size)
		}
		Scatter(coalesced, ts)
	})
	synchronize(c, ts[0].Device())
	return opErr
}

// validate rejects every error condition before any communication is
// issued, so a failed call performs no partial transfer.
func validate(c *Communicator, root int, ts ...*base.Buffer) error {
	if c == nil {
		return errors.Wrap(ErrNotInitialized, "no communicator resolved for this rank")
	}
	if root < 0 || root >= c.Size {
		return errors.Errorf("root %d out of [0, %d)", root, c.Size)
	}
	if len(ts) == 0 {
		return errors.New("empty buffer list")
	}
	dev := ts[0].Device()
	t := ts[0].Type
	for _, b := range ts {
		if b.Device().IsHost() {
			return errors.Wrap(base.ErrInvalidDevice, "input buffers must be device resident")
		}
		if b.Device() != dev {
			return errors.Wrapf(base.ErrInvalidDevice, "%s vs %s in one call", b.Device(), dev)
		}
		if b.Type != t {
			return errors.Errorf("mixed dtypes %s and %s in one call", t, b.Type)
		}
	}
	return nil
}

// orderAfterCompute records a dependency event on the device's current
// compute stream and makes the communicator stream wait on it: in-flight
// compute producing the data completes before communication reads it,
// while unrelated work on either stream still overlaps.
func orderAfterCompute(c *Communicator, dev device.Device) {
	ev := device.Current(dev).RecordEvent()
	c.Stream.WaitEvent(ev)
}

// synchronize joins the communicator stream (and the compute stream it
// ordered against) before the collective returns to the caller.
func synchronize(c *Communicator, dev device.Device) {
	c.Stream.Synchronize()
	device.Current(dev).Synchronize()
}
