package comm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tensormesh/tensormesh/base"
)

// Coalesce packs the contents of bufs, in order, into one freshly
// allocated buffer on their shared device. Content is packed by element
// count, not allocated count: per-buffer padding does not travel.
//
// All inputs must reside on the same non-host device and share one dtype.
func Coalesce(bufs []*base.Buffer) (*base.Buffer, error) {
	if len(bufs) == 0 {
		return nil, errors.New("coalesce: empty buffer list")
	}
	dev := bufs[0].Device()
	t := bufs[0].Type
	total := 0
	for _, b := range bufs {
		if b.Device().IsHost() || b.Device() != dev {
			return nil, errors.Wrapf(base.ErrInvalidDevice, "coalesce: %s vs %s", b.Device(), dev)
		}
		if b.Type != t {
			return nil, errors.Errorf("coalesce: mixed dtypes %s and %s in one call", t, b.Type)
		}
		total += b.Count
	}
	out := base.Alloc(dev, total, t)
	off := 0
	for _, b := range bufs {
		copy(out.Slice(off, off+b.Count).Bytes(), b.Bytes())
		off += b.Count
	}
	return out, nil
}

// Scatter copies each buffer's slice of the coalesced buffer back into its
// original storage. bufs must be the exact list Coalesce was called with;
// a count mismatch is a programming error.
//
// Scatter(Coalesce(bufs), bufs) with no mutation in between restores every
// buffer bit-for-bit.
func Scatter(coalesced *base.Buffer, bufs []*base.Buffer) {
	total := 0
	for _, b := range bufs {
		total += b.Count
	}
	if total != coalesced.Count {
		panic(fmt.Sprintf("scatter: %d coalesced elements for %d buffer elements", coalesced.Count, total))
	}
	off := 0
	for _, b := range bufs {
		copy(b.Bytes(), coalesced.Slice(off, off+b.Count).Bytes())
		off += b.Count
	}
}
