package base

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tensormesh/tensormesh/device"
)

// ErrInvalidDevice reports a host-resident buffer passed to a device-only
// operation, or a device mismatch within one call.
var ErrInvalidDevice = errors.New("buffer not resident on a matching accelerator device")

// Buffer describes a typed region of a device allocation for the duration
// of one operation. It never owns the memory it points into.
//
// Cap is the allocated element count; Cap >= Count and the padding
// (Cap - Count) belongs to the buffer for contiguity purposes but carries
// no data.
type Buffer struct {
	alloc *device.Allocation
	off   int // element offset into alloc

	Count int
	Cap   int
	Type  DataType
}

// NewBuffer builds a view of count elements of type t starting at element
// offset off of alloc, with cap allocated elements.
func NewBuffer(alloc *device.Allocation, off, count, cap int, t DataType) *Buffer {
	if count < 0 || cap < count || (off+cap)*t.Size() > alloc.Size() {
		panic(fmt.Sprintf("buffer view out of range: off=%d count=%d cap=%d alloc=%dB", off, count, cap, alloc.Size()))
	}
	return &Buffer{alloc: alloc, off: off, Count: count, Cap: cap, Type: t}
}

// Alloc allocates a fresh buffer of count elements of type t on dev.
func Alloc(dev device.Device, count int, t DataType) *Buffer {
	return NewBuffer(device.Malloc(dev, count*t.Size()), 0, count, count, t)
}

func (b *Buffer) Device() device.Device {
	return b.alloc.Device()
}

func (b *Buffer) Allocation() *device.Allocation {
	return b.alloc
}

// Offset is the element offset of the view into its allocation.
func (b *Buffer) Offset() int {
	return b.off
}

// Bytes returns the Count elements of the view as raw bytes.
func (b *Buffer) Bytes() []byte {
	s := b.Type.Size()
	return b.alloc.Bytes()[b.off*s : (b.off+b.Count)*s]
}

// Slice returns a view of elements [begin, end) of b.
func (b *Buffer) Slice(begin, end int) *Buffer {
	if begin < 0 || end < begin || end > b.Count {
		panic(fmt.Sprintf("buffer slice out of range: [%d, %d) of %d", begin, end, b.Count))
	}
	return &Buffer{
		alloc: b.alloc,
		off:   b.off + begin,
		Count: end - begin,
		Cap:   end - begin,
		Type:  b.Type,
	}
}

func (b *Buffer) CopyFrom(c *Buffer) error {
	if b.Count != c.Count {
		return errors.Errorf("buffer copy: inconsistent count: %d vs %d", b.Count, c.Count)
	}
	if b.Type != c.Type {
		return errors.Errorf("buffer copy: inconsistent type: %s vs %s", b.Type, c.Type)
	}
	copy(b.Bytes(), c.Bytes())
	return nil
}

func (b *Buffer) AsU8() []uint8 {
	b.mustBe(U8)
	return viewAs[uint8](b.Bytes(), b.Count)
}

func (b *Buffer) AsI8() []int8 {
	b.mustBe(I8)
	return viewAs[int8](b.Bytes(), b.Count)
}

func (b *Buffer) AsI32() []int32 {
	b.mustBe(I32)
	return viewAs[int32](b.Bytes(), b.Count)
}

func (b *Buffer) AsI64() []int64 {
	b.mustBe(I64)
	return viewAs[int64](b.Bytes(), b.Count)
}

// AsF16 exposes F16 elements as raw IEEE 754 half-precision bits.
func (b *Buffer) AsF16() []uint16 {
	b.mustBe(F16)
	return viewAs[uint16](b.Bytes(), b.Count)
}

func (b *Buffer) AsF32() []float32 {
	b.mustBe(F32)
	return viewAs[float32](b.Bytes(), b.Count)
}

func (b *Buffer) AsF64() []float64 {
	b.mustBe(F64)
	return viewAs[float64](b.Bytes(), b.Count)
}

func (b *Buffer) mustBe(t DataType) {
	if b.Type != t {
		panic(fmt.Sprintf("buffer is %s, not %s", b.Type, t))
	}
}
