package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/device"
)

func TestBufferView(t *testing.T) {
	dev := device.Accel(0)
	alloc := device.Malloc(dev, 10*F32.Size())

	b := NewBuffer(alloc, 2, 4, 6, F32)
	assert.Equal(t, 2, b.Offset())
	assert.Equal(t, 4, b.Count)
	assert.Equal(t, 6, b.Cap)
	assert.Equal(t, dev, b.Device())
	assert.Len(t, b.Bytes(), 4*F32.Size())
	assert.Same(t, alloc, b.Allocation())
}

func TestBufferViewOutOfRangePanics(t *testing.T) {
	alloc := device.Malloc(device.Accel(0), 8)
	require.Panics(t, func() { NewBuffer(alloc, 0, 3, 3, F32) })
	require.Panics(t, func() { NewBuffer(alloc, 0, 2, 1, F32) })
}

func TestBufferSliceAliasesStorage(t *testing.T) {
	b := Alloc(device.Accel(0), 6, I32)
	for i := range b.AsI32() {
		b.AsI32()[i] = int32(i)
	}
	s := b.Slice(2, 5)
	assert.Equal(t, []int32{2, 3, 4}, s.AsI32())

	s.AsI32()[0] = 42
	assert.Equal(t, int32(42), b.AsI32()[2])

	require.Panics(t, func() { b.Slice(4, 7) })
}

func TestBufferCopyFrom(t *testing.T) {
	dev := device.Accel(0)
	a := Alloc(dev, 3, F64)
	b := Alloc(dev, 3, F64)
	copy(a.AsF64(), []float64{1, 2, 3})
	require.NoError(t, b.CopyFrom(a))
	assert.Equal(t, []float64{1, 2, 3}, b.AsF64())

	c := Alloc(dev, 2, F64)
	require.Error(t, c.CopyFrom(a))
	d := Alloc(dev, 3, F32)
	require.Error(t, d.CopyFrom(a))
}

func TestDataTypeSizes(t *testing.T) {
	sizes := map[DataType]int{U8: 1, I8: 1, I32: 4, I64: 8, F16: 2, F32: 4, F64: 8}
	for dt, n := range sizes {
		assert.Equal(t, n, dt.Size(), dt.String())
	}
	assert.True(t, F16.IsFloat())
	assert.False(t, I64.IsFloat())
}
