package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/tensormesh/tensormesh/device"
)

func f32Buffer(t *testing.T, dev device.Device, xs ...float32) *Buffer {
	t.Helper()
	b := Alloc(dev, len(xs), F32)
	copy(b.AsF32(), xs)
	return b
}

func TestTransform(t *testing.T) {
	dev := device.Accel(0)

	y := f32Buffer(t, dev, 1, 2, 3)
	x := f32Buffer(t, dev, 10, -1, 0.5)

	Transform(y, x, SUM)
	assert.Equal(t, []float32{11, 1, 3.5}, y.AsF32())

	Transform(y, x, MIN)
	assert.Equal(t, []float32{10, -1, 0.5}, y.AsF32())

	Transform(y, x, MAX)
	assert.Equal(t, []float32{10, -1, 0.5}, y.AsF32())

	Transform(y, x, PROD)
	assert.Equal(t, []float32{100, 1, 0.25}, y.AsF32())
}

func TestTransformInt(t *testing.T) {
	dev := device.Accel(0)
	y := Alloc(dev, 4, I32)
	x := Alloc(dev, 4, I32)
	copy(y.AsI32(), []int32{1, 2, 3, 4})
	copy(x.AsI32(), []int32{4, 3, 2, 1})
	Transform(y, x, SUM)
	assert.Equal(t, []int32{5, 5, 5, 5}, y.AsI32())
}

func TestTransformF16(t *testing.T) {
	dev := device.Accel(0)
	y := Alloc(dev, 2, F16)
	x := Alloc(dev, 2, F16)
	y.AsF16()[0] = float16.Fromfloat32(1.5).Bits()
	y.AsF16()[1] = float16.Fromfloat32(-2).Bits()
	x.AsF16()[0] = float16.Fromfloat32(0.5).Bits()
	x.AsF16()[1] = float16.Fromfloat32(2).Bits()
	Transform(y, x, SUM)
	assert.Equal(t, float32(2), float16.Frombits(y.AsF16()[0]).Float32())
	assert.Equal(t, float32(0), float16.Frombits(y.AsF16()[1]).Float32())
}

func TestScale1N(t *testing.T) {
	dev := device.Accel(0)
	x := f32Buffer(t, dev, 2, 4, 6)
	Scale1N(x, 2)
	assert.Equal(t, []float32{1, 2, 3}, x.AsF32())

	h := Alloc(dev, 1, F16)
	h.AsF16()[0] = float16.Fromfloat32(3).Bits()
	Scale1N(h, 2)
	assert.Equal(t, float32(1.5), float16.Frombits(h.AsF16()[0]).Float32())
}

func TestTransformMismatchPanics(t *testing.T) {
	dev := device.Accel(0)
	y := Alloc(dev, 2, F32)
	x := Alloc(dev, 3, F32)
	require.Panics(t, func() { Transform(y, x, SUM) })
}
