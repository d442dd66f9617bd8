package base

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"
)

type Op int

const (
	SUM Op = iota
	PROD
	MIN
	MAX
)

var opNames = map[Op]string{
	SUM:  "sum",
	PROD: "prod",
	MIN:  "min",
	MAX:  "max",
}

func (o Op) String() string {
	return opNames[o]
}

// Transform performs y[i] = op(y[i], x[i]) elementwise.
// Count and type of both buffers must be consistent.
func Transform(y, x *Buffer, op Op) {
	if y.Count != x.Count || y.Type != x.Type {
		panic(fmt.Sprintf("transform: inconsistent operands: %d %s vs %d %s", y.Count, y.Type, x.Count, x.Type))
	}
	TransformBytes(y.Bytes(), x.Bytes(), y.Count, y.Type, op)
}

// TransformBytes performs y[i] = op(y[i], x[i]) over count elements of
// type t stored in raw byte slices.
func TransformBytes(y, x []byte, count int, t DataType, op Op) {
	if count == 0 {
		return
	}
	switch t {
	case U8:
		transformSlice(viewAs[uint8](y, count), viewAs[uint8](x, count), op)
	case I8:
		transformSlice(viewAs[int8](y, count), viewAs[int8](x, count), op)
	case I32:
		transformSlice(viewAs[int32](y, count), viewAs[int32](x, count), op)
	case I64:
		transformSlice(viewAs[int64](y, count), viewAs[int64](x, count), op)
	case F16:
		ys, xs := viewAs[uint16](y, count), viewAs[uint16](x, count)
		for i := range ys {
			a := float16.Frombits(ys[i]).Float32()
			b := float16.Frombits(xs[i]).Float32()
			ys[i] = float16.Fromfloat32(apply(a, b, op)).Bits()
		}
	case F32:
		transformSlice(viewAs[float32](y, count), viewAs[float32](x, count), op)
	case F64:
		transformSlice(viewAs[float64](y, count), viewAs[float64](x, count), op)
	default:
		panic("transform: invalid data type")
	}
}

// Scale1N divides every element of x by n, in the buffer's own dtype.
// No higher-precision accumulation is attempted for F16.
func Scale1N(x *Buffer, n int) {
	ScaleBytes1N(x.Bytes(), x.Count, x.Type, n)
}

// ScaleBytes1N divides count elements of type t by n in place.
func ScaleBytes1N(bs []byte, count int, t DataType, n int) {
	if count == 0 {
		return
	}
	switch t {
	case U8:
		scaleSlice(viewAs[uint8](bs, count), uint8(n))
	case I8:
		scaleSlice(viewAs[int8](bs, count), int8(n))
	case I32:
		scaleSlice(viewAs[int32](bs, count), int32(n))
	case I64:
		scaleSlice(viewAs[int64](bs, count), int64(n))
	case F16:
		xs := viewAs[uint16](bs, count)
		for i := range xs {
			xs[i] = float16.Fromfloat32(float16.Frombits(xs[i]).Float32() / float32(n)).Bits()
		}
	case F32:
		scaleSlice(viewAs[float32](bs, count), float32(n))
	case F64:
		scaleSlice(viewAs[float64](bs, count), float64(n))
	default:
		panic("scale: invalid data type")
	}
}

type number interface {
	~int8 | ~uint8 | ~int32 | ~int64 | ~float32 | ~float64
}

func transformSlice[T number](y, x []T, op Op) {
	switch op {
	case SUM:
		for i := range y {
			y[i] += x[i]
		}
	case PROD:
		for i := range y {
			y[i] *= x[i]
		}
	case MIN:
		for i := range y {
			if x[i] < y[i] {
				y[i] = x[i]
			}
		}
	case MAX:
		for i := range y {
			if x[i] > y[i] {
				y[i] = x[i]
			}
		}
	}
}

func scaleSlice[T number](x []T, n T) {
	for i := range x {
		x[i] /= n
	}
}

func apply(a, b float32, op Op) float32 {
	switch op {
	case SUM:
		return a + b
	case PROD:
		return a * b
	case MIN:
		if b < a {
			return b
		}
		return a
	case MAX:
		if b > a {
			return b
		}
		return a
	}
	return a
}

func viewAs[T any](bs []byte, count int) []T {
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&bs[0])), count)
}
