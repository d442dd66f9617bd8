// Package base defines the closed set of element datatypes and reduction
// operators, and the Buffer view type every collective operates on.
package base

type DataType int

const (
	Invalid DataType = iota

	U8
	I8
	I32
	I64

	F16
	F32
	F64
)

var dtypeSizes = map[DataType]int{
	U8:  1,
	I8:  1,
	I32: 4,
	I64: 8,

	F16: 2,
	F32: 4,
	F64: 8,
}

// Size returns the element size in bytes.
func (t DataType) Size() int {
	return dtypeSizes[t]
}

var dtypeNames = map[DataType]string{
	U8:  "u8",
	I8:  "i8",
	I32: "i32",
	I64: "i64",

	F16: "f16",
	F32: "f32",
	F64: "f64",
}

func (t DataType) String() string {
	return dtypeNames[t]
}

func (t DataType) IsFloat() bool {
	return t == F16 || t == F32 || t == F64
}
