package device

// Allocation is one contiguous memory region owned by a device.
// Buffers reference allocations by (offset, count); an allocation never
// moves during its lifetime.
type Allocation struct {
	dev  Device
	data []byte
}

// Malloc allocates n bytes on dev.
func Malloc(dev Device, n int) *Allocation {
	return &Allocation{
		dev:  dev,
		data: make([]byte, n),
	}
}

func (a *Allocation) Device() Device {
	return a.dev
}

func (a *Allocation) Size() int {
	return len(a.data)
}

// Bytes exposes the backing region. Callers must respect stream ordering
// when the device is an accelerator.
func (a *Allocation) Bytes() []byte {
	return a.data
}
