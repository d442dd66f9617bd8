// Package device models the accelerator execution environment the collective
// engine runs against: devices, memory allocations and asynchronous execution
// streams with event-based ordering.
package device

import "fmt"

type Class int

const (
	Host Class = iota
	Accelerator
)

var classNames = map[Class]string{
	Host:        "host",
	Accelerator: "accel",
}

func (c Class) String() string {
	return classNames[c]
}

// Device identifies one execution device of a process.
type Device struct {
	ID    int
	Class Class
}

// CPU is the host device.
var CPU = Device{ID: -1, Class: Host}

// Accel returns the accelerator device with the given ordinal.
func Accel(id int) Device {
	return Device{ID: id, Class: Accelerator}
}

func (d Device) IsHost() bool {
	return d.Class == Host
}

func (d Device) String() string {
	if d.IsHost() {
		return "host"
	}
	return fmt.Sprintf("%s:%d", d.Class, d.ID)
}
