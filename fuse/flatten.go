package fuse

import (
	"github.com/tensormesh/tensormesh/base"
	"github.com/tensormesh/tensormesh/device"
)

// Flatten physically relocates parameters into one fresh allocation per
// floating-point dtype class (values and gradients separately), after
// which most parameters are naturally contiguous and per-step regrouping
// becomes a cheap confirmation pass. It runs once, at construction time.
//
// Only accelerator-resident F32 and F16 parameters participate; everything
// else keeps its storage.
func Flatten(params []*Parameter) {
	for _, t := range []base.DataType{base.F32, base.F16} {
		var class []*Parameter
		for _, p := range params {
			if p.Value.Type == t && !p.Value.Device().IsHost() {
				class = append(class, p)
			}
		}
		flattenClass(class, t)
	}
}

func flattenClass(params []*Parameter, t base.DataType) {
	if len(params) < 2 {
		return
	}
	total := 0
	for _, p := range params {
		total += p.Value.Cap
	}
	dev := params[0].Value.Device()
	valAlloc := device.Malloc(dev, total*t.Size())
	gradAlloc := device.Malloc(dev, total*t.Size())
	off := 0
	for _, p := range params {
		v := base.NewBuffer(valAlloc, off, p.Value.Count, p.Value.Cap, t)
		copy(v.Bytes(), p.Value.Bytes())
		p.Value = v
		if p.Grad != nil {
			g := base.NewBuffer(gradAlloc, off, p.Grad.Count, p.Grad.Cap, t)
			copy(g.Bytes(), p.Grad.Bytes())
			p.Grad = g
		}
		off += p.Value.Cap
	}
}
