// Package fuse groups optimizer parameters whose backing storage is
// contiguous into single spanning views, so a wrapped optimizer performs
// one update per run instead of one per parameter.
package fuse

import (
	"sort"
	"strings"

	"github.com/tensormesh/tensormesh/base"
	"github.com/tensormesh/tensormesh/device"
)

// Parameter is one trainable tensor: its value buffer and, when present,
// its gradient buffer. Value and Grad always have equal element counts.
type Parameter struct {
	Name  string
	Value *base.Buffer
	Grad  *base.Buffer
}

// Group is one parameter group as the wrapped optimizer defines it.
type Group struct {
	Params []*Parameter
}

// Optimizer is the contract of the wrapped optimizer: the fused wrapper
// rewrites the groups' parameter lists and then delegates the step.
type Optimizer interface {
	Groups() []*Group
	Step() error
}

// Regroup partitions params by backing allocation, orders each partition
// by storage offset and collapses every maximal contiguous run into one
// spanning parameter view. Non-contiguous parameters pass through as
// singletons. The input is not modified.
func Regroup(params []*Parameter) []*Parameter {
	var out []*Parameter
	for _, part := range partitionByAllocation(params) {
		out = append(out, mergeRuns(part)...)
	}
	return out
}

// partitionByAllocation maps allocation identity to the parameters backed
// by it, preserving first-encounter order for determinism.
func partitionByAllocation(params []*Parameter) [][]*Parameter {
	idx := make(map[*device.Allocation]int)
	var parts [][]*Parameter
	for _, p := range params {
		a := p.Value.Allocation()
		i, ok := idx[a]
		if !ok {
			i = len(parts)
			idx[a] = i
			parts = append(parts, nil)
		}
		parts[i] = append(parts[i], p)
	}
	return parts
}

func mergeRuns(params []*Parameter) []*Parameter {
	sorted := make([]*Parameter, len(params))
	copy(sorted, params)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value.Offset() < sorted[j].Value.Offset()
	})

	var out []*Parameter
	var run []*Parameter
	for _, p := range sorted {
		if len(run) > 0 && !contiguous(run[len(run)-1], p) {
			out = append(out, collocate(run))
			run = nil
		}
		run = append(run, p)
	}
	if len(run) > 0 {
		out = append(out, collocate(run))
	}
	return out
}

// contiguous reports whether b directly follows a in storage. Both the
// value and the gradient buffer must be adjacent by a's allocated element
// count; a partial match does not merge.
func contiguous(a, b *Parameter) bool {
	if a.Grad == nil || b.Grad == nil {
		return false
	}
	if b.Grad.Allocation() != a.Grad.Allocation() {
		return false
	}
	return b.Value.Offset() == a.Value.Offset()+a.Value.Cap &&
		b.Grad.Offset() == a.Grad.Offset()+a.Value.Cap
}

// collocate collapses a contiguous run into one parameter whose value and
// gradient views span the whole run, padding included.
func collocate(run []*Parameter) *Parameter {
	if len(run) == 1 {
		return run[0]
	}
	first, last := run[0], run[len(run)-1]
	count := last.Value.Offset() + last.Value.Count - first.Value.Offset()
	capacity := last.Value.Offset() + last.Value.Cap - first.Value.Offset()
	names := make([]string, 0, len(run))
	for _, p := range run {
		names = append(names, p.Name)
	}
	return &Parameter{
		Name:  strings.Join(names, "+"),
		Value: base.NewBuffer(first.Value.Allocation(), first.Value.Offset(), count, capacity, first.Value.Type),
		Grad:  base.NewBuffer(first.Grad.Allocation(), first.Grad.Offset(), count, capacity, first.Grad.Type),
	}
}
