package fuse

// FusedOptimizer wraps any Optimizer and fuses its parameter updates.
// Grouping is recomputed on every step rather than cached, because
// parameter storage may be reassigned between steps.
type FusedOptimizer struct {
	inner Optimizer
}

type OptimizerOption func(*optimizerOptions)

type optimizerOptions struct {
	flatten bool
}

// WithFlatten runs the one-time Flatten pre-pass over all parameters at
// construction.
func WithFlatten() OptimizerOption {
	return func(o *optimizerOptions) { o.flatten = true }
}

func NewFusedOptimizer(inner Optimizer, opts ...OptimizerOption) *FusedOptimizer {
	var o optimizerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.flatten {
		var all []*Parameter
		for _, g := range inner.Groups() {
			all = append(all, g.Params...)
		}
		Flatten(all)
	}
	return &FusedOptimizer{inner: inner}
}

// Groups exposes the wrapped optimizer's groups, so fused optimizers nest.
func (f *FusedOptimizer) Groups() []*Group {
	return f.inner.Groups()
}

// Step replaces every group's parameter list with the fused views and
// delegates to the wrapped optimizer.
func (f *FusedOptimizer) Step() error {
	for _, g := range f.inner.Groups() {
		g.Params = Regroup(g.Params)
	}
	return f.inner.Step()
}
