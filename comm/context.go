package comm

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/tensormesh/tensormesh/autotune"
	"github.com/tensormesh/tensormesh/device"
	"github.com/tensormesh/tensormesh/env"
	"github.com/tensormesh/tensormesh/plan"
	"github.com/tensormesh/tensormesh/store"
)

// Config is the process placement read once at initialization.
type Config struct {
	Rank       int
	WorldSize  int
	LocalRank  int
	LocalSize  int
	MasterAddr string

	ServicePort int
	BucketBytes int

	// LeaderOffset selects which local rank joins the inter-node scope.
	LeaderOffset int
}

// ConfigFromEnv builds the Config from the launcher-provided environment.
func ConfigFromEnv() (Config, error) {
	e, err := env.FromEnv()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Rank:        e.Rank,
		WorldSize:   e.WorldSize,
		LocalRank:   e.LocalRank,
		LocalSize:   e.LocalSize,
		MasterAddr:  e.MasterAddr,
		ServicePort: e.ServicePort,
		BucketBytes: e.BucketBytes,
	}, nil
}

type options struct {
	store     store.Store
	transport Transport
	device    *device.Device
	launcher  func(port int) error
}

type Option func(*options)

// WithStore supplies the rendezvous store shared by all ranks.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithTransport supplies the collective engine shared by all ranks.
func WithTransport(tr Transport) Option {
	return func(o *options) { o.transport = tr }
}

// WithDevice overrides the device, which otherwise is the accelerator at
// the local rank's ordinal.
func WithDevice(dev device.Device) Option {
	return func(o *options) { o.device = &dev }
}

// WithServiceLauncher supplies the hook rank 0 uses to start the external
// autotune service. The launcher owns the service; the context only knows
// its port.
func WithServiceLauncher(launch func(port int) error) Option {
	return func(o *options) { o.launcher = launch }
}

// Context is the process-wide communication state: the three communicators,
// the dedicated communication stream and the hyperparameter client. It is
// built once by Init and read-only afterwards, so any number of goroutines
// may use it without locking.
type Context struct {
	cfg    Config
	dev    device.Device
	stream *device.Stream

	global *Communicator
	intra  *Communicator
	inter  *Communicator // nil unless this rank is a node leader

	hyper  autotune.Hyperparameter
	client *autotune.Client
}

var (
	initMu  sync.Mutex
	procCtx *Context
)

// Init constructs the process context. A second call in the same process
// fails with ErrRepeatedInitialization and leaves the existing context
// untouched.
func Init(cfg Config, opts ...Option) (*Context, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if procCtx != nil {
		return nil, errors.WithStack(ErrRepeatedInitialization)
	}
	ctx, err := newContext(cfg, opts...)
	if err != nil {
		return nil, err
	}
	procCtx = ctx
	return ctx, nil
}

// IsInitialized reports whether Init has completed in this process.
func IsInitialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return procCtx != nil
}

// Current returns the process context built by Init.
func Current() (*Context, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if procCtx == nil {
		return nil, errors.WithStack(ErrNotInitialized)
	}
	return procCtx, nil
}

func newContext(cfg Config, opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	topo, err := plan.NewTopology(cfg.Rank, cfg.WorldSize, cfg.LocalSize, cfg.LeaderOffset)
	if err != nil {
		return nil, err
	}
	dev := device.Accel(cfg.LocalRank)
	if o.device != nil {
		dev = *o.device
	}
	st := o.store
	if st == nil {
		st = store.NewMem()
	}
	tr := o.transport
	if tr == nil {
		tr = NewLoopback()
	}
	if cfg.Rank == 0 && o.launcher != nil {
		if err := o.launcher(cfg.ServicePort); err != nil {
			return nil, errors.Wrap(err, "start autotune service")
		}
	}
	// Communication gets its own stream at a higher priority than the
	// default compute stream, so collectives are scheduled promptly.
	stream := device.NewStream(dev, device.HighPriority)
	ctx := &Context{
		cfg:    cfg,
		dev:    dev,
		stream: stream,
		hyper:  autotune.Hyperparameter{BucketBytes: cfg.BucketBytes},
		client: autotune.NewClient(cfg.MasterAddr, cfg.ServicePort),
	}
	if ctx.inter, err = NewCommunicator(topo.Inter, cfg.Rank, dev, stream, tr, st); err != nil {
		return nil, err
	}
	if ctx.intra, err = NewCommunicator(topo.Intra, cfg.Rank, dev, stream, tr, st); err != nil {
		return nil, err
	}
	if ctx.global, err = NewCommunicator(topo.Global, cfg.Rank, dev, stream, tr, st); err != nil {
		return nil, err
	}
	klog.V(1).Infof("process context initialized, rank %d/%d on %s", cfg.Rank, cfg.WorldSize, dev)
	return ctx, nil
}

func (c *Context) Rank() int {
	return c.cfg.Rank
}

func (c *Context) WorldSize() int {
	return c.cfg.WorldSize
}

func (c *Context) Device() device.Device {
	return c.dev
}

// Stream is the dedicated communication stream.
func (c *Context) Stream() *device.Stream {
	return c.stream
}

func (c *Context) GlobalCommunicator() *Communicator {
	return c.global
}

func (c *Context) IntraNodeCommunicator() *Communicator {
	return c.intra
}

// InterNodeCommunicator returns the inter-node communicator, or false when
// this rank is not a node leader.
func (c *Context) InterNodeCommunicator() (*Communicator, bool) {
	return c.inter, c.inter != nil
}

// Hyperparameters is the immutable snapshot taken at initialization.
func (c *Context) Hyperparameters() autotune.Hyperparameter {
	return c.hyper
}

// AutotuneClient is the handle through which the external autotune service
// may be queried.
func (c *Context) AutotuneClient() *autotune.Client {
	return c.client
}
