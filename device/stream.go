package device

import "sync"

type Priority int

const (
	DefaultPriority Priority = iota
	HighPriority
)

// Event marks a point in a stream's work queue. It is signalled once every
// task enqueued before it has completed.
type Event struct {
	c chan struct{}
}

func newEvent() *Event {
	return &Event{c: make(chan struct{})}
}

// Done returns a channel closed when the event has been reached.
func (e *Event) Done() <-chan struct{} {
	return e.c
}

func (e *Event) Wait() {
	<-e.c
}

// Stream is an in-order asynchronous work queue bound to a device,
// mirroring accelerator stream semantics: tasks run one at a time in
// submission order, concurrently with the submitting goroutine.
type Stream struct {
	dev   Device
	prio  Priority
	tasks chan func()

	closeOnce sync.Once
}

const streamQueueDepth = 128

// NewStream creates a stream on dev and starts its executor.
// A high-priority stream is scheduled independently of the device's
// default compute stream; ordering between streams is expressed only
// through events.
func NewStream(dev Device, prio Priority) *Stream {
	s := &Stream{
		dev:   dev,
		prio:  prio,
		tasks: make(chan func(), streamQueueDepth),
	}
	go s.run()
	return s
}

func (s *Stream) run() {
	for task := range s.tasks {
		task()
	}
}

func (s *Stream) Device() Device {
	return s.dev
}

func (s *Stream) Priority() Priority {
	return s.prio
}

// Do enqueues f. It returns without waiting for f to run.
func (s *Stream) Do(f func()) {
	s.tasks <- f
}

// RecordEvent enqueues an event marker and returns it immediately.
func (s *Stream) RecordEvent() *Event {
	e := newEvent()
	s.Do(func() { close(e.c) })
	return e
}

// WaitEvent makes all work enqueued on s after this call wait until e
// has been signalled. The calling goroutine does not block.
func (s *Stream) WaitEvent(e *Event) {
	s.Do(func() { <-e.c })
}

// Synchronize blocks the caller until all work enqueued so far has completed.
func (s *Stream) Synchronize() {
	s.RecordEvent().Wait()
}

// Close stops the executor after draining enqueued work.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.tasks) })
}

var (
	currentMu sync.Mutex
	current   = make(map[Device]*Stream)
)

// Current returns the device's current compute stream, creating the
// default stream on first use.
func Current(dev Device) *Stream {
	currentMu.Lock()
	defer currentMu.Unlock()
	s, ok := current[dev]
	if !ok {
		s = NewStream(dev, DefaultPriority)
		current[dev] = s
	}
	return s
}

// SetCurrent replaces the device's current compute stream and returns the
// previous one, or nil if none existed.
func SetCurrent(dev Device, s *Stream) *Stream {
	currentMu.Lock()
	defer currentMu.Unlock()
	prev := current[dev]
	current[dev] = s
	return prev
}
