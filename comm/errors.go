package comm

import "github.com/pkg/errors"

var (
	// ErrRepeatedInitialization reports a second Init in the same process.
	ErrRepeatedInitialization = errors.New("process context already initialized")

	// ErrNotInitialized reports use of the process context before Init,
	// or a collective issued against an absent communicator.
	ErrNotInitialized = errors.New("process context not initialized")
)
