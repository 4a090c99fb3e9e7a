package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for messages that do not follow the wire schema.
	ErrMalformed = errors.New("malformed bridge message")
	// ErrNotFound is returned when a path does not resolve in the store.
	ErrNotFound = errors.New("path not found")
	// ErrNotExposed is returned for paths outside the advertised capabilities.
	ErrNotExposed = errors.New("path not exposed")
	// ErrNotCallable is returned when a call targets a non-function.
	ErrNotCallable = errors.New("value is not callable")
	// ErrClosed is returned by transports after shutdown.
	ErrClosed = errors.New("bridge transport closed")
)

// Fault is a failed bridge operation as seen by guest code. It is thrown at
// the call site as an Error named "BridgeFault", so guest try/catch can
// recover from it.
type Fault struct {
	Op      Op
	Path    Path
	Message string
}

func (f *Fault) Error() string {
	if len(f.Path) == 0 {
		return fmt.Sprintf("bridge %s: %s", f.Op, f.Message)
	}
	return fmt.Sprintf("bridge %s %s: %s", f.Op, f.Path, f.Message)
}

// ErrorName names the guest error class.
func (f *Fault) ErrorName() string { return "BridgeFault" }

func fault(op Op, path Path, err error) *Fault {
	return &Fault{Op: op, Path: path, Message: err.Error()}
}
