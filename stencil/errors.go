package stencil

import (
	"fmt"
)

// PayloadError reports a failure inside a Payload callback. Cycle is -1 if
// the failure happened while the tile was being initialized. Hook names the
// CycleHooks method which failed, in which case Row and Col are -1.
type PayloadError struct {
	Rank     int
	Row, Col int
	Cycle    int
	Hook     string
	Err      error
}

func (e *PayloadError) Error() string {
	if e.Hook != "" {
		return fmt.Sprintf(
			"payload %s failed on rank %d in cycle %d: %v",
			e.Hook, e.Rank, e.Cycle, e.Err,
		)
	}
	if e.Cycle < 0 {
		return fmt.Sprintf(
			"payload failed on rank %d at cell (%d, %d) during "+
				"initialization: %v", e.Rank, e.Row, e.Col, e.Err,
		)
	}
	return fmt.Sprintf(
		"payload failed on rank %d at cell (%d, %d) in cycle %d: %v",
		e.Rank, e.Row, e.Col, e.Cycle, e.Err,
	)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// recoverPayload turns a panic inside a payload callback into an error. It
// must be deferred directly.
func recoverPayload(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = e
		} else {
			*err = fmt.Errorf("panic: %v", r)
		}
	}
}
