package geom

import (
	"fmt"
)

// ConfigError is returned by constructors when they are given a geometry or
// parameter set that cannot be run. It is always returned before any
// communication takes place.
type ConfigError struct {
	Msg string
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Msg }

// RangeError reports an access to a tile cell outside of its interior and
// halo. Row and Col are local indices; the valid window is
// [0, Rows+1] x [0, Cols+1].
type RangeError struct {
	Row, Col   int
	Rows, Cols int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf(
		"local cell (%d, %d) is outside of the %d x %d tile window "+
			"[0, %d] x [0, %d]", e.Row, e.Col, e.Rows+2, e.Cols+2,
		e.Rows+1, e.Cols+1,
	)
}
