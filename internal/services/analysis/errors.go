package analysis

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSeries = errors.New("invalid series")
	ErrInvalidWindow = errors.New("invalid window")
	ErrInvalidLag    = errors.New("invalid lag")
	ErrInvalidOrder  = errors.New("invalid order")
)

// ConfigError reports an invalid input to an analysis function.
type ConfigError struct {
	Op     string
	Err    error
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("analysis %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("analysis %s: %v: %s", e.Op, e.Err, e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(op string, err error, format string, args ...any) error {
	return &ConfigError{Op: op, Err: err, Detail: fmt.Sprintf(format, args...)}
}
