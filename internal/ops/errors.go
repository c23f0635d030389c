package ops

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is wrapped by ConfigError for an unregistered kind name.
var ErrUnknownKind = errors.New("unknown operation kind")

// ConfigError reports an operation that cannot be built from configuration.
type ConfigError struct {
	Kind string
	Attr string // empty when the kind itself is the problem
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("operation %q: attribute %q: %v", e.Kind, e.Attr, e.Err)
	}
	return fmt.Sprintf("operation %q: %v", e.Kind, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CodecError reports a resize, sharpen or decode primitive that failed to
// produce pixels.
type CodecError struct {
	Kind string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

var errEmptyOutput = errors.New("primitive produced an empty image")
