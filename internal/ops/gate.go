package ops

import (
	"fmt"
	"math"
)

// InvalidFingerprint is the fingerprint of a request the minimum factor gate
// turned away. It is never a valid cache key.
const InvalidFingerprint int64 = 0

// MinFactor halts the pipeline, leaving the image untouched, when the
// requested shrink is smaller than min.
type MinFactor struct {
	min float64
}

// NewMinFactor builds the gate.
func NewMinFactor(min float64) (*MinFactor, error) {
	if math.IsNaN(min) || math.IsInf(min, 0) || min < 0 {
		return nil, &ConfigError{Kind: "minfactor", Attr: "min", Err: fmt.Errorf("must be a finite non-negative number, got %v", min)}
	}
	return &MinFactor{min: min}, nil
}

func (o *MinFactor) Kind() string { return "minfactor" }

func (o *MinFactor) pass(w, h int, t Size) bool {
	return !(ShrinkFactor(w, h, t.W, t.H) < o.min)
}

func (o *MinFactor) Apply(c *Context, t Size) (bool, error) {
	w, h := c.size()
	return o.pass(w, h, t), nil
}

func (o *MinFactor) Fingerprint(p *Probe, t Size, fp int64) (bool, int64) {
	if !o.pass(p.Width, p.Height, t) {
		return false, InvalidFingerprint
	}
	return true, fp
}
