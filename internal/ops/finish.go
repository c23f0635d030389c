package ops

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// DefaultFinishThreshold is the shrink factor above which Finish resizes.
const DefaultFinishThreshold = 1.2

const finishSentinel = 99

// Finish resizes precisely onto the target box with a Lanczos filter once
// the remaining shrink factor exceeds its threshold.
type Finish struct {
	threshold float64
}

// NewFinish builds the finishing resize. threshold must be at least 1.
func NewFinish(threshold float64) (*Finish, error) {
	if !(threshold >= 1) {
		return nil, &ConfigError{Kind: "finish", Attr: "threshold", Err: fmt.Errorf("must be at least 1, got %v", threshold)}
	}
	return &Finish{threshold: threshold}, nil
}

func (o *Finish) Kind() string { return "finish" }

func (o *Finish) plan(w, h int, t Size) (bool, int, int) {
	f := ShrinkFactor(w, h, t.W, t.H)
	if !(f > o.threshold) {
		return false, w, h
	}
	nw := max(1, RoundHalfUp(float64(w)/f))
	nh := max(1, RoundHalfUp(float64(h)/f))
	return true, nw, nh
}

func (o *Finish) Apply(c *Context, t Size) (bool, error) {
	w, h := c.size()
	fire, nw, nh := o.plan(w, h, t)
	if !fire {
		return true, nil
	}
	out := imaging.Resize(c.Current(), nw, nh, imaging.Lanczos)
	if emptyImage(out) {
		return false, &CodecError{Kind: o.Kind(), Err: errEmptyOutput}
	}
	c.Replace(out)
	return true, nil
}

// Fingerprint folds the sentinel whether or not the resize fires; only the
// predicted dimensions follow the branch.
func (o *Finish) Fingerprint(p *Probe, t Size, fp int64) (bool, int64) {
	if fire, nw, nh := o.plan(p.Width, p.Height, t); fire {
		p.resize(nw, nh)
	}
	return true, fp*100 + finishSentinel
}
