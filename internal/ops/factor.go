package ops

import (
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

// Factor is the logarithmic power-of-two downscale. It shrinks the image by
// 2^exp along the dominant axis, where
//
//	exp = RoundHalfUp(log_base(factor) + bias)
//
// and does nothing while exp < 1. exp is capped at MaxExponent so it folds
// into the fingerprint as a single decimal digit; a larger shrink is left to
// the finishing resize, which takes the result the rest of the way to the
// target.
type Factor struct {
	kind string
	base float64
	bias float64
}

// MaxExponent is the largest halving count a Factor applies (2^9 = 512).
const MaxExponent = 9

// NewFactor builds a downscale step. base must be greater than 1. A base
// close to 1 reaches MaxExponent at small shrink factors.
func NewFactor(kind string, base, bias float64) (*Factor, error) {
	if !(base > 1) || math.IsInf(base, 0) {
		return nil, &ConfigError{Kind: kind, Attr: "base", Err: fmt.Errorf("must be greater than 1, got %v", base)}
	}
	if math.IsNaN(bias) || math.IsInf(bias, 0) {
		return nil, &ConfigError{Kind: kind, Attr: "bias", Err: fmt.Errorf("must be finite, got %v", bias)}
	}
	return &Factor{kind: kind, base: base, bias: bias}, nil
}

// ThresholdBias returns the bias that makes the first halving fire exactly
// when the shrink factor reaches threshold.
func ThresholdBias(base, threshold float64) float64 {
	return 0.5 - math.Log2(threshold)/math.Log2(base)
}

func (o *Factor) Kind() string { return o.kind }

// Exponent returns the power-of-two exponent chosen for a shrink factor,
// at most MaxExponent.
func (o *Factor) Exponent(factor float64) int {
	if factor <= 0 {
		return 0
	}
	// Log2 is exact on powers of two, so factor 2^k never rounds below k.
	e := math.Log2(factor)/math.Log2(o.base) + o.bias
	if e >= MaxExponent {
		return MaxExponent
	}
	return RoundHalfUp(e)
}

// plan is the single branch predicate shared by Apply and Fingerprint.
func (o *Factor) plan(w, h int, t Size) (exp, nw, nh int) {
	exp = o.Exponent(ShrinkFactor(w, h, t.W, t.H))
	if exp < 1 {
		return exp, w, h
	}
	div := math.Ldexp(1, exp)
	nw, nh = shrinkBy(w, h, widthDominant(w, h, t), div)
	return exp, nw, nh
}

func (o *Factor) Apply(c *Context, t Size) (bool, error) {
	w, h := c.size()
	exp, nw, nh := o.plan(w, h, t)
	if exp < 1 {
		return true, nil
	}
	out := imaging.Resize(c.Current(), nw, nh, imaging.Box)
	if emptyImage(out) {
		return false, &CodecError{Kind: o.kind, Err: errEmptyOutput}
	}
	c.Replace(out)
	return true, nil
}

func (o *Factor) Fingerprint(p *Probe, t Size, fp int64) (bool, int64) {
	exp, nw, nh := o.plan(p.Width, p.Height, t)
	if exp < 1 {
		return true, fp
	}
	p.resize(nw, nh)
	return true, fp*10 + int64(exp)
}
