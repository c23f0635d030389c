package ops

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"
)

// Sharpen runs a gift filter over the working image, optionally only when an
// earlier step already replaced it.
type Sharpen struct {
	kind          string
	filter        *gift.GIFT
	onlyIfChanged bool
}

// NewSharpen builds a 3x3 convolution sharpen with the given center weight.
// The four edge neighbours weigh -1, so weight must exceed 4.
func NewSharpen(weight float64, onlyIfChanged bool) (*Sharpen, error) {
	if !(weight > 4) {
		return nil, &ConfigError{Kind: "sharpen", Attr: "weight", Err: fmt.Errorf("must be greater than 4, got %v", weight)}
	}
	w := float32(weight)
	kernel := []float32{
		0, -1, 0,
		-1, w, -1,
		0, -1, 0,
	}
	return &Sharpen{
		kind:          "sharpen",
		filter:        gift.New(gift.Convolution(kernel, true, false, false, 0)),
		onlyIfChanged: onlyIfChanged,
	}, nil
}

// NewGaussianSharpen builds an unsharp mask sharpen.
func NewGaussianSharpen(sigma, amount, threshold float64, onlyIfChanged bool) (*Sharpen, error) {
	const kind = "gaussiansharpen"
	if !(sigma > 0) {
		return nil, &ConfigError{Kind: kind, Attr: "sigma", Err: fmt.Errorf("must be positive, got %v", sigma)}
	}
	if !(amount > 0) {
		return nil, &ConfigError{Kind: kind, Attr: "amount", Err: fmt.Errorf("must be positive, got %v", amount)}
	}
	if !(threshold >= 0) {
		return nil, &ConfigError{Kind: kind, Attr: "threshold", Err: fmt.Errorf("must not be negative, got %v", threshold)}
	}
	return &Sharpen{
		kind:          kind,
		filter:        gift.New(gift.UnsharpMask(float32(sigma), float32(amount), float32(threshold))),
		onlyIfChanged: onlyIfChanged,
	}, nil
}

func (o *Sharpen) Kind() string { return o.kind }

func (o *Sharpen) fires(changed bool) bool {
	return !o.onlyIfChanged || changed
}

func (o *Sharpen) Apply(c *Context, _ Size) (bool, error) {
	if !o.fires(c.Changed()) {
		return true, nil
	}
	src := c.Current()
	dst := image.NewNRGBA(o.filter.Bounds(src.Bounds()))
	o.filter.Draw(dst, src)
	if emptyImage(dst) {
		return false, &CodecError{Kind: o.kind, Err: errEmptyOutput}
	}
	c.Replace(dst)
	return true, nil
}

// Fingerprint leaves an ungated sharpen out of the key: it changes pixels,
// not size. A gated sharpen folds whether the gate opened.
func (o *Sharpen) Fingerprint(p *Probe, _ Size, fp int64) (bool, int64) {
	fire := o.fires(p.Changed)
	if fire {
		p.resize(p.Width, p.Height)
	}
	if !o.onlyIfChanged {
		return true, fp
	}
	if fire {
		return true, fp*10 + 1
	}
	return true, fp * 10
}
