// Package ops defines the rendition operations and the per-call state they
// work on.
//
// Every operation has two faces. Apply transforms the working image held by
// a Context. Fingerprint predicts, from dimensions alone, which branch Apply
// would take and folds a matching digit into an integer accumulator. Both
// faces of a variant call the same planning helper over the same numbers, so
// the fingerprint is a valid cache key for the image Apply produces.
//
// Operations are immutable after construction and safe for concurrent use.
package ops

import (
	"image"
	"math"

	"github.com/AnyUserName/photorend/internal/imgmeta"
)

// Size is a target rendition size in pixels. A zero dimension leaves that
// axis unconstrained.
type Size struct {
	W, H int
}

// Operation is one step of a rendition pipeline.
type Operation interface {
	// Kind returns the configuration name of the operation.
	Kind() string

	// Apply may replace the context's current image. Returning false stops
	// the pipeline without error.
	Apply(c *Context, target Size) (bool, error)

	// Fingerprint predicts Apply's branch from p and folds it into fp.
	// Returning false stops the fingerprint pass; the returned value is the
	// final fingerprint.
	Fingerprint(p *Probe, target Size, fp int64) (bool, int64)
}

// Probe is the dimension-only state of a fingerprint pass. Each operation
// leaves in it the dimensions its Apply would have produced.
type Probe struct {
	Width, Height int
	// Orientation is the source EXIF orientation; 0 or 1 means upright.
	Orientation int
	// Changed predicts Context.Changed.
	Changed bool
	// Fired is set by the operation currently evaluating when it predicts
	// that Apply would replace the image. The pipeline clears it per step.
	Fired bool
}

func (p *Probe) resize(w, h int) {
	p.Width, p.Height = w, h
	p.Changed = true
	p.Fired = true
}

// Context is the per-invocation working state of an apply pass. The
// original image is owned by the caller and never modified.
type Context struct {
	original image.Image
	current  image.Image
	props    imgmeta.Properties
	changed  bool
	replaced bool
}

// NewContext starts an apply pass over original.
func NewContext(original image.Image, props imgmeta.Properties) *Context {
	return &Context{
		original: original,
		current:  original,
		props:    props.Clone(),
	}
}

// Original returns the caller's source image.
func (c *Context) Original() image.Image { return c.original }

// Current returns the working image.
func (c *Context) Current() image.Image { return c.current }

// Properties returns the metadata of the working image.
func (c *Context) Properties() imgmeta.Properties { return c.props }

// SetProperties replaces the metadata of the working image.
func (c *Context) SetProperties(p imgmeta.Properties) { c.props = p }

// Replace hands ownership of img to the context. The previous working image
// is dropped unless it is the original.
func (c *Context) Replace(img image.Image) {
	c.current = img
	c.changed = true
	c.replaced = true
}

// Changed reports whether the working image is no longer the original.
func (c *Context) Changed() bool { return c.changed }

// BeginStep clears the per-step replace flag.
func (c *Context) BeginStep() { c.replaced = false }

// Replaced reports whether the current step replaced the working image.
func (c *Context) Replaced() bool { return c.replaced }

// Release drops every reference the context holds except the caller's
// original.
func (c *Context) Release() {
	c.current = nil
	c.original = nil
}

func (c *Context) size() (int, int) {
	b := c.current.Bounds()
	return b.Dx(), b.Dy()
}

// ShrinkFactor is the source to target ratio along the dominant axis. It is
// not clamped, so an upscale request yields a value below 1.
func ShrinkFactor(srcW, srcH, dstW, dstH int) float64 {
	var f float64
	if dstW > 0 {
		f = float64(max(srcW, 0)) / float64(dstW)
	}
	if dstH > 0 {
		f = math.Max(f, float64(max(srcH, 0))/float64(dstH))
	}
	return f
}

// widthDominant reports whether the width ratio decides ShrinkFactor.
func widthDominant(srcW, srcH int, t Size) bool {
	var rw, rh float64
	if t.W > 0 {
		rw = float64(srcW) / float64(t.W)
	}
	if t.H > 0 {
		rh = float64(srcH) / float64(t.H)
	}
	return rw >= rh
}

// RoundHalfUp rounds x to the nearest integer, halves going up.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// shrinkBy divides the dominant axis by div and derives the other axis from
// the aspect ratio.
func shrinkBy(w, h int, byWidth bool, div float64) (int, int) {
	if byWidth {
		nw := max(1, RoundHalfUp(float64(w)/div))
		nh := max(1, RoundHalfUp(float64(h)*float64(nw)/float64(w)))
		return nw, nh
	}
	nh := max(1, RoundHalfUp(float64(h)/div))
	nw := max(1, RoundHalfUp(float64(w)*float64(nh)/float64(h)))
	return nw, nh
}

func emptyImage(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}
