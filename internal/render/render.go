// Package render runs an ordered chain of operations over a source image,
// and predicts from dimensions alone the fingerprint of the rendition that
// run would produce.
package render

import (
	"image"
	"time"

	"github.com/AnyUserName/photorend/internal/imgmeta"
	"github.com/AnyUserName/photorend/internal/ops"
)

// Pipeline is an immutable operation chain plus its output settings. A single
// Pipeline may serve any number of concurrent calls.
type Pipeline struct {
	ops          []ops.Operation
	quality      int
	cacheEnabled bool
	identity     string
	hook         Hook
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithHook installs an instrumentation hook.
func WithHook(h Hook) Option {
	return func(p *Pipeline) { p.hook = h }
}

// WithIdentity sets the identity that separates this pipeline's cached
// renditions from those of differently configured pipelines.
func WithIdentity(id string) Option {
	return func(p *Pipeline) { p.identity = id }
}

// New creates a pipeline. The operation slice is copied.
func New(chain []ops.Operation, quality int, cacheEnabled bool, opts ...Option) *Pipeline {
	p := &Pipeline{
		ops:          append([]ops.Operation(nil), chain...),
		quality:      quality,
		cacheEnabled: cacheEnabled,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Quality is the encoder quality for renditions of this pipeline.
func (p *Pipeline) Quality() int { return p.quality }

// Identity is the configuration identity set with WithIdentity, or "".
func (p *Pipeline) Identity() string { return p.identity }

// CacheEnabled reports whether renditions may be served from a cache.
func (p *Pipeline) CacheEnabled() bool { return p.cacheEnabled }

// Kinds lists the operation kinds in execution order.
func (p *Pipeline) Kinds() []string {
	out := make([]string, len(p.ops))
	for i, op := range p.ops {
		out[i] = op.Kind()
	}
	return out
}

// Result is the outcome of an apply pass.
type Result struct {
	Image image.Image
	// Properties belong to Image. When PropertiesChanged is false they are
	// the source properties unchanged.
	Properties imgmeta.Properties
	// PropertiesChanged reports that Image is a new buffer and the source
	// properties were propagated onto it.
	PropertiesChanged bool
}

// Apply renders src toward dstW x dstH. The source image is never modified;
// when no operation fires the result holds src itself. The first operation
// error aborts the pass and is returned unchanged.
func (p *Pipeline) Apply(src image.Image, props imgmeta.Properties, dstW, dstH int) (*Result, error) {
	c := ops.NewContext(src, props)
	defer c.Release()

	target := ops.Size{W: dstW, H: dstH}
	var err error
	if p.hook != nil {
		err = p.applyObserved(c, target)
	} else {
		err = p.apply(c, target)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Image: c.Current(), Properties: props}
	if c.Changed() {
		res.Properties = c.Properties().Clone()
		res.PropertiesChanged = true
	}
	return res, nil
}

func (p *Pipeline) apply(c *ops.Context, target ops.Size) error {
	for _, op := range p.ops {
		cont, err := op.Apply(c, target)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (p *Pipeline) applyObserved(c *ops.Context, target ops.Size) error {
	for i, op := range p.ops {
		ev := Event{Pass: PassApply, Index: i, Kind: op.Kind()}
		p.hook.Start(ev)
		start := time.Now()

		c.BeginStep()
		cont, err := op.Apply(c, target)

		ev.Elapsed = time.Since(start)
		ev.Fired = c.Replaced()
		ev.Continue = cont && err == nil
		ev.Err = err
		p.hook.Stop(ev)

		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// Fingerprint predicts the rendition key for an upright srcW x srcH source.
// It never touches pixels and is defined for every input.
func (p *Pipeline) Fingerprint(srcW, srcH, dstW, dstH int) int64 {
	return p.FingerprintProbe(ops.Probe{Width: srcW, Height: srcH}, ops.Size{W: dstW, H: dstH})
}

// FingerprintProbe is Fingerprint for a source described by a probe, which
// may carry an EXIF orientation.
func (p *Pipeline) FingerprintProbe(probe ops.Probe, target ops.Size) int64 {
	fp, _ := p.Predict(probe, target)
	return fp
}

// Predict runs the fingerprint pass and also returns the final probe: the
// dimensions Apply would produce and whether it would change the image.
func (p *Pipeline) Predict(probe ops.Probe, target ops.Size) (int64, ops.Probe) {
	probe.Width = max(probe.Width, 0)
	probe.Height = max(probe.Height, 0)
	probe.Changed, probe.Fired = false, false
	if p.hook != nil {
		return p.fingerprintObserved(&probe, target), probe
	}

	var fp int64
	for _, op := range p.ops {
		var cont bool
		cont, fp = op.Fingerprint(&probe, target, fp)
		if !cont {
			break
		}
	}
	return fp, probe
}

func (p *Pipeline) fingerprintObserved(probe *ops.Probe, target ops.Size) int64 {
	var fp int64
	for i, op := range p.ops {
		ev := Event{Pass: PassFingerprint, Index: i, Kind: op.Kind()}
		p.hook.Start(ev)
		start := time.Now()

		probe.Fired = false
		var cont bool
		cont, fp = op.Fingerprint(probe, target, fp)

		ev.Elapsed = time.Since(start)
		ev.Fired = probe.Fired
		ev.Continue = cont
		ev.Fingerprint = fp
		p.hook.Stop(ev)

		if !cont {
			break
		}
	}
	return fp
}
