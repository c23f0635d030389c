package encoder

import (
	"fmt"
	"image"
	"strings"
)

// priority is the order formats are reported and resolved in.
var priority = []string{"webp", "jpeg", "png"}

// Registry holds the rendition encoders by format name.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry with every built-in encoder.
func NewRegistry() *Registry {
	r := &Registry{encoders: make(map[string]Encoder)}
	for _, enc := range []Encoder{&WebPEncoder{}, &JPEGEncoder{}, &PNGEncoder{}} {
		r.encoders[enc.Format()] = enc
	}
	return r
}

// Get returns an encoder for the given format, or nil if unknown.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[normalize(format)]
}

// Available returns all format names in priority order.
func (r *Registry) Available() []string {
	var out []string
	for _, f := range priority {
		if _, ok := r.encoders[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ResolveFormats filters requested formats to known ones. JPEG cannot carry
// alpha, so an image with transparency gets PNG in its place.
func (r *Registry) ResolveFormats(requested []string, hasAlpha bool) []string {
	var resolved []string
	seen := map[string]bool{}
	add := func(f string) {
		if _, ok := r.encoders[f]; ok && !seen[f] {
			seen[f] = true
			resolved = append(resolved, f)
		}
	}

	for _, f := range requested {
		f = normalize(f)
		if hasAlpha && f == "jpeg" {
			f = "png"
		}
		add(f)
	}
	if len(resolved) == 0 {
		if hasAlpha {
			add("png")
		} else {
			add("jpeg")
		}
	}
	return resolved
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	return fmt.Sprintf("encoders: %s", strings.Join(r.Available(), ", "))
}

// HasAlpha reports whether img has any non-opaque pixel.
func HasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

func normalize(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpg" {
		return "jpeg"
	}
	return f
}
