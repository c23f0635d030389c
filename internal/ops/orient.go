package ops

import (
	"image"

	"github.com/disintegration/imaging"
)

const orientMarker = 1

// Orient rotates and flips the image upright according to its EXIF
// orientation.
type Orient struct{}

// NewOrient returns the orientation fixer.
func NewOrient() *Orient { return &Orient{} }

func (o *Orient) Kind() string { return "orient" }

func (o *Orient) Apply(c *Context, _ Size) (bool, error) {
	orientation := c.Properties().Orientation
	if !needsReorient(orientation) {
		return true, nil
	}
	out := reorient(c.Current(), orientation)
	if emptyImage(out) {
		return false, &CodecError{Kind: o.Kind(), Err: errEmptyOutput}
	}
	c.Replace(out)
	c.SetProperties(c.Properties().Upright())
	return true, nil
}

// Fingerprint always folds the same marker: orientation is a property of the
// source, not of the target size.
func (o *Orient) Fingerprint(p *Probe, _ Size, fp int64) (bool, int64) {
	if needsReorient(p.Orientation) {
		w, h := p.Width, p.Height
		if swapsAxes(p.Orientation) {
			w, h = h, w
		}
		p.resize(w, h)
		p.Orientation = 1
	}
	return true, fp*10 + orientMarker
}

func needsReorient(orientation int) bool {
	return orientation >= 2 && orientation <= 8
}

func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}

// reorient maps EXIF orientations 2-8 onto imaging's transforms.
func reorient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
