// Package imgmeta reads the per-image properties that travel alongside a
// pixel buffer through the rendition pipeline.
package imgmeta

import (
	"io"
	"strings"

	"github.com/h2non/filetype"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Properties is the metadata attached to an image buffer.
type Properties struct {
	// Orientation is the EXIF orientation tag (1-8). 0 and 1 mean upright.
	Orientation int
	// Tags holds the remaining EXIF fields, rendered as strings.
	Tags map[string]string
}

// Clone returns a deep copy so a replacement image never shares tag storage
// with the original.
func (p Properties) Clone() Properties {
	out := Properties{Orientation: p.Orientation}
	if p.Tags != nil {
		out.Tags = make(map[string]string, len(p.Tags))
		for k, v := range p.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// Upright returns a copy with the orientation normalized to 1.
func (p Properties) Upright() Properties {
	out := p.Clone()
	out.Orientation = 1
	if out.Tags != nil {
		out.Tags[string(exif.Orientation)] = "1"
	}
	return out
}

// Read extracts EXIF properties from an encoded image. Images without EXIF,
// or with unreadable EXIF, come back upright with no tags.
func Read(r io.Reader) Properties {
	props := Properties{Orientation: 1}

	x, err := exif.Decode(r)
	if err != nil {
		return props
	}

	w := tagWalker{tags: make(map[string]string)}
	_ = x.Walk(&w)
	props.Tags = w.tags

	if tag, err := x.Get(exif.Orientation); err == nil {
		if o, err := tag.Int(0); err == nil && o >= 1 && o <= 8 {
			props.Orientation = o
		}
	}
	return props
}

type tagWalker struct {
	tags map[string]string
}

func (w *tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	// Maker notes and thumbnails are opaque blobs.
	if name == exif.MakerNote || strings.HasPrefix(string(name), "Thumb") {
		return nil
	}
	w.tags[string(name)] = strings.Trim(tag.String(), `"`)
	return nil
}

// Sniff identifies an image format from its leading bytes. 261 bytes are
// enough for every matcher filetype ships with.
func Sniff(head []byte) (string, bool) {
	if !filetype.IsImage(head) {
		return "", false
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", false
	}
	switch kind.Extension {
	case "jpg":
		return "jpeg", true
	case "tif":
		return "tiff", true
	}
	return kind.Extension, true
}
