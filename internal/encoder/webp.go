package encoder

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
)

// WebPEncoder encodes images to lossy WebP through libwebp.
type WebPEncoder struct{}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) Extension() string { return "webp" }

func (e *WebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(128 * 1024)
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(clampQuality(quality))}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
