//go:build ignore

// gen_fixtures creates test photos for the render smoke test.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	os.MkdirAll(filepath.Join(dir, "trip"), 0o755)

	// Landscape photo, large enough for every web target.
	writeJPEG(filepath.Join(dir, "trip", "beach.jpg"), gradient(2400, 1800), 0)

	// Same photo stored sideways with EXIF orientation 6 (rotate 90 CW).
	writeJPEG(filepath.Join(dir, "trip", "cliff.jpg"), gradient(1800, 1200), 6)

	// Mirrored, orientation 2: pixels flip, dimensions stay.
	writeJPEG(filepath.Join(dir, "trip", "mirror.jpg"), gradient(1600, 1200), 2)

	// Smaller than the largest target: gated by minfactor.
	writeJPEG(filepath.Join(dir, "small.jpg"), gradient(300, 200), 0)

	// Transparent logo: rendered as PNG instead of JPEG.
	writePNG(filepath.Join(dir, "logo.png"), alphaGradient(640, 480))

	// Image extension, not an image: skipped by the scanner.
	os.WriteFile(filepath.Join(dir, "readme.jpg"), []byte("not a photo"), 0o644)

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 6 fixtures in %s\n", dir)
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func alphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

func writePNG(path string, img *image.NRGBA) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		panic(err)
	}
}

// writeJPEG encodes img and, for orientation > 0, inserts a minimal EXIF
// APP1 segment carrying only the orientation tag.
func writeJPEG(path string, img *image.NRGBA, orientation uint16) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if orientation > 0 {
		data = append(append(append([]byte{}, data[:2]...), exifOrientation(orientation)...), data[2:]...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		panic(err)
	}
}

func exifOrientation(o uint16) []byte {
	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(42))
	binary.Write(&tiff, binary.BigEndian, uint32(8))
	binary.Write(&tiff, binary.BigEndian, uint16(1))      // entries
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112)) // Orientation
	binary.Write(&tiff, binary.BigEndian, uint16(3))      // SHORT
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, o)
	binary.Write(&tiff, binary.BigEndian, uint16(0))
	binary.Write(&tiff, binary.BigEndian, uint32(0)) // next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}
