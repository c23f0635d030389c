package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/AnyUserName/photorend/internal/cache"
	"github.com/AnyUserName/photorend/internal/manifest"
	"github.com/AnyUserName/photorend/internal/ops"
	"github.com/AnyUserName/photorend/internal/profile"
)

func gradient(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: alpha})
		}
	}
	return img
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "logos"), 0o755); err != nil {
		t.Fatal(err)
	}

	f, err := os.Create(filepath.Join(dir, "beach.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, gradient(400, 300, 255), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Create(filepath.Join(dir, "logos", "mark.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, gradient(400, 300, 128)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	// Image extension, not an image.
	if err := os.WriteFile(filepath.Join(dir, "notes.jpg"), []byte("shopping list"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func testProfile() profile.Profile {
	p := profile.Get("web")
	p.Formats = []string{"jpeg"}
	p.Targets = []string{"80x60", "800x600"}
	return p
}

func TestScanImages(t *testing.T) {
	dir := writeFixtures(t)
	if err := os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "beach.jpg"))
	if err := os.WriteFile(filepath.Join(dir, ".hidden", "copy.jpg"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := ScanImages(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, s := range sources {
		got[s.Key] = s.Format
	}
	if len(got) != 2 || got["beach"] != "jpeg" || got["logos/mark"] != "png" {
		t.Errorf("sources: %v", got)
	}
}

func rendition(t *testing.T, m *manifest.Manifest, key string, w, h int) manifest.Rendition {
	t.Helper()
	src, ok := m.Sources[key]
	if !ok {
		t.Fatalf("source %s missing", key)
	}
	for _, r := range src.Renditions {
		if r.TargetW == w && r.TargetH == h {
			return r
		}
	}
	t.Fatalf("%s: no rendition for %dx%d", key, w, h)
	return manifest.Rendition{}
}

func TestRunRendersAndCaches(t *testing.T) {
	in := writeFixtures(t)
	out := t.TempDir()
	store, err := cache.NewDisk(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	newPipeline := func() *Pipeline {
		p, err := New(Config{InputDir: in, OutputDir: out, Profile: testProfile(), Cache: store, Workers: 2})
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	m, err := newPipeline().Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.BuildInfo == nil || m.BuildInfo.RunID == "" || !m.BuildInfo.Cache {
		t.Errorf("build info: %+v", m.BuildInfo)
	}
	if m.Stats.TotalSources != 2 || m.Stats.CacheHits != 0 {
		t.Errorf("first run stats: %+v", m.Stats)
	}

	small := rendition(t, m, "beach", 80, 60)
	if small.Width != 80 || small.Height != 60 || small.Gated || small.Unchanged || small.Format != "jpeg" {
		t.Errorf("small rendition: %+v", small)
	}
	if _, err := os.Stat(filepath.Join(out, small.Path)); err != nil {
		t.Errorf("rendition file: %v", err)
	}

	// The source is smaller than the box: the minfactor gate keeps it as-is
	// and the invalid fingerprint keeps it out of the cache.
	large := rendition(t, m, "beach", 800, 600)
	if large.Fingerprint != ops.InvalidFingerprint || !large.Gated || !large.Unchanged || large.Width != 400 {
		t.Errorf("large rendition: %+v", large)
	}

	// Transparent sources are never written as JPEG.
	mark := rendition(t, m, "logos/mark", 80, 60)
	if mark.Format != "png" || filepath.Dir(mark.Path) != "logos" {
		t.Errorf("alpha rendition: %+v", mark)
	}

	m2, err := newPipeline().Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if hit := rendition(t, m2, "beach", 80, 60); !hit.CacheHit || hit.Hash != small.Hash {
		t.Errorf("expected cache hit with same bytes: %+v", hit)
	}
	if miss := rendition(t, m2, "beach", 800, 600); miss.CacheHit {
		t.Error("invalid fingerprint served from cache")
	}
	if m2.Stats.CacheHits != 2 {
		t.Errorf("second run cache hits: %d", m2.Stats.CacheHits)
	}
}

// withSharpenWeight copies prof with a different sharpen weight, leaving the
// built-in profile table untouched.
func withSharpenWeight(prof profile.Profile, weight string) profile.Profile {
	opsCopy := make([]profile.OpSpec, len(prof.Operations))
	for i, spec := range prof.Operations {
		attrs := make(map[string]string, len(spec.Attrs))
		for k, v := range spec.Attrs {
			attrs[k] = v
		}
		if spec.Kind == "sharpen" {
			attrs["weight"] = weight
		}
		opsCopy[i] = profile.OpSpec{Kind: spec.Kind, Attrs: attrs}
	}
	prof.Operations = opsCopy
	return prof
}

func TestRunCacheSeparatesConfigurations(t *testing.T) {
	in := writeFixtures(t)
	store, err := cache.NewDisk(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	run := func(prof profile.Profile) manifest.Rendition {
		t.Helper()
		prof.Targets = []string{"80x60"}
		p, err := New(Config{InputDir: in, OutputDir: t.TempDir(), Profile: prof, Cache: store})
		if err != nil {
			t.Fatal(err)
		}
		m, err := p.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return rendition(t, m, "beach", 80, 60)
	}

	base := testProfile()
	base.Quality = 95
	first := run(base)
	if first.CacheHit {
		t.Fatal("cold store reported a hit")
	}

	lowQuality := base
	lowQuality.Quality = 5
	if r := run(lowQuality); r.CacheHit || r.Hash == first.Hash {
		t.Errorf("quality 5 served quality 95 bytes: %+v", r)
	}

	softer := withSharpenWeight(base, "4.5")
	if r := run(softer); r.Fingerprint != first.Fingerprint || r.CacheHit || r.Hash == first.Hash {
		t.Errorf("sharpen weight 4.5 served weight 12 bytes: %+v", r)
	}

	if r := run(base); !r.CacheHit || r.Hash != first.Hash {
		t.Errorf("same configuration missed the cache: %+v", r)
	}
}

func TestRunUpscaleIsUnchangedNotGated(t *testing.T) {
	in := writeFixtures(t)
	prof := testProfile()
	prof.Targets = []string{"800x600"}
	prof.Operations = []profile.OpSpec{
		{Kind: "orient"},
		{Kind: "factor2"},
		{Kind: "finish"},
		{Kind: "sharpen", Attrs: map[string]string{"weight": "12", "only-if-changed": "true"}},
	}
	store, err := cache.NewDisk(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	newRun := func() *manifest.Manifest {
		t.Helper()
		p, err := New(Config{InputDir: in, OutputDir: t.TempDir(), Profile: prof, Cache: store})
		if err != nil {
			t.Fatal(err)
		}
		m, err := p.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return m
	}

	m := newRun()
	// Without a gate the chain runs to the end and leaves the 400x300 source as-is.
	r := rendition(t, m, "beach", 800, 600)
	if r.Gated || !r.Unchanged || r.Fingerprint == ops.InvalidFingerprint || r.Width != 400 {
		t.Errorf("rendition: %+v", r)
	}
	if m.Stats.Gated != 0 || m.Stats.Unchanged != 2 {
		t.Errorf("stats: %+v", m.Stats)
	}

	// Unchanged renditions still have a valid fingerprint and are cached.
	if again := rendition(t, newRun(), "beach", 800, 600); !again.CacheHit {
		t.Errorf("second run: %+v", again)
	}
}

func TestRunCancelled(t *testing.T) {
	in := writeFixtures(t)
	p, err := New(Config{InputDir: in, OutputDir: t.TempDir(), Profile: testProfile()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestRunEmptyDir(t *testing.T) {
	p, err := New(Config{InputDir: t.TempDir(), OutputDir: t.TempDir(), Profile: testProfile()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("empty input accepted")
	}
}

func TestNewRejectsBadProfile(t *testing.T) {
	prof := testProfile()
	prof.Operations = []profile.OpSpec{{Kind: "blur"}}
	if _, err := New(Config{Profile: prof}); !errors.Is(err, ops.ErrUnknownKind) {
		t.Errorf("err = %v", err)
	}
}

func TestModelAlpha(t *testing.T) {
	if alpha, known := modelAlpha(color.YCbCrModel); alpha || !known {
		t.Error("ycbcr")
	}
	if _, known := modelAlpha(color.NRGBAModel); known {
		t.Error("nrgba cannot be decided from the model")
	}
	pal := color.Palette{color.NRGBA{A: 255}, color.NRGBA{A: 0}}
	if alpha, known := modelAlpha(pal); !alpha || !known {
		t.Error("palette with a transparent entry")
	}
}

// exifJPEG encodes img as a JPEG carrying only an EXIF orientation tag.
func exifJPEG(t *testing.T, img image.Image, orientation uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	ifd := []byte("MM\x00\x2a\x00\x00\x00\x08\x00\x01\x01\x12\x00\x03\x00\x00\x00\x01\x00\x00\x00\x00\x00\x00\x00\x00")
	binary.BigEndian.PutUint16(ifd[18:], orientation)
	payload := append([]byte("Exif\x00\x00"), ifd...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))

	data := buf.Bytes()
	out := append([]byte{}, data[:2]...)
	out = append(out, seg...)
	out = append(out, payload...)
	return append(out, data[2:]...)
}

func TestRunOrientedSource(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "cliff.jpg"), exifJPEG(t, gradient(400, 300, 255), 6), 0o644); err != nil {
		t.Fatal(err)
	}
	prof := testProfile()
	prof.Targets = []string{"80x60"}
	p, err := New(Config{InputDir: in, OutputDir: t.TempDir(), Profile: prof})
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if o := m.Sources["cliff"].Original; o.Orientation != 6 || o.Width != 400 {
		t.Errorf("original: %+v", o)
	}
	// Upright 300x400 fits the 80x60 box at 45x60.
	if r := rendition(t, m, "cliff", 80, 60); r.Width != 45 || r.Height != 60 {
		t.Errorf("rendition %dx%d, want 45x60", r.Width, r.Height)
	}
}

func TestRunCorruptSource(t *testing.T) {
	in := t.TempDir()
	// Sniffs as PNG, fails to decode.
	if err := os.WriteFile(filepath.Join(in, "broken.png"), []byte("\x89PNG\r\n\x1a\ntruncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := New(Config{InputDir: in, OutputDir: t.TempDir(), Profile: testProfile()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Run(context.Background())
	var codecErr *ops.CodecError
	if !errors.As(err, &codecErr) || codecErr.Kind != "decode" {
		t.Errorf("err = %v", err)
	}
}
