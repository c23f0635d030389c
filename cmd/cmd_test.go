package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/photorend/internal/hasher"
	"github.com/AnyUserName/photorend/internal/manifest"
)

func TestFingerprintCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"fingerprint", "4000x3000", "800x600", "--profile", "web"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "rendition:   800x600") || !strings.Contains(got, "cacheable:   yes") {
		t.Errorf("output:\n%s", got)
	}
}

func TestFingerprintCommandGated(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"fingerprint", "400x300", "800x600", "--profile", "web"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "fingerprint: 0\n") || !strings.Contains(got, "(gated)") {
		t.Errorf("output:\n%s", got)
	}
}

func TestValidateManifest(t *testing.T) {
	dir := t.TempDir()
	data := []byte("rendition bytes")
	if err := os.WriteFile(filepath.Join(dir, "a.80x60.12.deadbeef.jpg"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	m := manifest.New("web")
	m.Sources["a"] = manifest.Source{
		Original: manifest.OriginalInfo{Width: 400, Height: 300, Hash: "0011223344556677"},
		Renditions: []manifest.Rendition{{
			Format: "jpeg", TargetW: 80, TargetH: 60, Width: 80, Height: 60, Fingerprint: 12,
			Size: int64(len(data)), Hash: hasher.ContentHash(data, 16), Path: "a.80x60.12.deadbeef.jpg",
		}},
	}
	m.ComputeStats()

	if errs := validateManifest(m, dir, true); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	src := m.Sources["a"]
	src.Renditions[0].Hash = "ffffffffffffffff"
	src.Renditions = append(src.Renditions, manifest.Rendition{
		Format: "jpeg", Width: 10, Height: 10, CacheHit: true, Hash: "x", Path: "missing.jpg",
	})
	m.Sources["a"] = src

	errs := validateManifest(m, dir, true)
	joined := strings.Join(errs, "\n")
	for _, want := range []string{"hash mismatch", "invalid fingerprint", "file not found", "total_renditions mismatch"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}
