package hasher

import (
	"bytes"
	"testing"
)

func TestContentHashStable(t *testing.T) {
	data := []byte("rendition source bytes")
	a := ContentHash(data, 0)
	if len(a) != 16 {
		t.Fatalf("full hash length: got %d", len(a))
	}
	if b := ContentHash(data, 8); b != a[:8] {
		t.Errorf("truncated hash %q is not a prefix of %q", b, a)
	}
	if ContentHash([]byte("other"), 0) == a {
		t.Error("different inputs collided")
	}

	r, err := ContentHashReader(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatal(err)
	}
	if r != a {
		t.Errorf("reader hash %q != %q", r, a)
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("p1", "abcd", 12991, 800, 600); got != "p1-abcd-12991-800x600" {
		t.Errorf("got %q", got)
	}
	if CacheKey("p1", "abcd", 99, 800, 0) == CacheKey("p1", "abcd", 99, 0, 800) {
		t.Error("axis order lost")
	}
	if CacheKey("p1", "abcd", 99, 800, 600) == CacheKey("p2", "abcd", 99, 800, 600) {
		t.Error("pipeline identity ignored")
	}
}

func TestPipelineID(t *testing.T) {
	a := PipelineID("q=82", "sharpen|weight=12")
	if len(a) != 16 {
		t.Fatalf("length %d", len(a))
	}
	if a != PipelineID("q=82", "sharpen|weight=12") {
		t.Error("not stable")
	}
	if a == PipelineID("q=82", "sharpen|weight=4.5") {
		t.Error("attribute change kept the identity")
	}
	if PipelineID("ab", "c") == PipelineID("a", "bc") {
		t.Error("part boundaries lost")
	}
}
