package cache

import "testing"

func TestDiskRoundtrip(t *testing.T) {
	c, err := NewDisk(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Get("abc-99-800x600"); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	want := []byte{0xff, 0xd8, 0xff, 0xe0}
	if err := c.Put("abc-99-800x600", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get("abc-99-800x600")
	if err != nil || !ok {
		t.Fatalf("after put: ok=%v err=%v", ok, err)
	}
	if string(got) != string(want) {
		t.Errorf("got %x, want %x", got, want)
	}

	if err := c.Erase("abc-99-800x600"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get("abc-99-800x600"); ok {
		t.Error("erased key still present")
	}
}

func TestDiskSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	c1, err := NewDisk(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c1.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	c2, err := NewDisk(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok, err := c2.Get("k"); err != nil || !ok || string(got) != "v" {
		t.Errorf("reopened: %q ok=%v err=%v", got, ok, err)
	}
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Error("nop cache hit")
	}
}
