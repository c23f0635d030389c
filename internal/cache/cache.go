// Package cache stores encoded renditions under their fingerprint keys.
package cache

import (
	"errors"
	"io/fs"
	"os"

	"github.com/peterbourgon/diskv"
)

// Store is a rendition cache.
type Store interface {
	// Get returns the cached bytes for key. A miss is not an error.
	Get(key string) ([]byte, bool, error)
	Put(key string, data []byte) error
}

// Disk keeps renditions as flat files under a root directory, with an
// in-memory read cache capped at memBytes.
type Disk struct {
	d *diskv.Diskv
}

// NewDisk opens (creating if needed) a disk cache rooted at dir.
func NewDisk(dir string, memBytes uint64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Disk{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: memBytes,
		}),
	}, nil
}

func (c *Disk) Get(key string) ([]byte, bool, error) {
	data, err := c.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (c *Disk) Put(key string, data []byte) error {
	return c.d.Write(key, data)
}

// Erase drops one entry.
func (c *Disk) Erase(key string) error {
	return c.d.Erase(key)
}

// Nop never hits and discards writes.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Put(string, []byte) error         { return nil }
