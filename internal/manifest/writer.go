package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// New creates an empty manifest with defaults.
func New(profileName string) *Manifest {
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Profile:     profileName,
		BasePath:    "./",
		Sources:     make(map[string]Source),
	}
}

// ComputeStats recalculates aggregate statistics from sources.
func (m *Manifest) ComputeStats() {
	var s Stats
	s.TotalSources = len(m.Sources)
	for _, src := range m.Sources {
		s.TotalInputBytes += src.Original.Size
		s.TotalRenditions += len(src.Renditions)
		for _, r := range src.Renditions {
			s.TotalOutputBytes += r.Size
			if r.CacheHit {
				s.CacheHits++
			}
			if r.Gated {
				s.Gated++
			}
			if r.Unchanged {
				s.Unchanged++
			}
		}
	}
	m.Stats = s
}

// WriteJSON serializes the manifest to a JSON file with stable ordering.
func WriteJSON(m *Manifest, path string) error {
	m.ComputeStats()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Read loads a manifest written by WriteJSON.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
