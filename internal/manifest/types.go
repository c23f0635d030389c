package manifest

// Manifest is the top-level output of a render run.
type Manifest struct {
	Version     int               `json:"version"`
	GeneratedAt string            `json:"generated_at"`
	Profile     string            `json:"profile"`
	Operations  []string          `json:"operations"`
	Quality     int               `json:"quality"`
	BasePath    string            `json:"base_path"`
	BuildInfo   *BuildInfo        `json:"build_info,omitempty"`
	Sources     map[string]Source `json:"sources"`
	Stats       Stats             `json:"stats"`
}

// BuildInfo captures run parameters for diagnostics.
type BuildInfo struct {
	RunID   string `json:"run_id"`
	Workers int    `json:"workers"`
	Cache   bool   `json:"cache"`
}

// Source describes one source image and every rendition made from it.
type Source struct {
	Original   OriginalInfo `json:"original"`
	Renditions []Rendition  `json:"renditions"`
}

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation int    `json:"orientation"`
	Format      string `json:"format"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"` // 16 hex chars of xxhash64
}

// Rendition is one encoded output for a requested box and format.
type Rendition struct {
	Format      string `json:"format"`
	TargetW     int    `json:"target_w"`
	TargetH     int    `json:"target_h"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Fingerprint int64  `json:"fingerprint"`
	CacheHit    bool   `json:"cache_hit,omitempty"`
	Gated       bool   `json:"gated,omitempty"`     // a gate stopped the chain; never cached
	Unchanged   bool   `json:"unchanged,omitempty"` // no step changed the source pixels
	Size        int64  `json:"size"`                // bytes on disk
	Hash        string `json:"hash"`                // first 16 hex chars of xxhash64
	Path        string `json:"path"`                // relative to base_path
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalSources     int   `json:"total_sources"`
	TotalRenditions  int   `json:"total_renditions"`
	CacheHits        int   `json:"cache_hits"`
	Gated            int   `json:"gated"`
	Unchanged        int   `json:"unchanged"`
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1
