package profile

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/AnyUserName/photorend/internal/hasher"
	"github.com/AnyUserName/photorend/internal/ops"
	"github.com/AnyUserName/photorend/internal/render"
	"gopkg.in/yaml.v3"
)

// OpSpec is one configured operation: a kind plus free-form attributes.
type OpSpec struct {
	Kind  string            `yaml:"kind"`
	Attrs map[string]string `yaml:",inline"`
}

// Profile defines the rendition chain and outputs for a target platform.
type Profile struct {
	Name       string   `yaml:"name"`
	Targets    []string `yaml:"targets"`    // "WxH"; 0 leaves an axis free
	Formats    []string `yaml:"formats"`    // output formats in priority order
	Quality    int      `yaml:"quality"`    // encoding quality 1-100
	Cache      bool     `yaml:"cache"`      // serve renditions from the rendition cache
	Operations []OpSpec `yaml:"operations"` // applied in order
}

// standardChain is the orient, gate, power-of-two, finish, sharpen chain.
func standardChain(minFactor string) []OpSpec {
	return []OpSpec{
		{Kind: "orient"},
		{Kind: "minfactor", Attrs: map[string]string{"min": minFactor}},
		{Kind: "factor2"},
		{Kind: "finish"},
		{Kind: "sharpen", Attrs: map[string]string{"weight": "12", "only-if-changed": "true"}},
	}
}

// Built-in profiles.
var profiles = map[string]Profile{
	"web": {
		Name:       "web",
		Targets:    []string{"320x240", "800x600", "1600x1200"},
		Formats:    []string{"webp", "jpeg"},
		Quality:    82,
		Cache:      true,
		Operations: standardChain("1"),
	},
	"thumbnails": {
		Name:    "thumbnails",
		Targets: []string{"96x96", "160x160", "256x256"},
		Formats: []string{"jpeg"},
		Quality: 75,
		Cache:   true,
		Operations: []OpSpec{
			{Kind: "orient"},
			{Kind: "factor15"},
			{Kind: "finish"},
			{Kind: "gaussiansharpen", Attrs: map[string]string{"sigma": "0.6", "amount": "0.8", "only-if-changed": "true"}},
		},
	},
	"archive": {
		Name:       "archive",
		Targets:    []string{"2048x2048"},
		Formats:    []string{"jpeg"},
		Quality:    92,
		Cache:      false,
		Operations: standardChain("1.5"),
	},
}

// Get returns a profile by name. Falls back to web if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles["web"]
	p.Name = name // preserve requested name
	return p
}

// Load reads a profile from a YAML file.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile. Missing fields take the web profile's
// values; an empty operation list keeps the web chain.
func Parse(data []byte) (Profile, error) {
	def := profiles["web"]
	p := Profile{Quality: def.Quality, Cache: def.Cache}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if p.Name == "" {
		p.Name = "custom"
	}
	if len(p.Targets) == 0 {
		p.Targets = def.Targets
	}
	if len(p.Formats) == 0 {
		p.Formats = def.Formats
	}
	if len(p.Operations) == 0 {
		p.Operations = def.Operations
	}
	return p, nil
}

// Build validates the profile and constructs its pipeline. This is where
// configuration errors surface.
func (p Profile) Build(opts ...render.Option) (*render.Pipeline, error) {
	if p.Quality < 1 || p.Quality > 100 {
		return nil, fmt.Errorf("profile %s: quality must be between 1 and 100, got %d", p.Name, p.Quality)
	}
	if _, err := p.Sizes(); err != nil {
		return nil, err
	}
	chain := make([]ops.Operation, 0, len(p.Operations))
	for i, spec := range p.Operations {
		op, err := ops.Build(spec.Kind, spec.Attrs)
		if err != nil {
			return nil, fmt.Errorf("profile %s: operation %d: %w", p.Name, i, err)
		}
		chain = append(chain, op)
	}
	opts = append([]render.Option{render.WithIdentity(p.Identity())}, opts...)
	return render.New(chain, p.Quality, p.Cache, opts...), nil
}

// Identity hashes everything that shapes rendition bytes: quality plus each
// operation kind with its attributes. Attribute order and key case do not
// matter. Targets, formats and the profile name are left out; the cache key
// carries the box and the format on its own.
func (p Profile) Identity() string {
	parts := make([]string, 0, len(p.Operations)+1)
	parts = append(parts, "q="+strconv.Itoa(p.Quality))
	for _, spec := range p.Operations {
		attrs := make([]string, 0, len(spec.Attrs))
		for k, v := range spec.Attrs {
			attrs = append(attrs, strings.ToLower(strings.TrimSpace(k))+"="+strings.TrimSpace(v))
		}
		sort.Strings(attrs)
		parts = append(parts, strings.ToLower(strings.TrimSpace(spec.Kind))+"|"+strings.Join(attrs, ","))
	}
	return hasher.PipelineID(parts...)
}

// Sizes parses the profile targets.
func (p Profile) Sizes() ([]ops.Size, error) {
	out := make([]ops.Size, 0, len(p.Targets))
	seen := map[ops.Size]bool{}
	for _, t := range p.Targets {
		s, err := ParseSize(t)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// ParseSize parses "WxH". Either side may be 0, not both.
func ParseSize(s string) (ops.Size, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return ops.Size{}, fmt.Errorf("target %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 0 {
		return ops.Size{}, fmt.Errorf("target %q: bad width", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 {
		return ops.Size{}, fmt.Errorf("target %q: bad height", s)
	}
	if w == 0 && h == 0 {
		return ops.Size{}, fmt.Errorf("target %q: both dimensions are zero", s)
	}
	return ops.Size{W: w, H: h}, nil
}
