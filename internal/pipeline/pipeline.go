// Package pipeline renders every image under a directory through a
// rendition pipeline, in parallel, and records the results in a manifest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/AnyUserName/photorend/internal/cache"
	"github.com/AnyUserName/photorend/internal/encoder"
	"github.com/AnyUserName/photorend/internal/manifest"
	"github.com/AnyUserName/photorend/internal/ops"
	"github.com/AnyUserName/photorend/internal/profile"
	"github.com/AnyUserName/photorend/internal/render"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config holds all parameters for a render run.
type Config struct {
	InputDir  string
	OutputDir string
	Profile   profile.Profile
	// Render is built from Profile when nil.
	Render *render.Pipeline
	// Cache defaults to a no-op store.
	Cache   cache.Store
	Workers int
	Logger  logrus.FieldLogger
}

// Pipeline orchestrates a render run.
type Pipeline struct {
	cfg      Config
	targets  []ops.Size
	registry *encoder.Registry
	log      logrus.FieldLogger
}

// New validates cfg and creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Nop{}
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}
	if cfg.Render == nil {
		r, err := cfg.Profile.Build()
		if err != nil {
			return nil, err
		}
		cfg.Render = r
	}
	targets, err := cfg.Profile.Sizes()
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("profile %s has no targets", cfg.Profile.Name)
	}
	return &Pipeline{
		cfg:      cfg,
		targets:  targets,
		registry: encoder.NewRegistry(),
		log:      cfg.Logger,
	}, nil
}

// Run renders every source and returns the manifest. Individual source
// failures are logged; the run fails only when every source failed or ctx
// was cancelled.
func (p *Pipeline) Run(ctx context.Context) (*manifest.Manifest, error) {
	runID := uuid.NewString()
	log := p.log.WithField("run", runID)
	log.Debug(p.registry.String())

	sources, err := ScanImages(p.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", p.cfg.InputDir)
	}
	log.WithField("count", len(sources)).Info("found images")

	results := make([]processResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[idx] = processResult{key: s.Key, err: err}
				return
			}

			srcLog := log.WithField("source", s.Key)
			srcLog.Debug("processing")
			results[idx] = p.processImage(ctx, s, srcLog)
			if results[idx].err == nil {
				srcLog.WithField("renditions", len(results[idx].source.Renditions)).Debug("done")
			}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := manifest.New(p.cfg.Profile.Name)
	m.Operations = p.cfg.Render.Kinds()
	m.Quality = p.cfg.Render.Quality()

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		m.Sources[r.key] = r.source
	}

	if len(errs) > 0 {
		for _, e := range errs {
			log.WithError(e).Error("render failed")
		}
		if len(errs) == len(sources) {
			return nil, fmt.Errorf("all %d images failed to render: %w", len(errs), errors.Join(errs...))
		}
		log.Warnf("%d of %d images had errors", len(errs), len(sources))
	}

	m.BuildInfo = &manifest.BuildInfo{
		RunID:   runID,
		Workers: p.cfg.Workers,
		Cache:   p.cfg.Render.CacheEnabled(),
	}
	m.ComputeStats()
	return m, nil
}
