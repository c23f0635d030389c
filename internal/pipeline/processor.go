package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/AnyUserName/photorend/internal/encoder"
	"github.com/AnyUserName/photorend/internal/hasher"
	"github.com/AnyUserName/photorend/internal/imgmeta"
	"github.com/AnyUserName/photorend/internal/manifest"
	"github.com/AnyUserName/photorend/internal/ops"
	"github.com/sirupsen/logrus"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// processResult holds the result of rendering a single source image.
type processResult struct {
	key    string
	source manifest.Source
	err    error
}

// sourceImage decodes the source pixels at most once, and only when a
// rendition misses the cache.
type sourceImage struct {
	data []byte
	img  image.Image
	err  error
	done bool
}

func (s *sourceImage) decode() (image.Image, error) {
	if !s.done {
		s.img, _, s.err = image.Decode(bytes.NewReader(s.data))
		s.done = true
	}
	return s.img, s.err
}

// processImage renders every target of one source: fingerprint, cache probe,
// apply, encode, write.
func (p *Pipeline) processImage(ctx context.Context, src Source, log logrus.FieldLogger) processResult {
	result := processResult{key: src.Key}

	data, err := os.ReadFile(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("read %s: %w", src.RelPath, err)
		return result
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.err = decodeError(src, err)
		return result
	}
	props := imgmeta.Read(bytes.NewReader(data))
	sourceHash := hasher.ContentHash(data, 16)
	pixels := &sourceImage{data: data}

	result.source.Original = manifest.OriginalInfo{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Orientation: props.Orientation,
		Format:      src.Format,
		Size:        src.Size,
		Hash:        sourceHash,
	}

	hasAlpha, known := modelAlpha(cfg.ColorModel)
	if !known {
		img, err := pixels.decode()
		if err != nil {
			result.err = decodeError(src, err)
			return result
		}
		hasAlpha = encoder.HasAlpha(img)
	}
	formats := p.registry.ResolveFormats(p.cfg.Profile.Formats, hasAlpha)

	keyDir := filepath.Dir(src.Key)
	if err := os.MkdirAll(filepath.Join(p.cfg.OutputDir, keyDir), 0o755); err != nil {
		result.err = fmt.Errorf("mkdir %s: %w", keyDir, err)
		return result
	}

	rp := p.cfg.Render
	probe := ops.Probe{Width: cfg.Width, Height: cfg.Height, Orientation: props.Orientation}

	for _, target := range p.targets {
		if err := ctx.Err(); err != nil {
			result.err = err
			return result
		}

		fp, predicted := rp.Predict(probe, target)
		useCache := rp.CacheEnabled() && fp != ops.InvalidFingerprint
		tlog := log.WithFields(logrus.Fields{"target": fmt.Sprintf("%dx%d", target.W, target.H), "fingerprint": fp})

		var rendered image.Image
		for _, format := range formats {
			enc := p.registry.Get(format)
			if enc == nil {
				continue
			}

			r := manifest.Rendition{
				Format:      format,
				TargetW:     target.W,
				TargetH:     target.H,
				Width:       predicted.Width,
				Height:      predicted.Height,
				Fingerprint: fp,
				Gated:       fp == ops.InvalidFingerprint,
				Unchanged:   !predicted.Changed,
			}

			var out []byte
			cacheKey := hasher.CacheKey(rp.Identity(), sourceHash, fp, target.W, target.H) + "." + format
			if useCache {
				cached, hit, err := p.cfg.Cache.Get(cacheKey)
				if err != nil {
					tlog.WithError(err).Warn("cache read failed")
				}
				if hit {
					out = cached
					r.CacheHit = true
				}
			}

			if out == nil {
				if rendered == nil {
					img, err := pixels.decode()
					if err != nil {
						result.err = decodeError(src, err)
						return result
					}
					res, err := rp.Apply(img, props, target.W, target.H)
					if err != nil {
						result.err = fmt.Errorf("render %s@%dx%d: %w", src.Key, target.W, target.H, err)
						return result
					}
					rendered = res.Image
				}
				b := rendered.Bounds()
				r.Width, r.Height = b.Dx(), b.Dy()

				out, err = enc.Encode(rendered, rp.Quality())
				if err != nil {
					tlog.WithError(err).Warnf("encode %s failed", format)
					continue
				}
				if useCache {
					if err := p.cfg.Cache.Put(cacheKey, out); err != nil {
						tlog.WithError(err).Warn("cache write failed")
					}
				}
			}

			contentHash := hasher.ContentHash(out, 16)
			// key.WxH.fingerprint.hash.ext
			fileName := fmt.Sprintf("%s.%dx%d.%d.%s.%s",
				filepath.Base(src.Key), target.W, target.H, fp, contentHash[:8], enc.Extension())
			relPath := filepath.ToSlash(filepath.Join(keyDir, fileName))

			if err := os.WriteFile(filepath.Join(p.cfg.OutputDir, relPath), out, 0o644); err != nil {
				result.err = fmt.Errorf("write %s: %w", relPath, err)
				return result
			}

			r.Size = int64(len(out))
			r.Hash = contentHash
			r.Path = relPath
			result.source.Renditions = append(result.source.Renditions, r)
			tlog.WithFields(logrus.Fields{"format": format, "cache_hit": r.CacheHit}).Debug("rendition written")
		}
	}

	return result
}

// modelAlpha reports whether images of color model m can carry alpha,
// when that is knowable without decoding pixels.
func modelAlpha(m color.Model) (alpha, known bool) {
	if pal, ok := m.(color.Palette); ok {
		for _, c := range pal {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return true, true
			}
		}
		return false, true
	}
	switch m {
	case color.YCbCrModel, color.GrayModel, color.Gray16Model, color.CMYKModel:
		return false, true
	}
	return false, false
}

func decodeError(src Source, err error) error {
	return fmt.Errorf("%s: %w", src.RelPath, &ops.CodecError{Kind: "decode", Err: err})
}
