package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AnyUserName/photorend/internal/cache"
	"github.com/AnyUserName/photorend/internal/manifest"
	"github.com/AnyUserName/photorend/internal/pipeline"
	"github.com/AnyUserName/photorend/internal/profile"
	"github.com/AnyUserName/photorend/internal/render"
	"github.com/AnyUserName/photorend/internal/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ManifestName is the manifest file written next to the renditions.
const ManifestName = "photorend.manifest.json"

var (
	renderOutDir   string
	renderProfile  string
	renderConfig   string
	renderWorkers  int
	renderQuality  int
	renderCacheDir string
	renderNoCache  bool
)

var renderCmd = &cobra.Command{
	Use:   "render <input_dir>",
	Short: "Render every image into the profile's target sizes + manifest",
	Long: `Scans input directory for images (png, jpg, jpeg, webp, gif, bmp, tiff),
runs each through the profile's operation chain once per target size,
encodes the results and writes a manifest file.

Renditions whose fingerprint is already cached are copied from the cache
without decoding the source.

Output filenames: <key>.<w>x<h>.<fingerprint>.<hash>.ext`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutDir, "out", "o", "./photorend_out", "output directory")
	renderCmd.Flags().StringVarP(&renderProfile, "profile", "p", "web", "built-in profile")
	renderCmd.Flags().StringVarP(&renderConfig, "config", "c", "", "YAML profile file (overrides --profile)")
	renderCmd.Flags().IntVarP(&renderWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	renderCmd.Flags().IntVarP(&renderQuality, "quality", "q", 0, "quality 1-100 (0 = profile default)")
	renderCmd.Flags().StringVar(&renderCacheDir, "cache-dir", "", "rendition cache directory (default $PHOTOREND_CACHE_DIR or the user cache dir)")
	renderCmd.Flags().BoolVar(&renderNoCache, "no-cache", false, "bypass the rendition cache")
	rootCmd.AddCommand(renderCmd)
}

// resolveProfile picks the YAML profile when one is given, else a built-in.
func resolveProfile(name, configPath string) (profile.Profile, error) {
	if configPath != "" {
		return profile.Load(configPath)
	}
	return profile.Get(name), nil
}

func cacheDir() (string, error) {
	if renderCacheDir != "" {
		return renderCacheDir, nil
	}
	if dir := os.Getenv("PHOTOREND_CACHE_DIR"); dir != "" {
		return dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "photorend"), nil
}

func runRender(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	start := time.Now()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	absInput, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(renderOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	prof, err := resolveProfile(renderProfile, renderConfig)
	if err != nil {
		return err
	}
	if renderQuality > 0 {
		prof.Quality = renderQuality
	}
	if renderNoCache {
		prof.Cache = false
	}

	tel, err := telemetry.Setup(ctx)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("telemetry shutdown")
		}
	}()
	metrics, err := telemetry.NewMetricsHook(tel.Meter())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	hook := telemetry.Multi{telemetry.NewLogHook(log.WithField("component", "render")), metrics}

	rp, err := prof.Build(render.WithHook(hook))
	if err != nil {
		return err
	}

	var store cache.Store = cache.Nop{}
	if rp.CacheEnabled() {
		dir, err := cacheDir()
		if err != nil {
			return fmt.Errorf("cache dir: %w", err)
		}
		disk, err := cache.NewDisk(dir, 64<<20)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		store = disk
		log.WithField("dir", dir).Debug("rendition cache")
	}

	log.WithFields(logrus.Fields{
		"input":      absInput,
		"output":     absOutput,
		"profile":    prof.Name,
		"targets":    prof.Targets,
		"operations": rp.Kinds(),
		"quality":    rp.Quality(),
	}).Debug("render")

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{
		InputDir:  absInput,
		OutputDir: absOutput,
		Profile:   prof,
		Render:    rp,
		Cache:     store,
		Workers:   renderWorkers,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	m, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	manifestPath := filepath.Join(absOutput, ManifestName)
	if err := manifest.WriteJSON(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printRenderReport(m, time.Since(start))
	return nil
}

func printRenderReport(m *manifest.Manifest, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("  photorend render complete")
	fmt.Println()

	stats := m.Stats
	ratio := float64(0)
	if stats.TotalInputBytes > 0 {
		ratio = float64(stats.TotalOutputBytes) / float64(stats.TotalInputBytes) * 100
	}

	fmt.Printf("  Sources:     %d\n", stats.TotalSources)
	fmt.Printf("  Renditions:  %d\n", stats.TotalRenditions)
	fmt.Printf("  Cache hits:  %d\n", stats.CacheHits)
	if stats.Gated > 0 {
		fmt.Printf("  Gated:       %d (not cacheable)\n", stats.Gated)
	}
	if stats.Unchanged > 0 {
		fmt.Printf("  Unchanged:   %d (source already fits)\n", stats.Unchanged)
	}
	fmt.Printf("  Input size:  %s\n", formatBytes(stats.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(stats.TotalOutputBytes))
	fmt.Printf("  Ratio:       %.1f%% of original\n", ratio)
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:     %d\n", m.BuildInfo.Workers)
	}
	fmt.Printf("  Chain:       %s\n", strings.Join(m.Operations, " → "))
	fmt.Println()

	// Top 10 heaviest sources.
	if len(m.Sources) > 0 {
		type sourceSize struct {
			key        string
			inputSize  int64
			outputSize int64
		}
		var items []sourceSize
		for key, s := range m.Sources {
			var outSum int64
			for _, r := range s.Renditions {
				outSum += r.Size
			}
			items = append(items, sourceSize{key, s.Original.Size, outSum})
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].inputSize > items[j].inputSize
		})
		n := min(len(items), 10)
		fmt.Printf("  Top %d heaviest (original → renditions):\n", n)
		for _, it := range items[:n] {
			fmt.Printf("    %-40s %8s → %8s\n",
				truncKey(it.key, 40),
				formatBytes(it.inputSize),
				formatBytes(it.outputSize),
			)
		}
		fmt.Println()
	}

	fmt.Printf("  Formats:     %s\n", strings.Join(detectOutputFormats(m), ", "))

	data, _ := json.Marshal(m)
	fmt.Printf("  Manifest:    %s (%s)\n", ManifestName, formatBytes(int64(len(data))))
	fmt.Println()
}

func detectOutputFormats(m *manifest.Manifest) []string {
	set := map[string]bool{}
	for _, s := range m.Sources {
		for _, r := range s.Renditions {
			set[r.Format] = true
		}
	}
	var out []string
	for _, f := range []string{"webp", "jpeg", "png"} {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
