package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AnyUserName/photorend/internal/manifest"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a rendered output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]

	// If path is a directory, look for manifest inside.
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, ManifestName)
	}

	m, err := manifest.Read(path)
	if err != nil {
		return err
	}

	printStats(m)
	return nil
}

func printStats(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  Manifest version: %d\n", m.Version)
	fmt.Printf("  Generated:        %s\n", m.GeneratedAt)
	fmt.Printf("  Profile:          %s (quality %d)\n", m.Profile, m.Quality)
	fmt.Printf("  Chain:            %s\n", strings.Join(m.Operations, " → "))
	if m.BuildInfo != nil {
		fmt.Printf("  Run:              %s\n", m.BuildInfo.RunID)
		fmt.Printf("  Workers:          %d (cache %v)\n", m.BuildInfo.Workers, m.BuildInfo.Cache)
	}
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Total sources:    %d\n", s.TotalSources)
	fmt.Printf("  Total renditions: %d\n", s.TotalRenditions)
	fmt.Printf("  Cache hits:       %d\n", s.CacheHits)
	fmt.Printf("  Gated:            %d\n", s.Gated)
	fmt.Printf("  Unchanged:        %d\n", s.Unchanged)
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))

	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Printf("  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Println()

	// Per-format breakdown.
	formatStats := map[string]struct {
		count int
		bytes int64
	}{}
	for _, src := range m.Sources {
		for _, r := range src.Renditions {
			fs := formatStats[r.Format]
			fs.count++
			fs.bytes += r.Size
			formatStats[r.Format] = fs
		}
	}

	fmt.Println("  Format breakdown:")
	for _, f := range []string{"webp", "jpeg", "png"} {
		if fs, ok := formatStats[f]; ok {
			fmt.Printf("    %-6s  %4d files  %s\n", f, fs.count, formatBytes(fs.bytes))
		}
	}
	fmt.Println()

	// Per-target breakdown, with how many distinct fingerprints each target
	// produced across sources.
	type targetStat struct {
		renditions   int
		fingerprints map[int64]bool
	}
	targets := map[string]*targetStat{}
	for _, src := range m.Sources {
		for _, r := range src.Renditions {
			key := fmt.Sprintf("%dx%d", r.TargetW, r.TargetH)
			ts, ok := targets[key]
			if !ok {
				ts = &targetStat{fingerprints: map[int64]bool{}}
				targets[key] = ts
			}
			ts.renditions++
			ts.fingerprints[r.Fingerprint] = true
		}
	}
	var keys []string
	for k := range targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("  Target breakdown:")
	for _, k := range keys {
		fmt.Printf("    %11s  %4d renditions  %3d fingerprints\n", k, targets[k].renditions, len(targets[k].fingerprints))
	}

	// Warnings.
	var warnings []string
	for key, src := range m.Sources {
		if len(src.Renditions) == 0 {
			warnings = append(warnings, fmt.Sprintf("source %q has no renditions", key))
		}
	}
	sort.Strings(warnings)
	if len(warnings) > 0 {
		fmt.Println()
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
	}
	fmt.Println()
}
