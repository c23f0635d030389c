package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AnyUserName/photorend/internal/hasher"
	"github.com/AnyUserName/photorend/internal/manifest"
	"github.com/spf13/cobra"
)

var validateHashes bool

var validateCmd = &cobra.Command{
	Use:   "validate <manifest_path>",
	Short: "Validate a photorend manifest and check referenced files exist",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateHashes, "hashes", false, "also verify rendition content hashes")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	manifestPath := args[0]

	m, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}

	errs := validateManifest(m, filepath.Dir(manifestPath), validateHashes)

	w := cmd.OutOrStdout()
	if len(errs) == 0 {
		fmt.Fprintln(w, "  ✓ Manifest is valid")
		fmt.Fprintf(w, "  ✓ %d sources, %d renditions, all files present\n", m.Stats.TotalSources, m.Stats.TotalRenditions)
		return nil
	}

	fmt.Fprintf(w, "  ✗ Manifest has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(w, "    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string, checkHashes bool) []string {
	var errs []string

	if m.Version != manifest.SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	keys := make([]string, 0, len(m.Sources))
	for key := range m.Sources {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		src := m.Sources[key]
		if src.Original.Width <= 0 || src.Original.Height <= 0 {
			errs = append(errs, fmt.Sprintf("source %q: invalid original dimensions %dx%d",
				key, src.Original.Width, src.Original.Height))
		}
		if src.Original.Hash == "" {
			errs = append(errs, fmt.Sprintf("source %q: missing hash", key))
		}
		if len(src.Renditions) == 0 {
			errs = append(errs, fmt.Sprintf("source %q: no renditions", key))
		}

		seenPaths := map[string]bool{}
		for i, r := range src.Renditions {
			if r.Format == "" {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: empty format", key, i))
			}
			if r.Width <= 0 || r.Height <= 0 {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: invalid dimensions %dx%d",
					key, i, r.Width, r.Height))
			}
			if r.CacheHit && r.Fingerprint == 0 {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: cache hit under invalid fingerprint", key, i))
			}
			if r.Hash == "" {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: missing hash", key, i))
			}
			if r.Path == "" {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: missing path", key, i))
				continue
			}

			if seenPaths[r.Path] {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: duplicate path %q", key, i, r.Path))
			}
			seenPaths[r.Path] = true

			fullPath := filepath.Join(baseDir, r.Path)
			info, err := os.Stat(fullPath)
			if err != nil {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: file not found: %s", key, i, r.Path))
				continue
			}
			if r.Size > 0 && info.Size() != r.Size {
				errs = append(errs, fmt.Sprintf("source %q rendition[%d]: size mismatch: manifest=%d, disk=%d",
					key, i, r.Size, info.Size()))
			}
			if checkHashes && r.Hash != "" {
				f, err := os.Open(fullPath)
				if err != nil {
					errs = append(errs, fmt.Sprintf("source %q rendition[%d]: %v", key, i, err))
					continue
				}
				got, err := hasher.ContentHashReader(f, len(r.Hash))
				f.Close()
				if err != nil || got != r.Hash {
					errs = append(errs, fmt.Sprintf("source %q rendition[%d]: hash mismatch: manifest=%s, disk=%s",
						key, i, r.Hash, got))
				}
			}
		}
	}

	// Verify stats consistency.
	renditionCount := 0
	for _, src := range m.Sources {
		renditionCount += len(src.Renditions)
	}
	if m.Stats.TotalSources != len(m.Sources) {
		errs = append(errs, fmt.Sprintf("stats.total_sources mismatch: %d != %d", m.Stats.TotalSources, len(m.Sources)))
	}
	if m.Stats.TotalRenditions != renditionCount {
		errs = append(errs, fmt.Sprintf("stats.total_renditions mismatch: %d != %d", m.Stats.TotalRenditions, renditionCount))
	}

	return errs
}
