package cmd

import (
	"fmt"

	"github.com/AnyUserName/photorend/internal/ops"
	"github.com/AnyUserName/photorend/internal/profile"
	"github.com/spf13/cobra"
)

var (
	fpProfile     string
	fpConfig      string
	fpOrientation int
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <source WxH> <target WxH>",
	Short: "Print the rendition fingerprint for a source and target size",
	Long: `Evaluates the profile's operation chain on dimensions alone and prints
the fingerprint a rendition would be cached under, plus the size the
rendition would have. No image is read.

A fingerprint of 0 means a gate rejected the request and the result must
not be cached.`,
	Args: cobra.ExactArgs(2),
	RunE: runFingerprint,
}

func init() {
	fingerprintCmd.Flags().StringVarP(&fpProfile, "profile", "p", "web", "built-in profile")
	fingerprintCmd.Flags().StringVarP(&fpConfig, "config", "c", "", "YAML profile file (overrides --profile)")
	fingerprintCmd.Flags().IntVar(&fpOrientation, "orientation", 1, "EXIF orientation of the source (1-8)")
	rootCmd.AddCommand(fingerprintCmd)
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	src, err := profile.ParseSize(args[0])
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if src.W == 0 || src.H == 0 {
		return fmt.Errorf("source %q: both dimensions are required", args[0])
	}
	dst, err := profile.ParseSize(args[1])
	if err != nil {
		return err
	}
	if fpOrientation < 1 || fpOrientation > 8 {
		return fmt.Errorf("orientation must be between 1 and 8, got %d", fpOrientation)
	}

	prof, err := resolveProfile(fpProfile, fpConfig)
	if err != nil {
		return err
	}
	rp, err := prof.Build()
	if err != nil {
		return err
	}

	fp, out := rp.Predict(ops.Probe{Width: src.W, Height: src.H, Orientation: fpOrientation}, dst)
	log.WithField("profile", prof.Name).Debugf("chain %v", rp.Kinds())

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "fingerprint: %d\n", fp)
	fmt.Fprintf(w, "rendition:   %dx%d\n", out.Width, out.Height)
	switch {
	case fp == ops.InvalidFingerprint:
		fmt.Fprintln(w, "cacheable:   no (gated)")
	case !rp.CacheEnabled():
		fmt.Fprintln(w, "cacheable:   no (cache disabled by profile)")
	default:
		fmt.Fprintln(w, "cacheable:   yes")
	}
	return nil
}
