package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
	log     = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "photorend",
	Short: "Rendition pipeline with fingerprint cache keys",
	Long: `photorend renders photos into target-size renditions through a
configurable chain of operations (orient, power-of-two downscale, exact
finish resize, sharpen, gates).

Every rendition carries a fingerprint computed from dimensions alone, so a
cache can be probed before any pixel is decoded.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"photorend %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// setup loads .env and configures the logger. LOG_LEVEL wins over --verbose.
func setup(*cobra.Command, []string) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
		log.SetLevel(level)
	}
	return nil
}
