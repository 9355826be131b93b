// Command findsimilar finds near-duplicate images by perceptual hash.
package main

import (
	"context"
	"fmt"
	"os"

	"findsimilar/config"
	"findsimilar/imageprocessor"
	"findsimilar/logging"

	"github.com/spf13/cobra"
)

// defaultLogFile is used when --debug is given without --logfile
const defaultLogFile = "findsimilar.log"

func main() {
	cfg := config.Load()
	if err := newRootCmd(cfg).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "findsimilar",
		Short: "Find near-duplicate images",
		Long: `findsimilar scans folders for images, fingerprints them with a perceptual
hash and groups pictures whose fingerprints differ in at most --threshold bits.

Fingerprints are cached in a SQLite file so unchanged images are only decoded once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Backend == config.BackendOpenCV && !imageprocessor.OpenCVAvailable {
				return fmt.Errorf("the opencv backend is not available in this build (rebuild with -tags opencv)")
			}
			return setupLogging(cfg)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseLogger()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "fingerprint cache file")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flags.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "write the log to this file (default "+defaultLogFile+" with --debug)")

	root.AddCommand(newScanCmd(cfg), newSearchCmd(cfg), newPruneCmd(cfg))
	return root
}

func setupLogging(cfg *config.Config) error {
	logPath := cfg.LogFile
	if logPath == "" && cfg.Debug {
		logPath = defaultLogFile
	}
	if logPath == "" {
		return nil
	}
	if err := logging.SetupLogger(logPath, cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
		return nil
	}
	if cfg.Debug {
		fmt.Fprintf(os.Stderr, "Debug mode enabled. Logging to: %s\n", logPath)
	}
	return nil
}
