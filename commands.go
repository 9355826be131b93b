package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"findsimilar/cache"
	"findsimilar/config"
	"findsimilar/imageprocessor"
	"findsimilar/index"
	"findsimilar/scanner"
	"findsimilar/signalhandler"
	"findsimilar/types"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// algorithmFlag binds a types.Algorithm to a pflag string value
type algorithmFlag struct{ alg *types.Algorithm }

func (f algorithmFlag) String() string { return string(*f.alg) }

func (f algorithmFlag) Set(v string) error {
	alg, err := types.ParseAlgorithm(v)
	if err != nil {
		return err
	}
	*f.alg = alg
	return nil
}

func (f algorithmFlag) Type() string { return "algorithm" }

func addMatchFlags(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().IntVarP(&cfg.Threshold, "threshold", "t", cfg.Threshold, "maximum number of differing fingerprint bits (0-64)")
	cmd.Flags().VarP(algorithmFlag{&cfg.Algorithm}, "algorithm", "a", "hash algorithm: ahash, dhash or phash")
	cmd.Flags().StringVar(&cfg.Backend, "backend", cfg.Backend, "image decoding backend: native or opencv")
}

func newScanCmd(cfg *config.Config) *cobra.Command {
	var (
		noCache bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "scan <folder>...",
		Short: "Scan folders for duplicate images",
		Long: `Scan folders recursively, fingerprint every supported image and print the
groups of near-duplicates.

Press Ctrl+C once to stop early and print the partial result; twice to quit.

Example:
  findsimilar scan ~/Pictures --threshold 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalhandler.NotifyContext(cmd.Context())
			defer stop()

			opts := scanner.Options{
				Roots:            args,
				Threshold:        cfg.Threshold,
				Algorithm:        cfg.Algorithm,
				CacheLocation:    cfg.CachePath,
				Backend:          imageprocessor.Backend(cfg.Backend),
				Workers:          cfg.Workers,
				Extensions:       cfg.Extensions,
				ProgressInterval: cfg.ProgressInterval,
			}
			if noCache {
				opts.CacheLocation = ""
			}

			bar := newProgressDisplay()
			opts.OnProgress = bar.update

			result, err := runScan(ctx, opts)
			bar.finish()
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(os.Stdout, result)
			}
			printScanResult(os.Stdout, result)
			if !noCache {
				printCacheStats(os.Stdout, cfg.CachePath)
			}
			return nil
		},
	}

	addMatchFlags(cmd, cfg)
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "number of hashing workers (0 = automatic)")
	cmd.Flags().StringSliceVar(&cfg.Extensions, "ext", cfg.Extensions, "only scan these extensions (default: every supported format)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not read or write the fingerprint cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func runScan(ctx context.Context, opts scanner.Options) (*scanner.ScanResult, error) {
	h, err := scanner.Start(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("scan could not start: %w", err)
	}
	return h.Wait(), nil
}

// progressDisplay renders scan progress on stderr. update is only ever
// called from the scanner's progress goroutine.
type progressDisplay struct {
	bar *progressbar.ProgressBar
}

func newProgressDisplay() *progressDisplay {
	return &progressDisplay{}
}

func (d *progressDisplay) update(p scanner.Progress) {
	if d.bar == nil {
		if p.Total == 0 {
			return
		}
		d.bar = progressbar.Default(int64(p.Total), "Hashing images")
	}
	d.bar.Set(p.Processed)
}

func (d *progressDisplay) finish() {
	if d.bar != nil {
		d.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func newSearchCmd(cfg *config.Config) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <image>",
		Short: "List cached images similar to one image",
		Long: `Fingerprint one image and list the images in the cache whose fingerprints
are within --threshold bits, closest first. Run scan first to fill the cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.CachePath); err != nil {
				return fmt.Errorf("cache %s does not exist, run scan first", cfg.CachePath)
			}

			c, err := cache.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer c.Close()

			hasher := imageprocessor.NewHasher(afero.NewOsFs(), imageprocessor.Backend(cfg.Backend), cfg.Algorithm)
			defer hasher.Close()
			fp, err := hasher.Fingerprint(query)
			if err != nil {
				return err
			}

			entries, err := c.Entries(cfg.Algorithm)
			if err != nil {
				return err
			}
			results := findMatches(afero.NewOsFs(), entries, query, fp, cfg.Threshold, limit)

			if asJSON {
				return writeJSONValue(os.Stdout, results)
			}
			printMatches(os.Stdout, query, cfg.Algorithm, fp, results)
			return nil
		},
	}

	addMatchFlags(cmd, cfg)
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "show at most this many matches (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the matches as JSON")
	return cmd
}

// findMatches returns the cached images within threshold of fp, closest
// first. Entries for files that were deleted or changed since they were
// cached, and the query itself, are left out.
func findMatches(fs afero.Fs, entries []cache.Entry, query string, fp types.Fingerprint, threshold, limit int) []types.ImageMatch {
	current := cache.Current(fs, entries)
	indexed := make([]index.Entry, 0, len(current))
	for _, e := range current {
		if e.Path != query {
			indexed = append(indexed, index.Entry{ID: e.Path, Hash: e.Fingerprint})
		}
	}

	matches := index.New(indexed).Within(fp, threshold)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]types.ImageMatch, len(matches))
	for i, m := range matches {
		results[i] = types.ImageMatch{Path: m.ID, Fingerprint: m.Hash, Distance: m.Distance}
	}
	return results
}

func newPruneCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove cache entries for missing or changed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer c.Close()

			removed, err := c.Prune(afero.NewOsFs())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d stale %s from %s\n", removed, plural(removed, "entry", "entries"), cfg.CachePath)
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func printCacheStats(w io.Writer, path string) {
	c, err := cache.Open(path)
	if err != nil {
		return
	}
	defer c.Close()

	stats, err := c.Stats()
	if err != nil {
		return
	}
	fmt.Fprintf(w, "\nCache: %s\n", c.Path())
	fmt.Fprintf(w, "- Cached fingerprints: %d\n", stats.Entries)
	fmt.Fprintf(w, "- Unique fingerprints: %d\n", stats.UniqueHashes)
}
