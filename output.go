package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"findsimilar/imageprocessor"
	"findsimilar/scanner"
	"findsimilar/types"
)

type jsonFileError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

type jsonScanResult struct {
	Status     scanner.Status         `json:"status"`
	Cancelled  bool                   `json:"cancelled"`
	Threshold  int                    `json:"threshold"`
	Algorithm  types.Algorithm        `json:"algorithm"`
	Groups     []types.DuplicateGroup `json:"groups"`
	Errors     []jsonFileError        `json:"errors"`
	Stats      scanner.Stats          `json:"stats"`
	DurationMS int64                  `json:"duration_ms"`
}

func writeJSON(w io.Writer, r *scanner.ScanResult) error {
	out := jsonScanResult{
		Status:     r.Status,
		Cancelled:  r.Cancelled,
		Threshold:  r.Threshold,
		Algorithm:  r.Algorithm,
		Groups:     r.Groups,
		Errors:     make([]jsonFileError, len(r.Errors)),
		Stats:      r.Stats,
		DurationMS: r.Duration.Milliseconds(),
	}
	if out.Groups == nil {
		out.Groups = []types.DuplicateGroup{}
	}
	for i, fe := range r.Errors {
		out.Errors[i] = jsonFileError{Path: fe.Path, Reason: string(fe.Reason), Error: fe.Error()}
	}
	return writeJSONValue(w, out)
}

func writeJSONValue(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScanResult(w io.Writer, r *scanner.ScanResult) {
	fingerprints := make(map[string]types.Fingerprint, len(r.Records))
	for _, rec := range r.Records {
		if rec.HasHash {
			fingerprints[rec.Path] = rec.Fingerprint
		}
	}

	for _, g := range r.Groups {
		fmt.Fprintf(w, "Group %d (%d images, max distance %d):\n", g.ID, len(g.Members), g.MaxDistance)
		for _, m := range g.Members {
			fmt.Fprintf(w, "  %s  %s\n", imageprocessor.FormatFingerprint(r.Algorithm, fingerprints[m]), m)
		}
	}
	if len(r.Groups) == 0 {
		fmt.Fprintln(w, "No similar images found.")
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\nSkipped %d %s:\n", len(r.Errors), plural(len(r.Errors), "file", "files"))
		for _, fe := range r.Errors {
			fmt.Fprintf(w, "  [%s] %s\n", fe.Reason, fe.Path)
		}
	}

	fmt.Fprintln(w)
	switch r.Status {
	case scanner.StatusCancelled:
		fmt.Fprintf(w, "Scan cancelled: partial result for %d of %d images.\n", r.Stats.Processed, r.Stats.Discovered)
	default:
		fmt.Fprintf(w, "Scan completed in %v.\n", r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "- Images processed: %d\n", r.Stats.Processed)
	fmt.Fprintf(w, "- Hashed: %d, from cache: %d\n", r.Stats.Hashed, r.Stats.CacheHits)
	fmt.Fprintf(w, "- Errors: %d\n", r.Stats.Errors)
	fmt.Fprintf(w, "- Duplicate groups: %d (threshold %d, %s)\n", len(r.Groups), r.Threshold, r.Algorithm)
}

func printMatches(w io.Writer, query string, alg types.Algorithm, fp types.Fingerprint, matches []types.ImageMatch) {
	fmt.Fprintf(w, "Query: %s (%s)\n", query, imageprocessor.FormatFingerprint(alg, fp))
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}
	fmt.Fprintln(w, "\nTop Matches:")
	for i, m := range matches {
		fmt.Fprintf(w, "%d. Image: %s\n", i+1, m.Path)
		fmt.Fprintf(w, "   Distance: %d bits\n", m.Distance)
	}
}
