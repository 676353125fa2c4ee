package preflight

import (
	"context"

	"mediasort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// RunAll executes the checks for sorting src into dst with cfg.
// Checks for optional state (log file, history) are skipped when disabled.
func RunAll(ctx context.Context, cfg *config.Config, src, dst string) []Result {
	results := []Result{
		CheckDirectoryAccess("Source directory", src),
		CheckDestination("Destination directory", dst),
	}
	if cfg == nil {
		return results
	}

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDestination("Log directory", cfg.Paths.LogDir))
	} else {
		results = append(results, Result{Name: "Log directory", Skipped: true, Detail: "file logging disabled"})
	}

	results = append(results, CheckHistory(ctx, cfg))
	return results
}

// Failed reports whether any non-skipped check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Skipped {
			return true
		}
	}
	return false
}
