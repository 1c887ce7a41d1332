package preflight

import (
	"context"
	"strings"

	"fingergate/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the readiness checks for the given config. The storage check
// is skipped when pinger is nil.
func RunAll(ctx context.Context, cfg *config.Config, pinger Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if strings.TrimSpace(cfg.Engine.WorkDir) != "" {
		results = append(results, CheckDirectoryAccess("Engine work directory", cfg.Engine.WorkDir))
	}

	for _, status := range CheckSystemDeps(cfg) {
		if !status.Available {
			results = append(results, Result{Name: status.Name, Detail: status.Detail})
			continue
		}
		results = append(results, CheckExecutable(status.Name, status.Resolved))
	}

	if pinger != nil {
		results = append(results, CheckStorage(ctx, "Storage ("+cfg.Storage.Driver+")", pinger, cfg.ConnectTimeout()))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
