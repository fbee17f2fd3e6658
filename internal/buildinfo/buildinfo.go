package buildinfo

import (
	"fmt"
	"time"
)

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitTime string // last git commit time (last code edit)
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Summary renders the build metadata for `recs version`
func Summary() string {
	return fmt.Sprintf("shoprecs %s\n  commit: %s (%s)\n  built:  %s\n",
		Version, orUnknown(CommitHash), orUnknown(CommitTime), orUnknown(BuildTime))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
