package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/rsilvagit/go-airdrop/internal/version.Version=...".
var (
	Version   = "dev"     // ex: v0.3.0
	Commit    = "none"    // ex: abcd123
	BuildDate = "unknown" // ex: 2026-03-01T09:00:00Z
	GoVersion = runtime.Version()
)

func String() string {
	return fmt.Sprintf("go-airdrop %s (commit %s, built %s, %s)", Version, Commit, BuildDate, GoVersion)
}
