package postgres

import (
	"github.com/tinoosan/paytrace/internal/service/report"
	"github.com/tinoosan/paytrace/internal/service/tracker"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ tracker.Repo   = (*Store)(nil)
	_ tracker.Writer = (*Store)(nil)
	_ report.Repo    = (*Store)(nil)
)
