package v1

import (
	"github.com/tinoosan/paytrace/internal/service/tracker"
	"github.com/tinoosan/paytrace/internal/storage/memory"
)

// Compile-time interface assertions for the in-memory Store against HTTP API interfaces.
var (
	_ tracker.Repo   = (*memory.Store)(nil)
	_ tracker.Writer = (*memory.Store)(nil)
	_ RecordReader   = (*memory.Store)(nil)
)
