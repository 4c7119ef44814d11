package engine

import "github.com/your-org/reident/internal/observability"

// resolveStageHook is a package-level var rather than a direct call so
// it can be replaced, e.g. by a test. The engine package imports
// internal/observability elsewhere as well, so Prometheus collectors are
// linked into its test binary either way.
var resolveStageHook = func(stage string) {
	observability.ResolveCalls.WithLabelValues(stage).Inc()
}
