package stats

import (
	"context"

	"github.com/google/uuid"
)

// Cache keys for the memoized statistics queries. Write paths that change
// template or instance aggregates must invalidate these.
const (
	// TemplateStatsKey caches the default (unfiltered) template stats query
	TemplateStatsKey = "stats:templates:default"

	// detailStatsKeyPrefix prefixes the per-template detail stats keys
	detailStatsKeyPrefix = "stats:template_detail:"
)

// DetailStatsKey returns the cache key for one template's detail stats
func DetailStatsKey(templateID uuid.UUID) string {
	return detailStatsKeyPrefix + templateID.String()
}

// StatsCache is the best-effort memoization port for computed statistics.
// Absence is not an error: Get reports a miss and callers recompute.
type StatsCache interface {
	// Get unmarshals the cached value into dest and reports whether the
	// key was present
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores the value under key, overwriting any previous entry
	Set(ctx context.Context, key string, value any) error

	// Invalidate removes the given keys; missing keys are ignored
	Invalidate(ctx context.Context, keys ...string) error
}
