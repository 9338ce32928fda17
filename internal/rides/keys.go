package rides

import (
	"fmt"
	"math"

	"github.com/rosy/taxirides/internal/domain"
)

// Cache keys are pure functions of the query shape (entity kind, optional
// passenger-count filter, effective limit), so two processes computing the
// key for the same query always agree. Segments are joined with "_":
//
//	all_RideVendor1_10000        all rides of one kind, default limit
//	all_RideVendor2_50_3         limit 50, passenger_count = 3
//	complete_rides_5000          merged query, default per-table limit
//	RideVendor1_id1875421        point lookup
//
// Kind names never start with "all" or "complete", so the namespaces cannot
// collide.

const (
	// DefaultListLimit caps all-of-kind queries when the caller gives none.
	DefaultListLimit = 10000

	// DefaultMergedPerTableLimit caps each source table of the merged
	// query when the caller gives no limit. Cached and uncached merged
	// reads share this default so both paths see the same result set.
	DefaultMergedPerTableLimit = 5000
)

// EffectiveListLimit resolves the row limit for an all-of-kind query.
func EffectiveListLimit(limit *int) int {
	if limit != nil {
		return *limit
	}
	return DefaultListLimit
}

// EffectiveMergedLimit resolves the per-table row limit for the merged
// query: half the caller's limit when present, else the fixed default.
func EffectiveMergedLimit(limit *int) int {
	if limit != nil {
		return int(math.Round(float64(*limit) / 2))
	}
	return DefaultMergedPerTableLimit
}

// ListKey derives the cache key for an all-of-kind query.
func ListKey(kind domain.Kind, passengerCount *int, limit int) string {
	key := fmt.Sprintf("all_%s_%d", kind, limit)
	if passengerCount != nil {
		key += fmt.Sprintf("_%d", *passengerCount)
	}
	return key
}

// MergedKey derives the cache key for the merged two-kind query. limit is
// the per-table limit.
func MergedKey(passengerCount *int, limit int) string {
	key := fmt.Sprintf("complete_rides_%d", limit)
	if passengerCount != nil {
		key += fmt.Sprintf("_%d", *passengerCount)
	}
	return key
}

// PointKey derives the cache key for a single-ride lookup.
func PointKey(kind domain.Kind, id string) string {
	return fmt.Sprintf("%s_%s", kind, id)
}
