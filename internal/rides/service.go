// Package rides implements the ride query and CRUD service, including the
// Redis read-through cache over the relational store.
//
// Cached reads follow one protocol: derive the key from the query shape,
// look it up, decode on a hit, and on a miss (or undecodable entry) query
// the store, repopulate the cache and return the fresh rows. Two
// asymmetries are deliberate and load-bearing: a cache *lookup* failure is
// fatal to the request, while a cache *populate* failure is logged and
// swallowed. Writes never touch the cache, so entries can be stale for up
// to one TTL after a mutation.
package rides

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rosy/taxirides/internal/cache"
	"github.com/rosy/taxirides/internal/codec"
	"github.com/rosy/taxirides/internal/domain"
	"github.com/rosy/taxirides/internal/logging"
	"github.com/rosy/taxirides/internal/metrics"
	"github.com/rosy/taxirides/internal/observability"
	"github.com/rosy/taxirides/internal/store"
)

// ErrCacheUnavailable reports a cache backend failure during a read-through
// lookup. Per the service contract this fails the request instead of
// silently falling back to the relational store.
var ErrCacheUnavailable = errors.New("rides: cache unavailable")

// DefaultTTL is the expiration applied to every cache entry.
const DefaultTTL = 10 * time.Minute

// Service orchestrates ride reads and writes. The cache handle is injected;
// there is no ambient global connection.
type Service struct {
	store store.RideStore
	cache cache.Cache
	ttl   time.Duration
}

// New creates a Service. Pass ttl <= 0 to use DefaultTTL.
func New(st store.RideStore, c cache.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: st, cache: c, ttl: ttl}
}

// ─── uncached reads ──────────────────────────────────────────────────────────

// List returns rides of one kind straight from the store.
func (s *Service) List(ctx context.Context, kind domain.Kind, passengerCount *int, limit *int) ([]domain.Ride, error) {
	return s.store.List(ctx, kind, passengerCount, EffectiveListLimit(limit))
}

// ListMerged returns rides of both kinds merged and sorted ascending by id.
// Each source table contributes at most the per-table limit.
func (s *Service) ListMerged(ctx context.Context, passengerCount *int, limit *int) ([]domain.Ride, error) {
	perTable := EffectiveMergedLimit(limit)
	return s.fetchMerged(ctx, passengerCount, perTable)
}

// Get returns a single ride straight from the store.
func (s *Service) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Ride, error) {
	return s.store.GetByID(ctx, kind, id)
}

func (s *Service) fetchMerged(ctx context.Context, passengerCount *int, perTable int) ([]domain.Ride, error) {
	var combined []domain.Ride
	for _, kind := range domain.Kinds() {
		rows, err := s.store.List(ctx, kind, passengerCount, perTable)
		if err != nil {
			return nil, err
		}
		combined = append(combined, rows...)
	}
	sort.Slice(combined, func(i, j int) bool {
		return combined[i].ID < combined[j].ID
	})
	return combined, nil
}

// ─── cached reads ────────────────────────────────────────────────────────────

// ListCached serves an all-of-kind query through the cache. On a hit it
// returns the decoded snapshot (loosely typed); on a miss it returns fresh
// snapshots and repopulates the cache.
func (s *Service) ListCached(ctx context.Context, kind domain.Kind, passengerCount *int, limit *int) (any, error) {
	ctx, span := observability.StartSpan(ctx, "rides.ListCached",
		observability.AttrKind.String(kind.String()))
	defer span.End()

	effLimit := EffectiveListLimit(limit)
	key := ListKey(kind, passengerCount, effLimit)

	if hit, val, err := s.lookup(ctx, "list", key, codec.Decode); err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	} else if hit {
		span.SetAttributes(observability.AttrCacheHit.Bool(true))
		return val, nil
	}

	rows, err := s.store.List(ctx, kind, passengerCount, effLimit)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}

	snapshots := domain.Snapshots(rows)
	s.populate(ctx, key, snapshots, codec.Encode)
	return snapshots, nil
}

// ListMergedCached serves the merged two-kind query through the cache.
func (s *Service) ListMergedCached(ctx context.Context, passengerCount *int, limit *int) (any, error) {
	ctx, span := observability.StartSpan(ctx, "rides.ListMergedCached")
	defer span.End()

	perTable := EffectiveMergedLimit(limit)
	key := MergedKey(passengerCount, perTable)

	if hit, val, err := s.lookup(ctx, "merged", key, codec.Decode); err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	} else if hit {
		span.SetAttributes(observability.AttrCacheHit.Bool(true))
		return val, nil
	}

	rows, err := s.fetchMerged(ctx, passengerCount, perTable)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}

	snapshots := domain.Snapshots(rows)
	s.populate(ctx, key, snapshots, codec.Encode)
	return snapshots, nil
}

// GetCached serves a point lookup through the cache. Point entries are
// stored as plain uncompressed JSON, unlike list entries. Returns
// domain.ErrNotFound when neither the cache nor the store has the ride.
func (s *Service) GetCached(ctx context.Context, kind domain.Kind, id string) (any, error) {
	ctx, span := observability.StartSpan(ctx, "rides.GetCached",
		observability.AttrKind.String(kind.String()))
	defer span.End()

	key := PointKey(kind, id)

	if hit, val, err := s.lookup(ctx, "point", key, codec.DecodeRaw); err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	} else if hit {
		span.SetAttributes(observability.AttrCacheHit.Bool(true))
		return val, nil
	}

	ride, err := s.store.GetByID(ctx, kind, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			observability.SetSpanError(span, err)
		}
		return nil, err
	}

	snapshot := ride.Snapshot()
	s.populate(ctx, key, snapshot, codec.EncodeRaw)
	return snapshot, nil
}

// lookup checks the cache for key and decodes a present value. A backend
// failure is fatal (ErrCacheUnavailable); an undecodable entry counts as a
// miss and will be overwritten by the repopulate step.
func (s *Service) lookup(ctx context.Context, shape, key string, decode func([]byte) (any, error)) (bool, any, error) {
	data, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		metrics.RecordCacheOp(shape, metrics.OutcomeMiss)
		return false, nil, nil
	}
	if err != nil {
		metrics.RecordCacheOp(shape, metrics.OutcomeError)
		return false, nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}

	val, err := decode(data)
	if err != nil {
		metrics.RecordCacheOp(shape, metrics.OutcomeDecodeError)
		logging.Op().Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		return false, nil, nil
	}

	metrics.RecordCacheOp(shape, metrics.OutcomeHit)
	return true, val, nil
}

// populate encodes v and writes it under key with the service TTL. Failures
// are logged and discarded: the freshly computed result is still returned
// to the caller and the cache simply stays cold.
func (s *Service) populate(ctx context.Context, key string, v any, encode func(any) ([]byte, error)) {
	data, err := encode(v)
	if err == nil {
		err = s.cache.Set(ctx, key, data, s.ttl)
	}
	if err != nil {
		metrics.RecordCacheWriteFailure()
		logging.Op().Warn("cache populate failed", "key", key, "error", err)
	}
}

// ─── writes (no cache invalidation) ──────────────────────────────────────────

// Create inserts a fully-specified ride. Existing cache entries covering
// this ride's query shapes stay as they are until TTL expiry.
func (s *Service) Create(ctx context.Context, kind domain.Kind, ride *domain.Ride) error {
	return s.store.Insert(ctx, kind, ride)
}

// Update applies a partial update. Cached snapshots of this ride remain
// stale until TTL expiry.
func (s *Service) Update(ctx context.Context, kind domain.Kind, id string, upd *domain.RideUpdate) error {
	return s.store.Update(ctx, kind, id, upd)
}

// Delete removes a ride by id. Cached snapshots are not invalidated.
func (s *Service) Delete(ctx context.Context, kind domain.Kind, id string) error {
	return s.store.Delete(ctx, kind, id)
}
