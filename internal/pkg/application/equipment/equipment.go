package equipment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// Store is the remote equipment store the service derives everything
// from.
type Store interface {
	FetchAll(ctx context.Context) ([]types.Equipment, error)
	FetchHistory(ctx context.Context, tag string) ([]types.HistoryEntry, error)
	CreateOrUpdate(ctx context.Context, e types.Equipment) error
	MarkObsolete(ctx context.Context, tag, reason, category string) error
	SubmitSuggestion(ctx context.Context, s types.Suggestion) error
	FetchSuggestions(ctx context.Context) ([]types.Suggestion, error)
}

// SnapshotCache persists the last successful fetch across restarts and
// store outages.
type SnapshotCache interface {
	Replace(ctx context.Context, fetchedAt time.Time, items []types.Equipment) error
	Latest(ctx context.Context) ([]types.Equipment, time.Time, error)
}

type Management interface {
	Refresh(ctx context.Context) (*compliance.Snapshot, error)
	Snapshot() *compliance.Snapshot

	Create(ctx context.Context, e types.Equipment) error
	MarkObsolete(ctx context.Context, tag, reason, category string) error
	History(ctx context.Context, tag string) ([]types.HistoryEntry, error)

	SubmitSuggestion(ctx context.Context, s types.Suggestion) error
	Suggestions(ctx context.Context) ([]types.Suggestion, error)

	ExportXLSX(ctx context.Context, opts ...compliance.FilterFunc) ([]byte, error)
	HistoryXLSX(ctx context.Context, tag string) ([]byte, error)
}

var (
	ErrNoSnapshot       = fmt.Errorf("no equipment snapshot loaded yet")
	ErrStoreUnavailable = fmt.Errorf("equipment store unavailable")
	ErrMissingTag       = fmt.Errorf("operation requires a real equipment tag")
)

func New(store Store, cache SnapshotCache) Management {
	return &service{
		store:   store,
		cache:   cache,
		nowFunc: time.Now,
	}
}

type service struct {
	store Store
	cache SnapshotCache

	mu      sync.RWMutex
	current *compliance.Snapshot

	nowFunc func() time.Time
}

// Refresh fetches the full record list from the store, recovers missing
// expiry dates from per-tag history and swaps in a freshly derived
// snapshot. When the store is unreachable it falls back to the cached
// copy of the last successful fetch.
func (s *service) Refresh(ctx context.Context) (*compliance.Snapshot, error) {
	log := zerolog.Ctx(ctx)

	items, err := s.store.FetchAll(ctx)
	if err != nil {
		cached, fetchedAt, cacheErr := s.cache.Latest(ctx)
		if cacheErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err.Error())
		}

		log.Warn().Err(err).
			Time("fetchedAt", fetchedAt).
			Msg("store unreachable, serving cached snapshot")

		return s.swap(cached), nil
	}

	s.recoverMissingDates(ctx, items)

	if err := s.cache.Replace(ctx, s.nowFunc(), items); err != nil {
		log.Error().Err(err).Msg("failed to cache fetched snapshot")
	}

	return s.swap(items), nil
}

func (s *service) swap(items []types.Equipment) *compliance.Snapshot {
	snap := compliance.NewSnapshot(items, s.nowFunc())

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	return snap
}

// Snapshot returns the most recently derived snapshot, or nil before the
// first successful refresh.
func (s *service) Snapshot() *compliance.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *service) Create(ctx context.Context, e types.Equipment) error {
	if strings.TrimSpace(e.Tag) == "" {
		return ErrMissingTag
	}

	if err := s.store.CreateOrUpdate(ctx, e); err != nil {
		return err
	}

	_, err := s.Refresh(ctx)
	return err
}

func (s *service) MarkObsolete(ctx context.Context, tag, reason, category string) error {
	if strings.TrimSpace(tag) == "" || tag == types.MissingTag {
		return ErrMissingTag
	}

	if err := s.store.MarkObsolete(ctx, tag, reason, category); err != nil {
		return err
	}

	_, err := s.Refresh(ctx)
	return err
}

func (s *service) History(ctx context.Context, tag string) ([]types.HistoryEntry, error) {
	if strings.TrimSpace(tag) == "" || tag == types.MissingTag {
		return nil, ErrMissingTag
	}
	return s.store.FetchHistory(ctx, tag)
}

func (s *service) SubmitSuggestion(ctx context.Context, suggestion types.Suggestion) error {
	if strings.TrimSpace(suggestion.Description) == "" {
		return fmt.Errorf("a suggestion needs a description")
	}
	return s.store.SubmitSuggestion(ctx, suggestion)
}

func (s *service) Suggestions(ctx context.Context) ([]types.Suggestion, error) {
	return s.store.FetchSuggestions(ctx)
}

// recoverMissingDates fills expiry dates missing from the main sheet by
// looking at each record's change history. Lookups run concurrently, one
// failure only leaves that record without a date.
func (s *service) recoverMissingDates(ctx context.Context, items []types.Equipment) {
	log := zerolog.Ctx(ctx)

	var wg sync.WaitGroup

	for idx := range items {
		e := items[idx]

		if !missingRaw(e.NextDueRaw()) {
			continue
		}
		if e.Tag == types.MissingTag {
			continue
		}
		if status := compliance.Status(e); status == types.StatusObsolete || status == types.StatusRejected {
			continue
		}

		wg.Add(1)
		go func(idx int, e types.Equipment) {
			defer wg.Done()

			entries, err := s.store.FetchHistory(ctx, e.Tag)
			if err != nil {
				log.Debug().Err(err).Str("tag", e.Tag).Msg("date recovery lookup failed")
				return
			}

			if recovered, ok := latestDueFromHistory(entries, e.Category); ok {
				items[idx] = e.WithNextDue(recovered)
			}
		}(idx, e)
	}

	wg.Wait()
}

// latestDueFromHistory extracts the category-appropriate next-due value
// from the most recent history entry that carries one.
func latestDueFromHistory(entries []types.HistoryEntry, category types.Category) (types.RawDate, bool) {
	best := time.Time{}
	var found types.RawDate

	for _, entry := range entries {
		candidate := dueFromEntry(entry, category)
		if missingRaw(candidate) {
			continue
		}

		at := entryTime(entry)
		if found == nil || at.After(best) {
			best = at
			found = candidate
		}
	}

	return found, found != nil
}

func dueFromEntry(entry types.HistoryEntry, category types.Category) types.RawDate {
	switch category {
	case types.CategoryGauge:
		if !missingRaw(entry.NextCalibration) {
			return entry.NextCalibration
		}
		return entry.ValidUntil
	case types.CategoryGeneral:
		if !missingRaw(entry.NextInspection) {
			return entry.NextInspection
		}
		return entry.ValidUntil
	default:
		return entry.ValidUntil
	}
}

// entryTime orders history entries, preferring the precomputed
// timestamps over re-parsing the raw date cells.
func entryTime(entry types.HistoryEntry) time.Time {
	if entry.CalibrationTimestamp > 0 {
		return time.UnixMilli(entry.CalibrationTimestamp)
	}
	if entry.ValidityTimestamp > 0 {
		return time.UnixMilli(entry.ValidityTimestamp)
	}
	for _, raw := range []types.RawDate{entry.CalibratedAt, entry.InspectedAt, entry.CertifiedAt, entry.ValidUntil} {
		if t, ok := compliance.ParseDateSafe(raw); ok {
			return t
		}
	}
	return time.Time{}
}

func missingRaw(v types.RawDate) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		trimmed := strings.TrimSpace(s)
		return trimmed == "" || strings.EqualFold(trimmed, "N/A")
	}
	return false
}
