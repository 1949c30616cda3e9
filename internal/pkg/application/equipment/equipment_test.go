package equipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

var testNow = time.Date(2024, time.May, 10, 15, 0, 0, 0, time.Local)

type storeMock struct {
	FetchAllFunc         func(ctx context.Context) ([]types.Equipment, error)
	FetchHistoryFunc     func(ctx context.Context, tag string) ([]types.HistoryEntry, error)
	CreateOrUpdateFunc   func(ctx context.Context, e types.Equipment) error
	MarkObsoleteFunc     func(ctx context.Context, tag, reason, category string) error
	SubmitSuggestionFunc func(ctx context.Context, s types.Suggestion) error
	FetchSuggestionsFunc func(ctx context.Context) ([]types.Suggestion, error)
}

func (m *storeMock) FetchAll(ctx context.Context) ([]types.Equipment, error) {
	return m.FetchAllFunc(ctx)
}

func (m *storeMock) FetchHistory(ctx context.Context, tag string) ([]types.HistoryEntry, error) {
	if m.FetchHistoryFunc == nil {
		return nil, nil
	}
	return m.FetchHistoryFunc(ctx, tag)
}

func (m *storeMock) CreateOrUpdate(ctx context.Context, e types.Equipment) error {
	return m.CreateOrUpdateFunc(ctx, e)
}

func (m *storeMock) MarkObsolete(ctx context.Context, tag, reason, category string) error {
	return m.MarkObsoleteFunc(ctx, tag, reason, category)
}

func (m *storeMock) SubmitSuggestion(ctx context.Context, s types.Suggestion) error {
	return m.SubmitSuggestionFunc(ctx, s)
}

func (m *storeMock) FetchSuggestions(ctx context.Context) ([]types.Suggestion, error) {
	return m.FetchSuggestionsFunc(ctx)
}

type cacheMock struct {
	items     []types.Equipment
	fetchedAt time.Time
	replaced  int
}

func (m *cacheMock) Replace(ctx context.Context, fetchedAt time.Time, items []types.Equipment) error {
	m.items = items
	m.fetchedAt = fetchedAt
	m.replaced++
	return nil
}

func (m *cacheMock) Latest(ctx context.Context) ([]types.Equipment, time.Time, error) {
	if m.items == nil {
		return nil, time.Time{}, fmt.Errorf("no cached snapshot available")
	}
	return m.items, m.fetchedAt, nil
}

func newTestService(store *storeMock, cache *cacheMock) *service {
	svc := New(store, cache).(*service)
	svc.nowFunc = func() time.Time { return testNow }
	return svc
}

func activeGeneral(tag string, due types.RawDate) types.Equipment {
	return types.Equipment{
		InternalID: "eq-" + tag,
		Tag:        tag,
		Category:   types.CategoryGeneral,
		Result:     "APROVADO",
		Deleted:    types.DeletedNo,
		Inspection: &types.InspectionDetails{NextInspection: due},
	}
}

func TestRefreshBuildsSnapshotAndCaches(t *testing.T) {
	is := is.New(t)

	cache := &cacheMock{}
	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return []types.Equipment{
				activeGeneral("EQ-001", "2024-06-01"),
				activeGeneral("EQ-002", "2024-12-01"),
			}, nil
		},
	}

	svc := newTestService(store, cache)

	snap, err := svc.Refresh(context.Background())
	is.NoErr(err)
	is.Equal(2, snap.Size())
	is.Equal(1, cache.replaced)
	is.True(svc.Snapshot() == snap)
}

func TestRefreshServesCacheWhenStoreIsDown(t *testing.T) {
	is := is.New(t)

	cache := &cacheMock{
		items:     []types.Equipment{activeGeneral("EQ-001", "2024-06-01")},
		fetchedAt: testNow.Add(-time.Hour),
	}
	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return nil, fmt.Errorf("timeout")
		},
	}

	svc := newTestService(store, cache)

	snap, err := svc.Refresh(context.Background())
	is.NoErr(err)
	is.Equal(1, snap.Size())
	is.Equal(0, cache.replaced)
}

func TestRefreshFailsWithoutStoreOrCache(t *testing.T) {
	is := is.New(t)

	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return nil, fmt.Errorf("timeout")
		},
	}

	svc := newTestService(store, &cacheMock{})

	_, err := svc.Refresh(context.Background())
	is.True(errors.Is(err, ErrStoreUnavailable))
	is.Equal((*compliance.Snapshot)(nil), svc.Snapshot())
}

func TestRefreshRecoversMissingDatesFromHistory(t *testing.T) {
	is := is.New(t)

	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return []types.Equipment{
				activeGeneral("EQ-001", nil),
				activeGeneral("EQ-002", "2024-12-01"),
			}, nil
		},
		FetchHistoryFunc: func(ctx context.Context, tag string) ([]types.HistoryEntry, error) {
			is.Equal("EQ-001", tag)
			return []types.HistoryEntry{
				{Tag: tag, NextInspection: "2023-06-01", ValidityTimestamp: 1_650_000_000_000},
				{Tag: tag, NextInspection: "2024-06-01", ValidityTimestamp: 1_700_000_000_000},
			}, nil
		},
	}

	svc := newTestService(store, &cacheMock{})

	snap, err := svc.Refresh(context.Background())
	is.NoErr(err)

	items := snap.Active()
	is.Equal(2, len(items))

	for _, e := range items {
		if e.Tag == "EQ-001" {
			// the most recent history entry wins
			is.Equal("2024-06-01", e.Inspection.NextInspection)
		}
	}
}

func TestRefreshLeavesDateMissingWhenHistoryFails(t *testing.T) {
	is := is.New(t)

	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return []types.Equipment{activeGeneral("EQ-001", nil)}, nil
		},
		FetchHistoryFunc: func(ctx context.Context, tag string) ([]types.HistoryEntry, error) {
			return nil, fmt.Errorf("quota exceeded")
		},
	}

	svc := newTestService(store, &cacheMock{})

	snap, err := svc.Refresh(context.Background())
	is.NoErr(err)
	is.Equal(nil, snap.Active()[0].Inspection.NextInspection)
}

func TestRefreshSkipsDateRecoveryForInactiveRecords(t *testing.T) {
	is := is.New(t)

	rejected := activeGeneral("EQ-001", nil)
	rejected.Result = "REPROVADO"

	obsolete := activeGeneral("EQ-002", nil)
	obsolete.Deleted = types.DeletedYes

	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return []types.Equipment{rejected, obsolete}, nil
		},
		FetchHistoryFunc: func(ctx context.Context, tag string) ([]types.HistoryEntry, error) {
			t.Errorf("unexpected history lookup for %s", tag)
			return nil, nil
		},
	}

	svc := newTestService(store, &cacheMock{})

	_, err := svc.Refresh(context.Background())
	is.NoErr(err)
}

func TestMarkObsoleteRejectsMissingTag(t *testing.T) {
	is := is.New(t)

	svc := newTestService(&storeMock{}, &cacheMock{})

	is.True(errors.Is(svc.MarkObsolete(context.Background(), "", "", ""), ErrMissingTag))
	is.True(errors.Is(svc.MarkObsolete(context.Background(), types.MissingTag, "", ""), ErrMissingTag))
}

func TestMarkObsoleteRefreshes(t *testing.T) {
	is := is.New(t)

	deleted := ""
	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return []types.Equipment{}, nil
		},
		MarkObsoleteFunc: func(ctx context.Context, tag, reason, category string) error {
			deleted = tag
			return nil
		},
	}
	cache := &cacheMock{}

	svc := newTestService(store, cache)

	is.NoErr(svc.MarkObsolete(context.Background(), "EQ-001", "substituído", "DEMAIS EQUIPAMENTOS"))
	is.Equal("EQ-001", deleted)
	is.Equal(1, cache.replaced)
}

func TestCreateValidatesTag(t *testing.T) {
	is := is.New(t)

	svc := newTestService(&storeMock{}, &cacheMock{})

	err := svc.Create(context.Background(), types.Equipment{Tag: "   "})
	is.True(errors.Is(err, ErrMissingTag))
}

func TestHistoryRejectsMissingTag(t *testing.T) {
	is := is.New(t)

	svc := newTestService(&storeMock{}, &cacheMock{})

	_, err := svc.History(context.Background(), types.MissingTag)
	is.True(errors.Is(err, ErrMissingTag))
}

func TestSubmitSuggestionNeedsDescription(t *testing.T) {
	is := is.New(t)

	svc := newTestService(&storeMock{}, &cacheMock{})

	err := svc.SubmitSuggestion(context.Background(), types.Suggestion{Name: "Ana"})
	is.True(err != nil)
}

func TestExportXLSXWithoutSnapshot(t *testing.T) {
	is := is.New(t)

	svc := newTestService(&storeMock{}, &cacheMock{})

	_, err := svc.ExportXLSX(context.Background())
	is.True(errors.Is(err, ErrNoSnapshot))
}

func TestExportXLSXProducesWorkbook(t *testing.T) {
	is := is.New(t)

	store := &storeMock{
		FetchAllFunc: func(ctx context.Context) ([]types.Equipment, error) {
			return []types.Equipment{activeGeneral("EQ-001", "2024-06-01")}, nil
		},
	}

	svc := newTestService(store, &cacheMock{})

	_, err := svc.Refresh(context.Background())
	is.NoErr(err)

	buf, err := svc.ExportXLSX(context.Background())
	is.NoErr(err)
	is.True(len(buf) > 0)
}

func TestLoadConfiguration(t *testing.T) {
	is := is.New(t)

	cfg, err := LoadConfiguration(strings.NewReader(`
categories:
  - category: MANÔMETROS
    contains:
      - VACU
refreshIntervalSeconds: 120
`))
	is.NoErr(err)
	is.Equal(120, cfg.RefreshIntervalSeconds)
	is.Equal(1, len(cfg.Categories))
	is.Equal(types.CategoryGauge, cfg.Categories[0].Category)
	is.Equal([]string{"VACU"}, cfg.Categories[0].Contains)
}
