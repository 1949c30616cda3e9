package compliance

import (
	"sync"
	"testing"

	"github.com/matryer/is"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

func snapshotFixture() *Snapshot {
	rejected := newGeneral("EQ-900", "Caldeiraria", daysFromNow(-10))
	rejected.Result = "REPROVADO"

	obsolete := newSafety("NR10-900", "Subestação", daysFromNow(100))
	obsolete.Deleted = types.DeletedYes

	return NewSnapshot([]types.Equipment{
		newGauge("MAN-001", "Sala A", "0-10 bar", types.FunctionPrincipal, daysFromNow(10)),
		newGauge("MAN-002", "Sala A", "0-10 bar", types.FunctionReserve, daysFromNow(180)),
		newSafety("NR10-001", "Subestação", daysFromNow(-5)),
		newSafety("NR10-002", "Subestação", daysFromNow(30)),
		newGeneral("EQ-001", "Oficina", daysFromNow(90)),
		newGeneral("EQ-002", "", nil),
		rejected,
		obsolete,
	}, testNow)
}

func TestSnapshotPartitions(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	is.Equal(8, s.Size())
	is.Equal(6, len(s.Active()))
	is.Equal(1, len(s.Rejected()))
	is.Equal(1, len(s.Obsolete()))
	is.Equal("EQ-900", s.Rejected()[0].Tag)
	is.Equal("NR10-900", s.Obsolete()[0].Tag)
}

func TestDashboardWithoutFiltersReturnsActiveSet(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	// "all" and an empty search narrow nothing
	items := s.Dashboard(WithCategories(CategoryAll), WithSearch(""))
	is.Equal(s.Active(), items)
}

func TestDashboardIsIdempotent(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()
	opts := []FilterFunc{
		WithCategories(string(types.CategoryGauge)),
		WithUrgencies(UrgencyWarn),
		WithSortBy("date"),
	}

	is.Equal(s.Dashboard(opts...), s.Dashboard(opts...))
}

func TestDashboardCategoryAndUrgencyFilters(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	gauges := s.Dashboard(WithCategories(string(types.CategoryGauge)))
	is.Equal(2, len(gauges))

	danger := s.Dashboard(WithUrgencies(UrgencyDanger))
	is.Equal(1, len(danger))
	is.Equal("NR10-001", danger[0].Tag)

	// record with no due date buckets as ok
	ok := s.Dashboard(WithUrgencies(UrgencyOK))
	is.Equal(3, len(ok))
}

func TestDashboardSearch(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	byTag := s.Dashboard(WithSearch("man-001"))
	is.Equal(1, len(byTag))
	is.Equal("MAN-001", byTag[0].Tag)

	byLocation := s.Dashboard(WithSearch("oficina"))
	is.Equal(1, len(byLocation))
	is.Equal("EQ-001", byLocation[0].Tag)

	is.Equal(0, len(s.Dashboard(WithSearch("inexistente"))))
}

func TestDashboardSortByDate(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	items := s.Dashboard(WithSortBy("date"))
	is.Equal(6, len(items))

	// the record without a due date sorts first, then ascending by date
	is.Equal("EQ-002", items[0].Tag)
	is.Equal("NR10-001", items[1].Tag)
	is.Equal("MAN-001", items[2].Tag)
	is.Equal("MAN-002", items[5].Tag)

	desc := s.Dashboard(WithSortBy("date"), WithSortDesc(true))
	is.Equal("MAN-002", desc[0].Tag)
	is.Equal("EQ-002", desc[5].Tag)
}

func TestDashboardSortByTagFromConcurrentCallers(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	want := s.Dashboard(WithSortBy("tag"))
	is.Equal(6, len(want))
	is.Equal("EQ-001", want[0].Tag)
	is.Equal("NR10-002", want[5].Tag)

	// projections on a shared snapshot are read-only and safe to call
	// from parallel request handlers
	const callers = 8
	results := make([][]types.Equipment, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Dashboard(WithSortBy("tag"))
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		is.Equal(len(want), len(got))
		for j := range want {
			is.Equal(want[j].Tag, got[j].Tag)
		}
	}
}

func TestDashboardWithoutSortPreservesInputOrder(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	items := s.Dashboard()
	is.Equal("MAN-001", items[0].Tag)
	is.Equal("EQ-002", items[5].Tag)
}

func TestExportLocationFilter(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	items := s.Export(
		WithCategories(string(types.CategorySafety)),
		WithLocationContains("subesta"),
	)
	is.Equal(2, len(items))
}

func TestSnapshotTwins(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	twins := s.Twins()
	is.Equal(1, len(twins))
	is.True(twins[0].NeedsSwap)

	is.True(s.IsTwin(twins[0].Principal))
	is.True(s.IsTwin(twins[0].Reserve))
	is.True(!s.IsTwin(newGauge("MAN-099", "Sala Z", "0-10 bar", types.FunctionPrincipal, nil)))
}

func TestAnalyticsBreakdown(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()
	a := s.Analytics()

	is.Equal(6, len(a.Items))

	// zero-count urgency buckets are omitted, the rest keep a fixed order
	is.Equal(3, len(a.Status))
	is.Equal(LabelValid, a.Status[0].Name)
	is.Equal(3, a.Status[0].Value)
	is.Equal(LabelWarning, a.Status[1].Name)
	is.Equal(2, a.Status[1].Value)
	is.Equal(LabelExpired, a.Status[2].Name)
	is.Equal(1, a.Status[2].Value)

	is.Equal(3, len(a.Categories))
	is.Equal(2, a.Categories[0].Value)
}

func TestAnalyticsStatusLabelFilter(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()
	a := s.Analytics(WithStatusLabel(LabelExpired))

	is.Equal(1, len(a.Items))
	is.Equal("NR10-001", a.Items[0].Tag)
	is.Equal(1, len(a.Status))
	is.Equal(LabelExpired, a.Status[0].Name)
}

func TestAnalyticsLocationLabel(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()

	// empty locations aggregate and filter under the display label
	a := s.Analytics(WithLocation("Indefinido"))
	is.Equal(1, len(a.Items))
	is.Equal("EQ-002", a.Items[0].Tag)
}

func TestAnalyticsTopLocations(t *testing.T) {
	is := is.New(t)

	items := make([]types.Equipment, 0, 12)
	for _, loc := range []string{"A", "A", "A", "B", "B", "C", "C", "D", "E", "F", "G", "H"} {
		items = append(items, newGeneral("EQ-"+loc, loc, daysFromNow(100)))
	}

	a := NewSnapshot(items, testNow).Analytics()
	is.Equal(topLocations, len(a.Locations))
	is.Equal(CountEntry{Name: "A", Value: 3}, a.Locations[0])
}

func TestStatsCounts(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()
	stats := s.Stats()

	is.Equal(6, stats.Total)
	is.Equal(3, stats.OK)
	is.Equal(2, stats.Warn)
	is.Equal(1, stats.Danger)
	is.Equal(1, stats.Rejected)
	is.Equal(1, stats.Obsolete)
}

func TestStatsCategoryFilterKeepsLifecycleCounts(t *testing.T) {
	is := is.New(t)

	s := snapshotFixture()
	stats := s.Stats(WithCategories(string(types.CategoryGauge)))

	is.Equal(2, stats.Total)
	is.Equal(1, stats.Rejected)
	is.Equal(1, stats.Obsolete)
}
