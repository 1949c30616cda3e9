package compliance

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// Snapshot is an immutable view over one fetched record list at one
// instant. The active/rejected/obsolete partitions and the twin groups
// are computed once at construction; projections only filter and sort on
// top of them, so running a projection twice with the same options yields
// identical results.
type Snapshot struct {
	now time.Time
	all []types.Equipment

	active   []types.Equipment
	rejected []types.Equipment
	obsolete []types.Equipment

	twins []TwinGroup
}

func NewSnapshot(items []types.Equipment, now time.Time) *Snapshot {
	s := &Snapshot{
		now: now,
		all: make([]types.Equipment, len(items)),
	}
	copy(s.all, items)

	for _, e := range s.all {
		switch Status(e) {
		case types.StatusObsolete:
			s.obsolete = append(s.obsolete, e)
		case types.StatusRejected:
			s.rejected = append(s.rejected, e)
		default:
			s.active = append(s.active, e)
		}
	}

	s.twins = DetectTwinGauges(s.active, now)

	return s
}

// At reports the instant the snapshot was taken; all urgency computations
// inside it are relative to this instant.
func (s *Snapshot) At() time.Time {
	return s.now
}

func (s *Snapshot) Size() int {
	return len(s.all)
}

// Active returns the records that are neither rejected nor obsolete.
func (s *Snapshot) Active() []types.Equipment {
	out := make([]types.Equipment, len(s.active))
	copy(out, s.active)
	return out
}

// Rejected returns rejected records, sorted per the given sort options.
// Filter options other than sorting are ignored: the rejected and
// obsolete collections are tracked whole, independent of dashboard
// filter state.
func (s *Snapshot) Rejected(opts ...FilterFunc) []types.Equipment {
	return sortItems(s.rejected, newFilter(opts))
}

func (s *Snapshot) Obsolete(opts ...FilterFunc) []types.Equipment {
	return sortItems(s.obsolete, newFilter(opts))
}

func (s *Snapshot) Twins() []TwinGroup {
	out := make([]TwinGroup, len(s.twins))
	copy(out, s.twins)
	return out
}

// Find returns the record with the given tag, whatever its status.
func (s *Snapshot) Find(tag string) (types.Equipment, bool) {
	for _, e := range s.all {
		if e.Tag == tag {
			return e, true
		}
	}
	return types.Equipment{}, false
}

// IsTwin reports whether a record is a member of any twin group.
func (s *Snapshot) IsTwin(e types.Equipment) bool {
	if e.Category != types.CategoryGauge {
		return false
	}
	for _, g := range s.twins {
		if sameRecord(g.Principal, e) || sameRecord(g.Reserve, e) {
			return true
		}
	}
	return false
}

// Dashboard applies the category/urgency/search filters over the active
// set and sorts the result.
func (s *Snapshot) Dashboard(opts ...FilterFunc) []types.Equipment {
	f := newFilter(opts)

	filtered := lo.Filter(s.active, func(e types.Equipment, _ int) bool {
		if !f.matchesCategory(e) {
			return false
		}
		if len(f.urgencies) > 0 && !lo.Contains(f.urgencies, UrgencyOf(e, s.now)) {
			return false
		}
		return f.matchesSearch(e)
	})

	return sortItems(filtered, f)
}

// Export narrows the active set by the export view's independent filter
// triple (category, urgency, location substring) and sorts the result.
func (s *Snapshot) Export(opts ...FilterFunc) []types.Equipment {
	f := newFilter(opts)

	filtered := lo.Filter(s.active, func(e types.Equipment, _ int) bool {
		if !f.matchesCategory(e) {
			return false
		}
		if len(f.urgencies) > 0 && !lo.Contains(f.urgencies, UrgencyOf(e, s.now)) {
			return false
		}
		return f.matchesLocation(e)
	})

	return sortItems(filtered, f)
}

type CountEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Analytics is the chart-ready breakdown of a filtered active set.
type Analytics struct {
	Items      []types.Equipment `json:"items"`
	Categories []CountEntry      `json:"categories"`
	Locations  []CountEntry      `json:"locations"`
	Status     []CountEntry      `json:"status"`
}

// topLocations caps the per-location breakdown.
const topLocations = 5

// Analytics narrows the active set by display-label status, category and
// exact location, then aggregates counts per category, per location (top
// five by count) and per urgency bucket (zero-count buckets omitted).
func (s *Snapshot) Analytics(opts ...FilterFunc) Analytics {
	f := newFilter(opts)

	filtered := lo.Filter(s.active, func(e types.Equipment, _ int) bool {
		if f.statusLabel != "" && UrgencyLabel(UrgencyOf(e, s.now)) != f.statusLabel {
			return false
		}
		if !f.matchesCategory(e) {
			return false
		}
		return f.matchesLocation(e)
	})

	categoryCounts := map[string]int{}
	locationCounts := map[string]int{}
	var ok, warn, danger int

	for _, e := range filtered {
		categoryCounts[string(e.Category)]++
		locationCounts[locationLabel(e)]++

		switch UrgencyOf(e, s.now) {
		case UrgencyDanger:
			danger++
		case UrgencyWarn:
			warn++
		default:
			ok++
		}
	}

	status := make([]CountEntry, 0, 3)
	for _, entry := range []CountEntry{
		{Name: LabelValid, Value: ok},
		{Name: LabelWarning, Value: warn},
		{Name: LabelExpired, Value: danger},
	} {
		if entry.Value > 0 {
			status = append(status, entry)
		}
	}

	return Analytics{
		Items:      filtered,
		Categories: countEntries(categoryCounts, 0),
		Locations:  countEntries(locationCounts, topLocations),
		Status:     status,
	}
}

type Stats struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Warn     int `json:"warn"`
	Danger   int `json:"danger"`
	Rejected int `json:"rejected"`
	Obsolete int `json:"obsolete"`
}

// Stats summarises the (optionally category-filtered) active set plus
// the rejected and obsolete counts.
func (s *Snapshot) Stats(opts ...FilterFunc) Stats {
	f := newFilter(opts)

	stats := Stats{
		Rejected: len(s.rejected),
		Obsolete: len(s.obsolete),
	}

	for _, e := range s.active {
		if !f.matchesCategory(e) {
			continue
		}
		stats.Total++
		switch UrgencyOf(e, s.now) {
		case UrgencyDanger:
			stats.Danger++
		case UrgencyWarn:
			stats.Warn++
		default:
			stats.OK++
		}
	}

	return stats
}

func countEntries(counts map[string]int, limit int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for name, value := range counts {
		entries = append(entries, CountEntry{Name: name, Value: value})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Name < entries[j].Name
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}

func sameRecord(a, b types.Equipment) bool {
	if a.InternalID != "" && b.InternalID != "" {
		return a.InternalID == b.InternalID
	}
	return a.Tag == b.Tag
}
