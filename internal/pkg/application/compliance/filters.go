package compliance

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// CategoryAll is the sentinel value that clears category narrowing.
const CategoryAll = "all"

type SortKey string

const (
	SortByDate SortKey = "date"
	SortByTag  SortKey = "tag"
)

// FilterFunc mutates a Filter under construction. Projections receive
// their filter state exclusively through these options, so there is no
// ambient filter state anywhere in the pipeline.
type FilterFunc func(*Filter) *Filter

type Filter struct {
	categories    []string
	urgencies     []Urgency
	search        string
	location      string
	exactLocation string
	statusLabel   string

	sortBy   SortKey
	sortDesc bool
	sorted   bool
}

func newFilter(opts []FilterFunc) *Filter {
	f := &Filter{}
	for _, opt := range opts {
		f = opt(f)
	}
	return f
}

// WithCategories narrows to the given canonical categories. The "all"
// sentinel, or an empty list, clears the narrowing.
func WithCategories(categories ...string) FilterFunc {
	return func(f *Filter) *Filter {
		f.categories = categories
		return f
	}
}

func WithUrgencies(urgencies ...Urgency) FilterFunc {
	return func(f *Filter) *Filter {
		f.urgencies = urgencies
		return f
	}
}

// WithSearch matches a case-insensitive substring across tag, equipment
// name, location and model.
func WithSearch(term string) FilterFunc {
	return func(f *Filter) *Filter {
		f.search = strings.TrimSpace(term)
		return f
	}
}

// WithLocationContains matches a case-insensitive substring on location.
func WithLocationContains(location string) FilterFunc {
	return func(f *Filter) *Filter {
		f.location = strings.TrimSpace(location)
		return f
	}
}

// WithLocation matches the display label of a location exactly, with
// empty locations shown as "Indefinido".
func WithLocation(location string) FilterFunc {
	return func(f *Filter) *Filter {
		f.exactLocation = location
		return f
	}
}

// WithStatusLabel matches the analytics display label of the urgency
// bucket (Válidos, Atenção, Vencidos).
func WithStatusLabel(label string) FilterFunc {
	return func(f *Filter) *Filter {
		f.statusLabel = label
		return f
	}
}

func WithSortBy(key string) FilterFunc {
	return func(f *Filter) *Filter {
		switch SortKey(strings.ToLower(key)) {
		case SortByDate:
			f.sortBy = SortByDate
			f.sorted = true
		case SortByTag:
			f.sortBy = SortByTag
			f.sorted = true
		}
		return f
	}
}

func WithSortDesc(desc bool) FilterFunc {
	return func(f *Filter) *Filter {
		f.sortDesc = desc
		return f
	}
}

// ParseFilters maps URL query parameters onto filter options, for the
// dashboard and export projections.
func ParseFilters(params url.Values) []FilterFunc {
	opts := make([]FilterFunc, 0)

	for k, v := range params {
		if len(v) == 0 {
			continue
		}
		switch strings.ToLower(k) {
		case "category":
			opts = append(opts, WithCategories(v...))
		case "urgency":
			urgencies := make([]Urgency, 0, len(v))
			for _, u := range v {
				switch Urgency(strings.ToLower(u)) {
				case UrgencyOK, UrgencyWarn, UrgencyDanger:
					urgencies = append(urgencies, Urgency(strings.ToLower(u)))
				}
			}
			opts = append(opts, WithUrgencies(urgencies...))
		case "search":
			opts = append(opts, WithSearch(v[0]))
		case "location":
			opts = append(opts, WithLocationContains(v[0]))
		case "sortby":
			opts = append(opts, WithSortBy(v[0]))
		case "sortorder":
			opts = append(opts, WithSortDesc(strings.EqualFold(v[0], "desc")))
		}
	}

	return opts
}

// ParseAnalyticsFilters maps URL query parameters onto the analytics
// projection's display-label filter triple.
func ParseAnalyticsFilters(params url.Values) []FilterFunc {
	opts := make([]FilterFunc, 0)

	for k, v := range params {
		if len(v) == 0 || v[0] == "" {
			continue
		}
		switch strings.ToLower(k) {
		case "status":
			opts = append(opts, WithStatusLabel(v[0]))
		case "category":
			opts = append(opts, WithCategories(v[0]))
		case "location":
			opts = append(opts, WithLocation(v[0]))
		}
	}

	return opts
}

func (f *Filter) narrowsCategories() bool {
	if len(f.categories) == 0 {
		return false
	}
	for _, c := range f.categories {
		if strings.EqualFold(c, CategoryAll) {
			return false
		}
	}
	return true
}

func (f *Filter) matchesCategory(e types.Equipment) bool {
	if !f.narrowsCategories() {
		return true
	}
	for _, c := range f.categories {
		if types.Category(c) == e.Category {
			return true
		}
	}
	return false
}

func (f *Filter) matchesSearch(e types.Equipment) bool {
	if f.search == "" {
		return true
	}
	term := strings.ToLower(f.search)
	for _, field := range []string{e.Tag, e.Name, e.Location, e.Model} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (f *Filter) matchesLocation(e types.Equipment) bool {
	if f.location != "" &&
		!strings.Contains(strings.ToLower(e.Location), strings.ToLower(f.location)) {
		return false
	}
	if f.exactLocation != "" && locationLabel(e) != f.exactLocation {
		return false
	}
	return true
}

// sortItems applies the shared sorting contract: by next-due date with
// missing dates sorting earliest, or by tag with locale-aware collation.
// Without an explicit sort the input order is preserved. Always returns a
// fresh slice, never reorders the input.
func sortItems(items []types.Equipment, f *Filter) []types.Equipment {
	out := make([]types.Equipment, len(items))
	copy(out, items)

	if !f.sorted {
		return out
	}

	var less func(a, b types.Equipment) bool

	switch f.sortBy {
	case SortByTag:
		// collators keep mutable iterator state, so each sort gets its own
		brCollator := collate.New(language.BrazilianPortuguese)
		less = func(a, b types.Equipment) bool {
			return brCollator.CompareString(a.Tag, b.Tag) < 0
		}
	default:
		dueMillis := func(e types.Equipment) int64 {
			t, ok := ParseDateSafe(e.NextDueRaw())
			if !ok {
				return 0
			}
			return t.UnixMilli()
		}
		less = func(a, b types.Equipment) bool {
			return dueMillis(a) < dueMillis(b)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.sortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	return out
}

func locationLabel(e types.Equipment) string {
	if e.Location == "" {
		return "Indefinido"
	}
	return e.Location
}
