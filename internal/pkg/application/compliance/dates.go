package compliance

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

const millisPerDay = 24 * 60 * 60 * 1000

// Spreadsheet day serials count days from Dec 30 1899. Serial 25569 is the
// Unix epoch; 60000 lands in 2064, past any plausible inspection date.
const (
	serialEpoch = 25569
	serialLimit = 60000
)

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	brDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`),
		regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`),
	}
	fallbackLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"02/01/2006 15:04",
	}
)

// ParseDateSafe converts any date representation the store is known to
// produce into an absolute instant. It is total: garbage input reports
// !ok, it never panics and never returns an error.
//
// Numbers inside the spreadsheet serial range are day counts from the
// 1899-12-30 epoch; anything else numeric is already a millisecond
// timestamp. YYYY-MM-DD and DD/MM/YYYY (or DD-MM-YYYY) strings are read
// as local calendar dates at local midnight, so formatting them back
// yields the same calendar day in every timezone.
func ParseDateSafe(value types.RawDate) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case float64:
		return fromNumber(v)
	case float32:
		return fromNumber(float64(v))
	case int:
		return fromNumber(float64(v))
	case int64:
		return fromNumber(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromNumber(f)
	case string:
		return fromString(v)
	default:
		return time.Time{}, false
	}
}

func fromNumber(v float64) (time.Time, bool) {
	if v == 0 {
		return time.Time{}, false
	}

	if v > serialEpoch && v < serialLimit {
		ms := (v - serialEpoch) * millisPerDay
		return time.UnixMilli(int64(ms)).In(time.Local), true
	}

	return time.UnixMilli(int64(v)).In(time.Local), true
}

func fromString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return localDate(m[3], m[2], m[1]), true
	}

	for _, p := range brDatePatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return localDate(m[1], m[2], m[3]), true
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func localDate(day, month, year string) time.Time {
	d, _ := strconv.Atoi(day)
	m, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
}

// FormatDateBR renders an instant as DD/MM/YYYY, or "N/A" for the zero
// value.
func FormatDateBR(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("02/01/2006")
}

// StartOfDay truncates an instant to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysUntil counts whole days from the start of "now"'s day until due,
// rounding partial days up. Negative when due has already passed.
func DaysUntil(due, now time.Time) int {
	diff := due.Sub(StartOfDay(now))
	return int(math.Ceil(float64(diff.Milliseconds()) / millisPerDay))
}
