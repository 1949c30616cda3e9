package compliance

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// SwapWindowDays: a swap is only worth recommending when the installed
// gauge expires this soon.
const SwapWindowDays = 30

// unknownBucket collects gauges with no location or range. Gauges missing
// both fields are conflated into one bucket even when they are physically
// unrelated; a known limitation inherited from the grouping key.
const unknownBucket = "Unknown"

// TwinGroup is a Principal/Reserve pair of pressure gauges installed at
// the same location with the same indication range.
type TwinGroup struct {
	Principal types.Equipment `json:"principal"`
	Reserve   types.Equipment `json:"reserva"`
	NeedsSwap bool            `json:"needsSwap"`
}

// DetectTwinGauges pairs active pressure gauges by (location, indication
// range). Only groups of exactly two records with distinct
// Principal/Reserva roles and two parseable calibration dates produce a
// pair; clusters of three or more are deliberately ignored. The input is
// never mutated.
func DetectTwinGauges(items []types.Equipment, now time.Time) []TwinGroup {
	gauges := lo.Filter(items, func(e types.Equipment, _ int) bool {
		return e.Category == types.CategoryGauge && IsReallyActive(e)
	})

	grouped := lo.GroupBy(gauges, twinKey)

	keys := lo.Keys(grouped)
	sort.Strings(keys)

	twins := make([]TwinGroup, 0, len(keys))

	for _, key := range keys {
		group := grouped[key]
		if len(group) != 2 {
			continue
		}

		principal, foundP := lo.Find(group, hasFunction(types.FunctionPrincipal))
		reserve, foundR := lo.Find(group, hasFunction(types.FunctionReserve))
		if !foundP || !foundR {
			continue
		}

		principalDue, okP := ParseDateSafe(principal.Gauge.NextCalibration)
		reserveDue, okR := ParseDateSafe(reserve.Gauge.NextCalibration)
		if !okP || !okR {
			continue
		}

		daysToPrincipal := float64(principalDue.Sub(now).Milliseconds()) / millisPerDay

		twins = append(twins, TwinGroup{
			Principal: principal,
			Reserve:   reserve,
			// Swapping in a spare that is just as expired helps nobody,
			// hence the strict "reserve outlives principal" requirement.
			NeedsSwap: daysToPrincipal < SwapWindowDays && reserveDue.After(principalDue),
		})
	}

	return twins
}

func twinKey(e types.Equipment) string {
	location := e.Location
	if location == "" {
		location = unknownBucket
	}

	indicationRange := ""
	if e.Gauge != nil {
		indicationRange = e.Gauge.IndicationRange
	}
	if indicationRange == "" {
		indicationRange = unknownBucket
	}

	return location + "|" + indicationRange
}

func hasFunction(function string) func(types.Equipment) bool {
	return func(e types.Equipment) bool {
		return e.Gauge != nil && e.Gauge.Function == function
	}
}
