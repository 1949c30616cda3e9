package compliance

import (
	"time"

	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

var testNow = time.Date(2024, time.May, 10, 15, 0, 0, 0, time.Local)

func newGauge(tag, location, indicationRange, function string, nextCalibration types.RawDate) types.Equipment {
	return types.Equipment{
		InternalID: "eq-" + tag,
		Tag:        tag,
		Category:   types.CategoryGauge,
		Name:       "Manômetro",
		Location:   location,
		Result:     "APROVADO",
		Deleted:    types.DeletedNo,
		Gauge: &types.GaugeDetails{
			NextCalibration: nextCalibration,
			IndicationRange: indicationRange,
			Function:        function,
			Fluid:           "Padrão",
		},
	}
}

func newSafety(tag, location string, validUntil types.RawDate) types.Equipment {
	return types.Equipment{
		InternalID: "eq-" + tag,
		Tag:        tag,
		Category:   types.CategorySafety,
		Name:       "Luva isolante",
		Location:   location,
		Result:     "APROVADO",
		Deleted:    types.DeletedNo,
		Safety:     &types.SafetyDetails{ValidUntil: validUntil},
	}
}

func newGeneral(tag, location string, nextInspection types.RawDate) types.Equipment {
	return types.Equipment{
		InternalID: "eq-" + tag,
		Tag:        tag,
		Category:   types.CategoryGeneral,
		Name:       "Talha manual",
		Location:   location,
		Result:     "APROVADO",
		Deleted:    types.DeletedNo,
		Inspection: &types.InspectionDetails{NextInspection: nextInspection},
	}
}

func daysFromNow(days int) string {
	return testNow.AddDate(0, 0, days).Format("2006-01-02")
}
