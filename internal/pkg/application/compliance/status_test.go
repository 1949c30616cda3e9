package compliance

import (
	"testing"

	"github.com/matryer/is"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

func TestStatusHierarchy(t *testing.T) {
	is := is.New(t)

	e := newSafety("NR10-001", "Subestação", "2025-01-01")
	is.Equal(types.StatusActive, Status(e))

	e.Result = "REPROVADO"
	is.Equal(types.StatusRejected, Status(e))

	e.Result = "Reprovado no teste dielétrico"
	is.Equal(types.StatusRejected, Status(e))

	// obsolete wins even over a rejected verdict
	e.Deleted = types.DeletedYes
	is.Equal(types.StatusObsolete, Status(e))
}

func TestStatusIsTotal(t *testing.T) {
	is := is.New(t)

	// a zero record still resolves to a status
	is.Equal(types.StatusActive, Status(types.Equipment{}))
	is.True(IsReallyActive(types.Equipment{}))
}

func TestUrgencyBoundaries(t *testing.T) {
	is := is.New(t)

	cases := []struct {
		days int
		want Urgency
	}{
		{days: -1, want: UrgencyDanger},
		{days: 0, want: UrgencyWarn},
		{days: 1, want: UrgencyWarn},
		{days: 45, want: UrgencyWarn},
		{days: 46, want: UrgencyOK},
		{days: 400, want: UrgencyOK},
	}

	for _, c := range cases {
		e := newGeneral("EQ-001", "Oficina", daysFromNow(c.days))
		is.Equal(c.want, UrgencyOf(e, testNow))
	}
}

func TestUrgencyWithoutDueDate(t *testing.T) {
	is := is.New(t)

	is.Equal(UrgencyOK, UrgencyOf(newGeneral("EQ-002", "Oficina", nil), testNow))
	is.Equal(UrgencyOK, UrgencyOf(newGeneral("EQ-003", "Oficina", "N/A"), testNow))

	_, ok := DaysUntilExpiry(newGeneral("EQ-004", "Oficina", ""), testNow)
	is.True(!ok)
}

func TestDaysUntilExpiryFollowsCategory(t *testing.T) {
	is := is.New(t)

	// a gauge's expiry is its next calibration, not any other date slot
	g := newGauge("MAN-001", "Sala A", "0-10 bar", types.FunctionPrincipal, daysFromNow(10))
	g.Gauge.CalibratedAt = daysFromNow(-355)

	days, ok := DaysUntilExpiry(g, testNow)
	is.True(ok)
	is.Equal(10, days)
}

func TestUrgencyLabels(t *testing.T) {
	is := is.New(t)

	is.Equal(LabelValid, UrgencyLabel(UrgencyOK))
	is.Equal(LabelWarning, UrgencyLabel(UrgencyWarn))
	is.Equal(LabelExpired, UrgencyLabel(UrgencyDanger))
}
