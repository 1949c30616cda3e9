package compliance

import (
	"strings"
	"time"

	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// Urgency buckets classify how close an active record is to its next-due
// date. Rejected and obsolete records have no urgency at all.
type Urgency string

const (
	UrgencyOK     Urgency = "ok"
	UrgencyWarn   Urgency = "warn"
	UrgencyDanger Urgency = "danger"
)

// WarnWindowDays is the fixed business rule for the warn bucket.
const WarnWindowDays = 45

// Status resolves the hierarchical lifecycle status from the removal flag
// and the inspection verdict. Obsolete overrides Rejected overrides
// Active, so a removed record stays obsolete even when its last verdict
// was REPROVADO.
func Status(e types.Equipment) types.Status {
	if e.Deleted == types.DeletedYes {
		return types.StatusObsolete
	}
	if strings.Contains(strings.ToUpper(e.Result), "REPROVADO") {
		return types.StatusRejected
	}
	return types.StatusActive
}

func IsReallyActive(e types.Equipment) bool {
	return Status(e) == types.StatusActive
}

// DaysUntilExpiry returns whole days from today until the record's
// category-appropriate next-due date, negative when already expired.
// Reports !ok when the record carries no parseable next-due value.
func DaysUntilExpiry(e types.Equipment, now time.Time) (int, bool) {
	due, ok := ParseDateSafe(e.NextDueRaw())
	if !ok {
		return 0, false
	}
	return DaysUntil(due, now), true
}

// UrgencyOf buckets an active record by its remaining days. Records
// without an expiry date count as ok: they carry no expiry pressure.
// Callers are expected to pre-filter with IsReallyActive.
func UrgencyOf(e types.Equipment, now time.Time) Urgency {
	days, ok := DaysUntilExpiry(e, now)
	if !ok {
		return UrgencyOK
	}
	if days < 0 {
		return UrgencyDanger
	}
	if days <= WarnWindowDays {
		return UrgencyWarn
	}
	return UrgencyOK
}

// Display labels used by the analytics projection and the spreadsheet
// export.
const (
	LabelValid   = "Válidos"
	LabelWarning = "Atenção"
	LabelExpired = "Vencidos"
)

func UrgencyLabel(u Urgency) string {
	switch u {
	case UrgencyDanger:
		return LabelExpired
	case UrgencyWarn:
		return LabelWarning
	default:
		return LabelValid
	}
}
