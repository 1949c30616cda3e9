package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// SnapshotRepository persists the most recent successful store fetch, so
// the service can keep serving a dashboard while the store is down.
type SnapshotRepository interface {
	Replace(ctx context.Context, fetchedAt time.Time, items []types.Equipment) error
	Latest(ctx context.Context) ([]types.Equipment, time.Time, error)
}

var ErrNoSnapshot = fmt.Errorf("no cached snapshot available")

func NewSnapshotRepository(connect ConnectorFunc) (SnapshotRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&snapshotRecord{}, &equipmentRow{})
	if err != nil {
		return nil, err
	}

	return &snapshotRepository{db: impl}, nil
}

type snapshotRepository struct {
	db *gorm.DB
}

type snapshotRecord struct {
	gorm.Model

	FetchedAt time.Time
	Rows      []equipmentRow `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE"`
}

// equipmentRow is the flattened cache row. Raw date values are reduced
// to DD/MM/YYYY strings on the way in; the date parser reads them back
// without loss of the calendar day.
type equipmentRow struct {
	gorm.Model

	SnapshotID uint `gorm:"index"`

	InternalID  string
	Tag         string `gorm:"index"`
	PreviousTag string
	Category    string

	Name          string
	Location      string
	Manufacturer  string
	ModelName     string `gorm:"column:model_name"`
	SerialNumber  string
	Specification string
	Dimensions    string

	CertificateNumber string
	CertificateLink   string
	Observations      string
	RejectionReason   string

	Result  string
	Deleted string

	IssuedAt string
	DueAt    string

	Fluid           string
	IndicationRange string
	Function        string
	Glycerin        string

	ConnectionPosition string
	ConnectionType     string
	ConnectionDiameter string
	ConnectionMaterial string
	CaseDiameter       string
	CaseMaterial       string

	AssociatedEquipment string
}

func (r *snapshotRepository) Replace(ctx context.Context, fetchedAt time.Time, items []types.Equipment) error {
	rows := make([]equipmentRow, 0, len(items))
	for _, e := range items {
		rows = append(rows, toRow(e))
	}

	record := snapshotRecord{
		FetchedAt: fetchedAt,
		Rows:      rows,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("1 = 1").Delete(&equipmentRow{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("1 = 1").Delete(&snapshotRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
}

func (r *snapshotRepository) Latest(ctx context.Context) ([]types.Equipment, time.Time, error) {
	record := snapshotRecord{}

	result := r.db.WithContext(ctx).
		Preload("Rows").
		Order("fetched_at desc").
		First(&record)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, time.Time{}, ErrNoSnapshot
		}
		return nil, time.Time{}, result.Error
	}

	items := make([]types.Equipment, 0, len(record.Rows))
	for _, row := range record.Rows {
		items = append(items, fromRow(row))
	}

	return items, record.FetchedAt, nil
}

func toRow(e types.Equipment) equipmentRow {
	row := equipmentRow{
		InternalID:  e.InternalID,
		Tag:         e.Tag,
		PreviousTag: e.PreviousTag,
		Category:    string(e.Category),

		Name:          e.Name,
		Location:      e.Location,
		Manufacturer:  e.Manufacturer,
		ModelName:     e.Model,
		SerialNumber:  e.SerialNumber,
		Specification: e.Specification,
		Dimensions:    e.Dimensions,

		CertificateNumber: e.CertificateNumber,
		CertificateLink:   e.CertificateLink,
		Observations:      e.Observations,
		RejectionReason:   e.RejectionReason,

		Result:  e.Result,
		Deleted: e.Deleted,
	}

	switch {
	case e.Gauge != nil:
		row.IssuedAt = rawToCacheString(e.Gauge.CalibratedAt)
		row.DueAt = rawToCacheString(e.Gauge.NextCalibration)

		row.Fluid = e.Gauge.Fluid
		row.IndicationRange = e.Gauge.IndicationRange
		row.Function = e.Gauge.Function
		row.Glycerin = e.Gauge.Glycerin
		row.ConnectionPosition = e.Gauge.ConnectionPosition
		row.ConnectionType = e.Gauge.ConnectionType
		row.ConnectionDiameter = e.Gauge.ConnectionDiameter
		row.ConnectionMaterial = e.Gauge.ConnectionMaterial
		row.CaseDiameter = e.Gauge.CaseDiameter
		row.CaseMaterial = e.Gauge.CaseMaterial
		row.AssociatedEquipment = e.Gauge.AssociatedEquipment
	case e.Inspection != nil:
		row.IssuedAt = rawToCacheString(e.Inspection.InspectedAt)
		row.DueAt = rawToCacheString(e.Inspection.NextInspection)
	case e.Safety != nil:
		row.IssuedAt = rawToCacheString(e.Safety.CertifiedAt)
		row.DueAt = rawToCacheString(e.Safety.ValidUntil)
	}

	return row
}

func fromRow(row equipmentRow) types.Equipment {
	e := types.Equipment{
		InternalID:  row.InternalID,
		Tag:         row.Tag,
		PreviousTag: row.PreviousTag,
		Category:    types.Category(row.Category),

		Name:          row.Name,
		Location:      row.Location,
		Manufacturer:  row.Manufacturer,
		Model:         row.ModelName,
		SerialNumber:  row.SerialNumber,
		Specification: row.Specification,
		Dimensions:    row.Dimensions,

		CertificateNumber: row.CertificateNumber,
		CertificateLink:   row.CertificateLink,
		Observations:      row.Observations,
		RejectionReason:   row.RejectionReason,

		Result:  row.Result,
		Deleted: row.Deleted,
	}

	issuedAt := cacheStringToRaw(row.IssuedAt)
	dueAt := cacheStringToRaw(row.DueAt)

	switch e.Category {
	case types.CategoryGauge:
		e.Gauge = &types.GaugeDetails{
			CalibratedAt:    issuedAt,
			NextCalibration: dueAt,

			Fluid:           row.Fluid,
			IndicationRange: row.IndicationRange,
			Function:        row.Function,
			Glycerin:        row.Glycerin,

			ConnectionPosition: row.ConnectionPosition,
			ConnectionType:     row.ConnectionType,
			ConnectionDiameter: row.ConnectionDiameter,
			ConnectionMaterial: row.ConnectionMaterial,
			CaseDiameter:       row.CaseDiameter,
			CaseMaterial:       row.CaseMaterial,

			AssociatedEquipment: row.AssociatedEquipment,
		}
	case types.CategoryGeneral:
		e.Inspection = &types.InspectionDetails{
			InspectedAt:    issuedAt,
			NextInspection: dueAt,
		}
	default:
		e.Safety = &types.SafetyDetails{
			CertifiedAt: issuedAt,
			ValidUntil:  dueAt,
		}
	}

	return e
}

// rawToCacheString reduces a raw date value to a cacheable string:
// parseable values become DD/MM/YYYY, unparseable strings are kept as
// they were, anything else caches as empty.
func rawToCacheString(v types.RawDate) string {
	if t, ok := compliance.ParseDateSafe(v); ok {
		return compliance.FormatDateBR(t)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func cacheStringToRaw(s string) types.RawDate {
	if s == "" {
		return nil
	}
	return s
}
