package equipment

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// ExportXLSX renders the filtered active set as a spreadsheet download.
func (s *service) ExportXLSX(ctx context.Context, opts ...compliance.FilterFunc) ([]byte, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headers := []string{
		"TAG", "Categoria", "Equipamento", "Local",
		"Próxima Data", "Dias Restantes", "Status",
	}
	writeHeaderRow(f, sheet, headers)

	for i, e := range snap.Export(opts...) {
		r := i + 2
		set := cellWriter(f, sheet, r)

		set(1, e.Tag)
		set(2, string(e.Category))
		set(3, e.Name)
		set(4, e.Location)

		if due, ok := compliance.ParseDateSafe(e.NextDueRaw()); ok {
			set(5, compliance.FormatDateBR(due))
		} else {
			set(5, "N/A")
		}

		if days, ok := compliance.DaysUntilExpiry(e, snap.At()); ok {
			set(6, days)
		} else {
			set(6, "")
		}

		set(7, compliance.UrgencyLabel(compliance.UrgencyOf(e, snap.At())))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryXLSX renders one record's change history as a spreadsheet
// download.
func (s *service) HistoryXLSX(ctx context.Context, tag string) ([]byte, error) {
	entries, err := s.History(ctx, tag)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headers := []string{
		"TAG", "Data Calibração", "Próxima Calibração",
		"Data Validade", "Nº Certificado", "Resultado",
	}
	writeHeaderRow(f, sheet, headers)

	for i, entry := range entries {
		r := i + 2
		set := cellWriter(f, sheet, r)

		set(1, tag)
		set(2, rawCell(entry.CalibratedAt))
		set(3, rawCell(entry.NextCalibration))
		set(4, rawCell(entry.ValidUntil))
		set(5, entry.CertificateNumber)
		set(6, entry.Result)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}

	return buf.Bytes(), nil
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func cellWriter(f *excelize.File, sheet string, row int) func(col int, value any) {
	return func(col int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, value)
	}
}

func rawCell(v types.RawDate) string {
	if t, ok := compliance.ParseDateSafe(v); ok {
		return compliance.FormatDateBR(t)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
