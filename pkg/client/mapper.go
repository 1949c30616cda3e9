package client

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// mapRecord reconciles one raw spreadsheet row into a canonical record.
// Column headers drift across sheet generations, so every field is read
// through a synonym list; date cells are kept verbatim for the date
// parser to sort out later.
func (c *storeClient) mapRecord(record map[string]any, idx int) types.Equipment {
	category := c.normalizer.Normalize(text(record, "", "categoria", "category", "tipo"))

	e := types.Equipment{
		InternalID:  fmt.Sprintf("eq-%d-%s", idx, uuid.NewString()),
		Tag:         text(record, types.MissingTag, "tag", "TAG", "patrimonio", "PATRIMONIO"),
		PreviousTag: text(record, "", "tagAnterior", "tag_anterior"),
		Category:    category,

		Name:          text(record, "", "equipamento", "descricao", "equipment", "nome"),
		Location:      text(record, "", "local", "localizacao", "setor", "LOCAL", "area"),
		Manufacturer:  text(record, "", "fabricante", "marca", "FABRICANTE"),
		Model:         text(record, "", "modelo", "model"),
		SerialNumber:  text(record, "", "numSerie", "n_serie", "num_serie", "numero_serie", "serie"),
		Specification: text(record, "", "especificacao", "specs"),
		Dimensions:    text(record, "", "dimensoes", "dimensao"),

		CertificateNumber: text(record, "", "numCertificado", "n_certificado", "numero_certificado", "certificado"),
		CertificateLink:   text(record, "", "linkCertificado", "link", "url_certificado", "drive"),
		Observations:      text(record, "", "observacoes", "obs"),
		RejectionReason:   text(record, "", "motivoReprovacao", "motivo"),

		Result:  strings.ToUpper(text(record, "APROVADO", "resultado", "status_calibracao", "laudo")),
		Deleted: strings.ToUpper(text(record, types.DeletedNo, "excluido", "obsoleto", "inativo")),
	}

	issuedAt := rawValue(record, "dataCertificacao", "data_teste", "data_calibracao", "calibracao", "inspecao")
	dueAt := rawValue(record, "dataValidade", "validade", "data_vencimento", "vencimento", "proxima")

	switch category {
	case types.CategoryGauge:
		e.Gauge = &types.GaugeDetails{
			CalibratedAt:    issuedAt,
			NextCalibration: dueAt,

			Fluid:           text(record, "Padrão", "fluido", "fluido_processo"),
			IndicationRange: text(record, "", "faixaIndicacao", "faixa", "escala", "range"),
			Function:        text(record, "", "funcao", "aplicacao"),
			Glycerin:        text(record, "", "glicerina"),

			ConnectionPosition: text(record, "", "posicaoConexao", "posicao_conexao"),
			ConnectionType:     text(record, "", "tipoConexao", "tipo_conexao", "rosca"),
			ConnectionDiameter: text(record, "", "diametroConexao", "diametro_conexao"),
			ConnectionMaterial: text(record, "", "materialConexao", "material_conexao"),
			CaseDiameter:       text(record, "", "diametroCaixa", "diametro_caixa", "diametro"),
			CaseMaterial:       text(record, "", "materialCaixa", "material_caixa"),

			AssociatedEquipment: text(record, "", "equipAssociado", "equip_associado"),
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

// flatten turns a canonical record back into the flat column layout the
// store writes to its sheet. Whatever the category, the issued/expiry
// pair always travels in the dataCertificacao/dataValidade columns.
func flatten(e types.Equipment) map[string]any {
	row := map[string]any{
		"tag":       e.Tag,
		"categoria": string(e.Category),
		"resultado": e.Result,
		"excluido":  e.Deleted,
	}

	putText(row, "tagAnterior", e.PreviousTag)
	putText(row, "equipamento", e.Name)
	putText(row, "local", e.Location)
	putText(row, "fabricante", e.Manufacturer)
	putText(row, "modelo", e.Model)
	putText(row, "numSerie", e.SerialNumber)
	putText(row, "especificacao", e.Specification)
	putText(row, "dimensoes", e.Dimensions)
	putText(row, "numCertificado", e.CertificateNumber)
	putText(row, "linkCertificado", e.CertificateLink)
	putText(row, "observacoes", e.Observations)
	putText(row, "motivoReprovacao", e.RejectionReason)

	switch {
	case e.Gauge != nil:
		putRaw(row, "dataCertificacao", e.Gauge.CalibratedAt)
		putRaw(row, "dataValidade", e.Gauge.NextCalibration)

		putText(row, "fluido", e.Gauge.Fluid)
		putText(row, "faixaIndicacao", e.Gauge.IndicationRange)
		putText(row, "funcao", e.Gauge.Function)
		putText(row, "glicerina", e.Gauge.Glycerin)
		putText(row, "posicaoConexao", e.Gauge.ConnectionPosition)
		putText(row, "tipoConexao", e.Gauge.ConnectionType)
		putText(row, "diametroConexao", e.Gauge.ConnectionDiameter)
		putText(row, "materialConexao", e.Gauge.ConnectionMaterial)
		putText(row, "diametroCaixa", e.Gauge.CaseDiameter)
		putText(row, "materialCaixa", e.Gauge.CaseMaterial)
		putText(row, "equipAssociado", e.Gauge.AssociatedEquipment)
	case e.Inspection != nil:
		putRaw(row, "dataCertificacao", e.Inspection.InspectedAt)
		putRaw(row, "dataValidade", e.Inspection.NextInspection)
	case e.Safety != nil:
		putRaw(row, "dataCertificacao", e.Safety.CertifiedAt)
		putRaw(row, "dataValidade", e.Safety.ValidUntil)
	}

	return row
}

// text reads the first non-empty string value among the given keys,
// trimmed, falling back to def.
func text(record map[string]any, def string, keys ...string) string {
	for _, key := range keys {
		v, found := record[key]
		if !found {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return def
}

// rawValue reads the first present, non-empty value among the given keys
// without converting it.
func rawValue(record map[string]any, keys ...string) types.RawDate {
	for _, key := range keys {
		v, found := record[key]
		if !found || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func putText(row map[string]any, key, value string) {
	if value != "" {
		row[key] = value
	}
}

func putRaw(row map[string]any, key string, value types.RawDate) {
	if value != nil {
		row[key] = value
	}
}
