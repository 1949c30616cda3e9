package types

// Category is one of the three canonical equipment categories. Free text
// labels from the store are reconciled into these by the compliance
// normalizer.
type Category string

const (
	CategorySafety  Category = "NR-10"
	CategoryGauge   Category = "MANÔMETROS"
	CategoryGeneral Category = "DEMAIS EQUIPAMENTOS"
)

// Status is the hierarchical lifecycle status of a record. Obsolete
// overrides Rejected overrides Active.
type Status string

const (
	StatusActive   Status = "Ativo"
	StatusRejected Status = "Reprovado"
	StatusObsolete Status = "Obsoleto"
)

const (
	// MissingTag is the sentinel assigned when a record arrives without a tag.
	MissingTag = "Sem TAG"

	// DeletedYes marks a record as permanently removed (excluido).
	DeletedYes = "SIM"
	DeletedNo  = "NÃO"

	FunctionPrincipal = "Principal"
	FunctionReserve   = "Reserva"
)

// RawDate holds a date value exactly as the store produced it: a
// DD/MM/YYYY or YYYY-MM-DD string, a spreadsheet day serial, or a
// millisecond timestamp. compliance.ParseDateSafe knows how to read it.
type RawDate any

type Equipment struct {
	InternalID  string   `json:"internalId"`
	Tag         string   `json:"tag"`
	PreviousTag string   `json:"tagAnterior,omitempty"`
	Category    Category `json:"categoria"`

	Name          string `json:"equipamento,omitempty"`
	Location      string `json:"local,omitempty"`
	Manufacturer  string `json:"fabricante,omitempty"`
	Model         string `json:"modelo,omitempty"`
	SerialNumber  string `json:"numSerie,omitempty"`
	Specification string `json:"especificacao,omitempty"`
	Dimensions    string `json:"dimensoes,omitempty"`

	CertificateNumber string `json:"numCertificado,omitempty"`
	CertificateLink   string `json:"linkCertificado,omitempty"`
	Observations      string `json:"observacoes,omitempty"`
	RejectionReason   string `json:"motivoReprovacao,omitempty"`

	// Result is the uppercased inspection verdict (APROVADO/REPROVADO...).
	Result string `json:"resultado"`
	// Deleted is "SIM" when the record has been marked obsolete.
	Deleted string `json:"excluido"`

	// Exactly one of the following is populated, selected by Category.
	Safety     *SafetyDetails     `json:"nr10,omitempty"`
	Gauge      *GaugeDetails      `json:"manometro,omitempty"`
	Inspection *InspectionDetails `json:"inspecao,omitempty"`
}

// SafetyDetails carries the NR-10 electrical safety certification dates.
type SafetyDetails struct {
	CertifiedAt RawDate `json:"dataCertificacao,omitempty"`
	ValidUntil  RawDate `json:"dataValidade,omitempty"`
}

// GaugeDetails carries the pressure gauge calibration dates and the
// pairing attributes used by twin detection.
type GaugeDetails struct {
	CalibratedAt    RawDate `json:"dataCalibracao,omitempty"`
	NextCalibration RawDate `json:"dataProximaCalibracao,omitempty"`

	Fluid           string `json:"fluido,omitempty"`
	IndicationRange string `json:"faixaIndicacao,omitempty"`
	Function        string `json:"funcao,omitempty"`
	Glycerin        string `json:"glicerina,omitempty"`

	ConnectionPosition string `json:"posicaoConexao,omitempty"`
	ConnectionType     string `json:"tipoConexao,omitempty"`
	ConnectionDiameter string `json:"diametroConexao,omitempty"`
	ConnectionMaterial string `json:"materialConexao,omitempty"`
	CaseDiameter       string `json:"diametroCaixa,omitempty"`
	CaseMaterial       string `json:"materialCaixa,omitempty"`

	AssociatedEquipment string `json:"equipAssociado,omitempty"`
}

// InspectionDetails carries the generic equipment inspection dates.
type InspectionDetails struct {
	InspectedAt    RawDate `json:"dataInspecao,omitempty"`
	NextInspection RawDate `json:"dataProximaInspecao,omitempty"`
}

// NextDueRaw returns the single category-appropriate next-due value, or
// nil when the record carries none.
func (e Equipment) NextDueRaw() RawDate {
	switch e.Category {
	case CategoryGauge:
		if e.Gauge != nil {
			return e.Gauge.NextCalibration
		}
	case CategoryGeneral:
		if e.Inspection != nil {
			return e.Inspection.NextInspection
		}
	default:
		if e.Safety != nil {
			return e.Safety.ValidUntil
		}
	}
	return nil
}

// WithNextDue returns a copy of the record with its category-appropriate
// next-due value replaced. The original record, including its detail
// variant, is left untouched.
func (e Equipment) WithNextDue(v RawDate) Equipment {
	switch e.Category {
	case CategoryGauge:
		g := GaugeDetails{}
		if e.Gauge != nil {
			g = *e.Gauge
		}
		g.NextCalibration = v
		e.Gauge = &g
	case CategoryGeneral:
		i := InspectionDetails{}
		if e.Inspection != nil {
			i = *e.Inspection
		}
		i.NextInspection = v
		e.Inspection = &i
	default:
		s := SafetyDetails{}
		if e.Safety != nil {
			s = *e.Safety
		}
		s.ValidUntil = v
		e.Safety = &s
	}
	return e
}

// HistoryEntry is one historical record from the store's change log for a
// tag. Field availability varies with the category the entry was written
// under, so all date slots are kept.
type HistoryEntry struct {
	Tag string `json:"tag,omitempty"`

	CertifiedAt     RawDate `json:"dataCertificacao,omitempty"`
	ValidUntil      RawDate `json:"dataValidade,omitempty"`
	CalibratedAt    RawDate `json:"dataCalibracao,omitempty"`
	NextCalibration RawDate `json:"dataProximaCalibracao,omitempty"`
	InspectedAt     RawDate `json:"dataInspecao,omitempty"`
	NextInspection  RawDate `json:"dataProximaInspecao,omitempty"`

	// Millisecond timestamps precomputed by the store, preferred over
	// re-parsing the raw dates when ordering entries.
	CalibrationTimestamp int64 `json:"dataCalibracaoTimestamp,omitempty"`
	ValidityTimestamp    int64 `json:"dataValidadeTimestamp,omitempty"`

	CertificateNumber string `json:"numCertificado,omitempty"`
	Result            string `json:"resultado,omitempty"`
}

// Suggestion is a free-form improvement suggestion submitted by a user.
type Suggestion struct {
	Name        string `json:"nome"`
	Category    string `json:"categoria"`
	Description string `json:"descricao"`
	SubmittedAt string `json:"data,omitempty"`
}

type Collection[T any] struct {
	Data       []T    `json:"data"`
	Count      uint64 `json:"count"`
	Offset     uint64 `json:"offset"`
	Limit      uint64 `json:"limit"`
	TotalCount uint64 `json:"totalCount"`
}
