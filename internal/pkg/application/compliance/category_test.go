package compliance

import (
	"testing"

	"github.com/matryer/is"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

func TestNormalizeCategorySynonyms(t *testing.T) {
	is := is.New(t)

	cases := map[string]types.Category{
		"manometro de pressão":  types.CategoryGauge,
		"Manômetros":            types.CategoryGauge,
		"Eletrica NR10":         types.CategorySafety,
		"nr-10":                 types.CategorySafety,
		"Outros":                types.CategoryGeneral,
		"equipamentos diversos": types.CategoryGeneral,
	}

	for raw, want := range cases {
		is.Equal(want, NormalizeCategory(raw))
	}
}

func TestNormalizeCategoryCanonicalPassThrough(t *testing.T) {
	is := is.New(t)

	is.Equal(types.CategorySafety, NormalizeCategory("NR-10"))
	is.Equal(types.CategoryGauge, NormalizeCategory("MANÔMETROS"))
	is.Equal(types.CategoryGeneral, NormalizeCategory("DEMAIS EQUIPAMENTOS"))
	is.Equal(types.CategoryGeneral, NormalizeCategory("  demais equipamentos  "))
}

func TestNormalizeCategoryUnknownFallsBack(t *testing.T) {
	is := is.New(t)

	is.Equal(types.CategoryGeneral, NormalizeCategory(""))
	is.Equal(types.CategoryGeneral, NormalizeCategory("   "))
	is.Equal(types.CategoryGeneral, NormalizeCategory("Extintor"))
}

func TestNormalizeCategoryPriority(t *testing.T) {
	is := is.New(t)

	// an electrical marker beats a gauge marker in the same label
	is.Equal(types.CategorySafety, NormalizeCategory("Manutenção elétrica NR-10"))
}

func TestNormalizeCategoryConfiguredRules(t *testing.T) {
	is := is.New(t)

	n := NewCategoryNormalizer(CategoryRule{
		Category: types.CategoryGauge,
		Contains: []string{"VACU"},
	})

	is.Equal(types.CategoryGauge, n.Normalize("Vacuômetro industrial"))
	is.Equal(types.CategorySafety, n.Normalize("nr 10"))
}
