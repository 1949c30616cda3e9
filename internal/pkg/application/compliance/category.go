package compliance

import (
	"strings"

	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// CategoryRule maps substrings of an uppercased, trimmed label onto a
// canonical category. Rules are tested in order; the first hit wins.
type CategoryRule struct {
	Category types.Category `yaml:"category"`
	Contains []string       `yaml:"contains"`
}

// DefaultCategoryRules is the built-in synonym table for free-text
// spreadsheet entry. Priority order matters: "MANOMETRO NR-13" should
// still land on gauges only if no electrical marker matched first.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Category: types.CategorySafety, Contains: []string{"NR", "10", "ELETR"}},
		{Category: types.CategoryGauge, Contains: []string{"MAN", "PRESS", "METER"}},
		{Category: types.CategoryGeneral, Contains: []string{"OUTROS", "GERAL", "DIVERSOS"}},
	}
}

// CategoryNormalizer reconciles arbitrary category labels into the three
// canonical categories. Additional synonym rules can be appended from
// configuration without touching any call site.
type CategoryNormalizer struct {
	rules []CategoryRule
}

func NewCategoryNormalizer(extra ...CategoryRule) *CategoryNormalizer {
	return &CategoryNormalizer{
		rules: append(DefaultCategoryRules(), extra...),
	}
}

func (n *CategoryNormalizer) Normalize(raw string) types.Category {
	label := strings.ToUpper(strings.TrimSpace(raw))
	if label == "" {
		return types.CategoryGeneral
	}

	for _, rule := range n.rules {
		for _, substr := range rule.Contains {
			if strings.Contains(label, substr) {
				return rule.Category
			}
		}
	}

	switch types.Category(label) {
	case types.CategorySafety, types.CategoryGauge, types.CategoryGeneral:
		return types.Category(label)
	}

	return types.CategoryGeneral
}

var defaultNormalizer = NewCategoryNormalizer()

// NormalizeCategory applies the built-in synonym table.
func NormalizeCategory(raw string) types.Category {
	return defaultNormalizer.Normalize(raw)
}
