package core

import "strings"

// Category is the semantic class of a counterparty label. It drives which
// amounts count toward the accountable monthly state.
type Category string

const (
	CategoryCustomer    Category = "Cliente"
	CategoryInternal    Category = "Gastos Propios"
	CategoryMerchandise Category = "Mercadería"
	CategoryWaste       Category = "Desperdicio"
	CategoryCorrection  Category = "Corrección"
	CategorySupplier    Category = "Proveedor"
)

// DefaultExclusions lists the categories excluded from the accountable
// monthly state. Merchandise and waste are tracked but treated as
// non-cash-equivalent; the 70% discount on their nominal value is applied
// by the caller before the movement is recorded.
var DefaultExclusions = []Category{CategoryMerchandise, CategoryWaste}

type categoryRule struct {
	category Category
	keywords []string
}

// Ordered; first match wins. Matching is substring and case-insensitive so
// legacy labels with or without accents map to the same category.
var categoryRules = []categoryRule{
	{CategoryCustomer, []string{"cliente"}},
	{CategoryInternal, []string{"nosotros"}},
	{CategoryMerchandise, []string{"mercaderia", "mercadería"}},
	{CategoryWaste, []string{"desperdicio"}},
	{CategoryCorrection, []string{"correccion", "corrección"}},
}

// Categorize maps a counterparty label to its category. Unmatched labels
// default to CategorySupplier.
func Categorize(counterparty string) Category {
	label := strings.ToLower(strings.TrimSpace(counterparty))
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(label, kw) {
				return rule.category
			}
		}
	}
	return CategorySupplier
}

// Excluded reports whether the category is in the given exclusion set.
func (c Category) Excluded(exclusions []Category) bool {
	for _, e := range exclusions {
		if c == e {
			return true
		}
	}
	return false
}
