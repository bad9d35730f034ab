package core

import "testing"

func TestCategorize(t *testing.T) {
	cases := []struct {
		label string
		want  Category
	}{
		{"cliente", CategoryCustomer},
		{"Cliente", CategoryCustomer},
		{"Nosotros", CategoryInternal},
		{"Mercaderia", CategoryMerchandise},
		{"Mercadería", CategoryMerchandise},
		{"Desperdicio", CategoryWaste},
		{"Corrección Caja", CategoryCorrection},
		{"correccion caja", CategoryCorrection},
		{"Distri", CategorySupplier},
		{"Santa Rosa", CategorySupplier},
		{"", CategorySupplier},
	}
	for _, c := range cases {
		if got := Categorize(c.label); got != c.want {
			t.Errorf("Categorize(%q) = %s, want %s", c.label, got, c.want)
		}
	}
}

func TestCategoryExcluded(t *testing.T) {
	if !CategoryMerchandise.Excluded(DefaultExclusions) {
		t.Error("merchandise should be excluded by default")
	}
	if !CategoryWaste.Excluded(DefaultExclusions) {
		t.Error("waste should be excluded by default")
	}
	if CategorySupplier.Excluded(DefaultExclusions) {
		t.Error("supplier should not be excluded by default")
	}
	if CategoryCustomer.Excluded(nil) {
		t.Error("nothing is excluded by an empty set")
	}
}
