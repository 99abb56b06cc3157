package products

import (
	"testing"

	"github.com/hundredwebs/petimage-backend/pkg/enums"
)

func TestNewCatalog_Defaults(t *testing.T) {
	catalog := NewCatalog()

	basic, ok := catalog.Lookup("prod_2YRPVlkhs0lCrdOgVQomZT")
	if !ok {
		t.Fatal("expected Basic pack in default catalog")
	}
	if basic.Credits != 5 || basic.PriceCents != 449 {
		t.Fatalf("unexpected Basic config: %+v", basic)
	}

	if _, ok := catalog.Lookup("prod_unknown"); ok {
		t.Fatal("unknown id must not resolve")
	}
}

func TestNewCatalogFromJSON(t *testing.T) {
	catalog, err := NewCatalogFromJSON([]byte(`[
		{"id": "prod_a", "name": "A", "credits": 3, "price_cents": 300, "currency": "USD", "type": "onetime"}
	]`))
	if err != nil {
		t.Fatalf("NewCatalogFromJSON error: %v", err)
	}
	if _, ok := catalog.Lookup("prod_a"); !ok {
		t.Fatal("expected prod_a in catalog")
	}
}

func TestNewCatalogFromProducts_Validation(t *testing.T) {
	valid := Product{
		ID:         "prod_a",
		Name:       "A",
		Credits:    3,
		PriceCents: 300,
		Currency:   enums.CurrencyUSD,
		Type:       enums.ProductTypeOnetime,
	}

	cases := []struct {
		name     string
		products []Product
	}{
		{"empty catalog", nil},
		{"empty id", []Product{{Name: "A", Currency: enums.CurrencyUSD, Type: enums.ProductTypeOnetime}}},
		{"duplicate id", []Product{valid, valid}},
		{"negative credits", []Product{{ID: "p", Credits: -1, Currency: enums.CurrencyUSD, Type: enums.ProductTypeOnetime}}},
		{"negative price", []Product{{ID: "p", PriceCents: -1, Currency: enums.CurrencyUSD, Type: enums.ProductTypeOnetime}}},
		{"bad currency", []Product{{ID: "p", Currency: "BTC", Type: enums.ProductTypeOnetime}}},
		{"bad type", []Product{{ID: "p", Currency: enums.CurrencyUSD, Type: "rental"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCatalogFromProducts(tc.products); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCatalog_Active(t *testing.T) {
	catalog := NewCatalog()

	live := catalog.Active(false)
	for _, p := range live {
		if p.Test {
			t.Fatalf("test product %s offered in live mode", p.ID)
		}
	}
	if len(live) != 2 {
		t.Fatalf("expected 2 live products, got %d", len(live))
	}
	// Sorted by price ascending.
	if live[0].PriceCents > live[1].PriceCents {
		t.Fatalf("expected price-sorted products: %+v", live)
	}

	test := catalog.Active(true)
	if len(test) != 1 || !test[0].Test {
		t.Fatalf("expected the single test product, got %+v", test)
	}
}
