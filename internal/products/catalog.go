package products

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hundredwebs/petimage-backend/pkg/enums"
)

// Product is a locally configured credit pack or plan. The id matches the
// provider's product id, which is the only product reference payment events
// carry. Catalog membership is the authority: an event naming an unknown id
// is a configuration problem, not a business event.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Credits     int               `json:"credits"`
	PriceCents  int               `json:"price_cents"`
	Currency    enums.Currency    `json:"currency"`
	Type        enums.ProductType `json:"type"`
	Test        bool              `json:"test,omitempty"`
}

// Catalog is the static product lookup handed to the reconciler and the
// checkout surface.
type Catalog struct {
	byID  map[string]Product
	order []string
}

var defaultProducts = []Product{
	{
		ID:          "prod_2sHye4uIbTVNvIll3ix9sL",
		Name:        "Starter (test)",
		Description: "Single-credit pack for test checkouts",
		Credits:     1,
		PriceCents:  100,
		Currency:    enums.CurrencyUSD,
		Type:        enums.ProductTypeOnetime,
		Test:        true,
	},
	{
		ID:          "prod_2YRPVlkhs0lCrdOgVQomZT",
		Name:        "Basic",
		Description: "5 stylized pet portraits",
		Credits:     5,
		PriceCents:  449,
		Currency:    enums.CurrencyUSD,
		Type:        enums.ProductTypeOnetime,
	},
	{
		ID:          "prod_nmwW7Mttc1hpOtsaO5bVs",
		Name:        "Pro",
		Description: "15 stylized pet portraits",
		Credits:     15,
		PriceCents:  1449,
		Currency:    enums.CurrencyUSD,
		Type:        enums.ProductTypeOnetime,
	},
}

// NewCatalog builds the default catalog.
func NewCatalog() *Catalog {
	catalog, err := NewCatalogFromProducts(defaultProducts)
	if err != nil {
		// defaults are compile-time constants; a failure here is a programming error
		panic(err)
	}
	return catalog
}

// NewCatalogFromJSON builds a catalog from an operator-supplied JSON array,
// overriding the built-in products.
func NewCatalogFromJSON(raw []byte) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("parsing product catalog: %w", err)
	}
	return NewCatalogFromProducts(products)
}

// NewCatalogFromProducts validates and indexes the provided products.
func NewCatalogFromProducts(products []Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("product catalog is empty")
	}

	byID := make(map[string]Product, len(products))
	order := make([]string, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product with empty id")
		}
		if _, exists := byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if p.Credits < 0 {
			return nil, fmt.Errorf("product %q has negative credits", p.ID)
		}
		if p.PriceCents < 0 {
			return nil, fmt.Errorf("product %q has negative price", p.ID)
		}
		if !p.Currency.IsValid() {
			return nil, fmt.Errorf("product %q has invalid currency %q", p.ID, p.Currency)
		}
		if !p.Type.IsValid() {
			return nil, fmt.Errorf("product %q has invalid type %q", p.ID, p.Type)
		}
		byID[p.ID] = p
		order = append(order, p.ID)
	}

	return &Catalog{byID: byID, order: order}, nil
}

// Lookup resolves a provider product id to the local configuration.
func (c *Catalog) Lookup(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.byID[id]
	return p, ok
}

// Active lists the purchasable products for the given environment. In test
// mode only test products are offered; in live mode test products are hidden.
func (c *Catalog) Active(testMode bool) []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		p := c.byID[id]
		if p.Test == testMode {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out
}
