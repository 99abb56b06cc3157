package controllers

import (
	"net/http"

	"github.com/hundredwebs/petimage-backend/api/responses"
	"github.com/hundredwebs/petimage-backend/internal/products"
)

// ListProducts returns the purchasable catalog. Test products only show up
// outside the live payment environment.
func ListProducts(catalog *products.Catalog, testMode bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"products": catalog.Active(testMode),
		})
	}
}
