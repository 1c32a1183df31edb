package controllers

import (
	"net/http"

	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
)

type planResponse struct {
	Plan        string `json:"plan"`
	DisplayName string `json:"display_name"`
	Proposals   int    `json:"proposals"`
	Followups   int    `json:"followups"`
	Invoices    int    `json:"invoices"`
	Clients     int    `json:"clients"`
	Price       string `json:"price"`
	PriceMinor  int64  `json:"price_minor"`
	Currency    string `json:"currency"`
}

type planListResponse struct {
	Plans []planResponse `json:"plans"`
}

// PlansList handles GET /api/v1/plans. The catalog is static so the route is
// public.
func PlansList(catalog plans.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := catalog.List()
		out := make([]planResponse, 0, len(list))
		for _, p := range list {
			out = append(out, planResponse{
				Plan:        p.Plan.String(),
				DisplayName: p.DisplayName,
				Proposals:   p.Proposals,
				Followups:   p.Followups,
				Invoices:    p.Invoices,
				Clients:     p.Clients,
				Price:       p.Price.StringFixed(2),
				PriceMinor:  p.PriceMinorUnits(),
				Currency:    plans.Currency,
			})
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		responses.WriteSuccess(w, planListResponse{Plans: out})
	}
}
