package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type panicTally struct {
	routes []string
}

func (p *panicTally) IncPanic(route string) {
	p.routes = append(p.routes, route)
}

func TestRecovererCountsPanicsPerRoute(t *testing.T) {
	tally := &panicTally{}
	r := chi.NewRouter()
	r.Use(RequestID(nil), Recoverer(nil, tally))
	r.Post("/api/v1/generate", func(http.ResponseWriter, *http.Request) {
		panic("nil provider")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/generate", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(tally.routes) != 1 || tally.routes[0] != "/api/v1/generate" {
		t.Fatalf("expected one panic on the generate route, got %v", tally.routes)
	}

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if body.Error.RequestID == "" || body.Error.RequestID != rec.Header().Get("X-Request-Id") {
		t.Fatalf("expected request id echoed in body, got %q", body.Error.RequestID)
	}
}

func TestRecovererPassesThroughWithoutPanic(t *testing.T) {
	tally := &panicTally{}
	handler := Recoverer(nil, tally)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || len(tally.routes) != 0 {
		t.Fatalf("unexpected recovery: code=%d panics=%v", rec.Code, tally.routes)
	}
}
