package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/heartline/backend/internal/model/persona"
)

func get(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestActivePersona(t *testing.T) {
	resp := get(New(persona.NewMemoryStore(persona.Seed()), "theo"), "/persona")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var p persona.Persona
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != "theo" {
		t.Fatalf("expected theo, got %s", p.ID)
	}
}

func TestActivePersonaEmptyStore(t *testing.T) {
	resp := get(New(persona.NewMemoryStore(nil), "charlotte"), "/persona")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListPersonas(t *testing.T) {
	resp := get(New(persona.NewMemoryStore(persona.Seed()), "charlotte"), "/personas")

	var list []persona.Persona
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != len(persona.Seed()) {
		t.Fatalf("expected %d personas, got %d", len(persona.Seed()), len(list))
	}
}
