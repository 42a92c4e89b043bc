package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/talaad-shop/api/internal/services"
)

type stubCatalogService struct {
	listProducts func(ctx context.Context) ([]services.Product, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context) ([]services.Product, error) {
	if s.listProducts == nil {
		return nil, errors.New("unexpected ListProducts call")
	}
	return s.listProducts(ctx)
}

func TestRouterHealthz(t *testing.T) {
	router := NewRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestRouterReadyzReportsFailures(t *testing.T) {
	health := NewHealthHandlers(
		WithReadinessCheck("database", func(context.Context) error { return errors.New("locked") }),
	)
	router := NewRouter(WithHealthHandlers(health))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	router := NewRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != errorNotFoundCode {
		t.Fatalf("payload = %v", payload)
	}
}

func TestRouterUnconfiguredGroupAnswersNotImplemented(t *testing.T) {
	router := NewRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/anything", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestProductsEndpointListsCatalog(t *testing.T) {
	catalog := &stubCatalogService{
		listProducts: func(context.Context) ([]services.Product, error) {
			return []services.Product{
				{ID: 1, Name: "Pad Thai Kit", Price: 35000, Active: true},
			}, nil
		},
	}
	router := NewRouter(WithProductRoutes(NewProductHandlers(catalog).Routes))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Products []services.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Products) != 1 || payload.Products[0].Name != "Pad Thai Kit" {
		t.Fatalf("payload = %+v", payload)
	}
}
