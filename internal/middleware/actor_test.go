package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsdeck/reviewflow/internal/domain/identity"
	"github.com/opsdeck/reviewflow/internal/middleware"
)

func TestActorFromHeaders(t *testing.T) {
	var (
		gotRef      identity.Ref
		gotCategory string
	)
	handler := middleware.Actor(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotRef = middleware.ActorFromContext(r.Context())
		gotCategory = middleware.ActorCategoryFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/", http.NoBody)
	req.Header.Set("X-Actor-ID", "u1")
	req.Header.Set("X-Actor-Name", "Mara")
	req.Header.Set("X-Actor-Email", "mara@example.com")
	req.Header.Set("X-Actor-Category", "manager")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotRef.UserID != "u1" || gotRef.Name != "Mara" || gotRef.Email != "mara@example.com" {
		t.Fatalf("unexpected actor ref: %+v", gotRef)
	}
	if gotCategory != "manager" {
		t.Fatalf("expected category manager, got %q", gotCategory)
	}
}

func TestActorMissingHeaders(t *testing.T) {
	var gotRef identity.Ref
	handler := middleware.Actor(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotRef = middleware.ActorFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", http.NoBody))

	if !gotRef.Empty() {
		t.Fatalf("expected empty ref, got %+v", gotRef)
	}
}

func TestActorFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/", http.NoBody)
	if ref := middleware.ActorFromContext(req.Context()); !ref.Empty() {
		t.Fatalf("expected empty ref, got %+v", ref)
	}
	if cat := middleware.ActorCategoryFromContext(req.Context()); cat != "" {
		t.Fatalf("expected empty category, got %q", cat)
	}
}
