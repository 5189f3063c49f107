package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	memoryrepo "venture/internal/repository/memory"
	"venture/internal/service"
)

func TestHealthz_AlwaysOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := &HealthHandler{}
	h.Register(engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rec.Code)
	}
}

func TestReadyz_NoDatabaseIsNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	store := memoryrepo.New()
	settings := &service.SystemSettingsService{Repo: store}
	h := &HealthHandler{Settings: settings}
	h.Register(engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rec.Code)
	}
	var body struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "not_ready" {
		t.Fatalf("status=%q want not_ready", body.Status)
	}
	if body.Components["database"] != "not_configured" {
		t.Fatalf("database=%v want not_configured", body.Components["database"])
	}
	// Switch state is withheld while the store is unreachable.
	if _, present := body.Components["trading_loop"]; present {
		t.Fatalf("trading_loop reported without a database")
	}
}
