package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/observability"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 24*time.Hour, cfg.DraftTTL)
	require.Equal(t, CatalogSourceStatic, cfg.CatalogSource)
	require.Equal(t, "IDR", cfg.Currency)
	require.Equal(t, "B001", cfg.DefaultBranchID)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DRAFT_TTL", "2h")
	t.Setenv("CATALOG_SOURCE", "postgres")
	t.Setenv("DISPATCH_WEBHOOK_URL", "https://supplier.example/po")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 2*time.Hour, cfg.DraftTTL)
	require.Equal(t, CatalogSourcePostgres, cfg.CatalogSource)
	require.Equal(t, "https://supplier.example/po", cfg.DispatchWebhookURL)
}

func TestLoadConfigRejectsUnknownCatalogSource(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "csv")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("CATALOG_SOURCE", "static")
	t.Setenv("DRAFT_TTL", "0s")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestActorMiddleware(t *testing.T) {
	var seen string
	handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, " apoteker.rina ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "apoteker.rina", seen)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, shared.SystemActor, seen)
}

func TestRouterServesHealthAndProcurement(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	provider := catalog.SampleProvider()
	svc := procurement.NewService(nil, procurement.NewMemoryDraftStore(time.Hour), provider, nil, nil, metrics, logger)
	router := NewRouter(RouterParams{
		Logger:             logger,
		Config:             &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second},
		CatalogHandler:     catalog.NewHandler(logger, provider),
		ProcurementHandler: procurement.NewHandler(logger, svc),
		Metrics:            metrics,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/procurement/drafts", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"branch_id":"B001"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/suppliers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "odyssey_http_requests_total"))
}

func TestWiringFallbacks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{CatalogSource: CatalogSourcePostgres, DraftTTL: time.Hour, DefaultBranchID: "B002"}

	provider := NewCatalogProvider(cfg, nil, nil, logger)
	_, isStatic := provider.(*catalog.StaticProvider)
	require.True(t, isStatic)

	_, isMemory := NewDraftStore(cfg, nil).(*procurement.MemoryDraftStore)
	require.True(t, isMemory)

	svc := procurement.NewService(nil, NewDraftStore(cfg, nil), provider, nil, nil, nil, logger, BuilderOptions(cfg)...)
	view, err := svc.OpenDraft(context.Background(), procurement.OpenDraftInput{})
	require.NoError(t, err)
	require.Equal(t, "B002", view.Draft.BranchID)
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}
