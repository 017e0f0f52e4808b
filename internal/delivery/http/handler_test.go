package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProductScanner/internal/config"
	"ProductScanner/internal/domain"
	"ProductScanner/internal/infrastructure/export"
	"ProductScanner/internal/infrastructure/storage"
	"ProductScanner/internal/monitoring"
	"ProductScanner/internal/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, pageURL string) (domain.ExtractionResult, error) {
	if !strings.HasPrefix(pageURL, "http") {
		return domain.ExtractionResult{}, domain.ErrInvalidURL
	}
	if strings.HasSuffix(pageURL, "/gone") {
		return domain.ExtractionResult{Items: []domain.ProductRecord{domain.FailedPage(pageURL, 404)}, Duration: "0.01"}, nil
	}
	if strings.HasSuffix(pageURL, "/empty") {
		return domain.ExtractionResult{Items: []domain.ProductRecord{}, Duration: "0.01"}, nil
	}
	return domain.ExtractionResult{
		Items: []domain.ProductRecord{
			{URL: pageURL + "/p/1", Title: "Widget", Price: "9.99", Currency: "EUR", Description: "Small widget"},
			domain.FailedPage(pageURL+"/p/2", 500),
		},
		Duration: "0.50",
	}, nil
}

func setupTestRouter(t *testing.T, server config.ServerConfig) *gin.Engine {
	t.Helper()

	repo, err := storage.NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)

	handler := NewHandler(HandlerDeps{
		Extractor: fakeExtractor{},
		Sessions:  usecase.NewSessions(repo, fakeExtractor{}, nil),
		Exporter:  export.NewExporter(map[string]string{"title": "#product_name"}),
		Metrics:   monitoring.NewMetrics(),
	})
	return SetupRouter(server, handler, nil)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router *gin.Engine, body string) domain.Session {
	t.Helper()

	w := doJSON(router, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	return session
}

func TestHealthAndMetrics(t *testing.T) {
	router := setupTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = doJSON(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `productscanner_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestScrapeEndpoint(t *testing.T) {
	router := setupTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodPost, "/api/scrape", `{"url":"https://shop.test"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.ExtractionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "0.50", result.Duration)
	require.Len(t, result.Items, 2)
	assert.True(t, result.Items[1].Error)

	w = doJSON(router, http.MethodPost, "/api/scrape", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "URL required")

	w = doJSON(router, http.MethodPost, "/api/scrape", `{"url":"ftp://shop.test"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	router := setupTestRouter(t, config.ServerConfig{})

	session := createSession(t, router, `{"url":"https://www.shop.test"}`)
	assert.Equal(t, "www.shop.test", session.Name)
	require.Len(t, session.Items, 1)
	assert.Equal(t, "Widget", session.Items[0].Title)

	w := doJSON(router, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = doJSON(router, http.MethodPut, "/api/sessions/"+session.ID, `{"name":"Renamed","columns":{"price":"Cost"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "Cost", updated.Columns["price"])
	assert.Len(t, updated.Items, 1)

	w = doJSON(router, http.MethodPost, "/api/sessions/"+session.ID+"/scrape", `{"url":"https://other.test"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var appended domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appended))
	assert.Len(t, appended.Items, 2)

	w = doJSON(router, http.MethodPost, "/api/sessions/"+session.ID+"/scrape", `{"url":"https://other.test/empty"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(router, http.MethodDelete, "/api/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshFailingSource(t *testing.T) {
	router := setupTestRouter(t, config.ServerConfig{})

	gone := createSession(t, router, `{"url":"https://shop.test/gone"}`)
	w := doJSON(router, http.MethodPost, "/api/sessions/"+gone.ID+"/refresh", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	empty := createSession(t, router, `{"url":"https://shop.test/empty"}`)
	w = doJSON(router, http.MethodPost, "/api/sessions/"+empty.ID+"/refresh", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	ok := createSession(t, router, `{"url":"https://shop.test"}`)
	w = doJSON(router, http.MethodPost, "/api/sessions/"+ok.ID+"/refresh", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportAndImport(t *testing.T) {
	router := setupTestRouter(t, config.ServerConfig{})
	session := createSession(t, router, `{"name":"Lamp Session","url":"https://shop.test"}`)

	w := doJSON(router, http.MethodGet, "/api/sessions/"+session.ID+"/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Lamp_Session.csv"`, w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#product_name,price,"))
	assert.Contains(t, lines[1], "Small widget")

	w = doJSON(router, http.MethodGet, "/api/sessions/"+session.ID+"/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType(export.FormatXLSX), w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	w = doJSON(router, http.MethodGet, "/api/sessions/"+session.ID+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/sessions/"+session.ID+"/import", `{"items":[{"title":"A"},{"title":"B"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var imported domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imported))
	require.Len(t, imported.Items, 2)
	assert.NotEmpty(t, imported.Items[0].ID)

	w = doJSON(router, http.MethodGet, "/api/sessions/"+session.ID+"/export?format=json", "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []domain.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Equal(t, "B", items[1].Title)

	w = doJSON(router, http.MethodPost, "/api/sessions/"+session.ID+"/import", `nope`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitDBRequiresSQL(t *testing.T) {
	router := setupTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodPost, "/api/init-db", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Database not configured")
}

func TestRateLimitAndCORS(t *testing.T) {
	router := setupTestRouter(t, config.ServerConfig{
		AllowedOrigins: []string{"http://localhost:*"},
		RateLimit:      0.001,
		RateBurst:      2,
	})

	for i := 0; i < 2; i++ {
		w := doJSON(router, http.MethodPost, "/api/scrape", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := doJSON(router, http.MethodPost, "/api/scrape", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/scrape", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{name: "exact match", origin: "http://localhost:3000", allowed: []string{"http://localhost:3000"}, want: true},
		{name: "wildcard match", origin: "chrome-extension://abc", allowed: []string{"chrome-extension://*"}, want: true},
		{name: "no match", origin: "http://evil.com", allowed: []string{"http://localhost:3000"}, want: false},
		{name: "empty origin", origin: "", allowed: []string{"*"}, want: false},
		{name: "empty list", origin: "http://localhost:3000", allowed: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAllowedOrigin(tt.origin, tt.allowed))
		})
	}
}
