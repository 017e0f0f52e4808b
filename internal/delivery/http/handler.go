package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/infrastructure/export"
	"ProductScanner/internal/monitoring"
	"ProductScanner/internal/ports"
	"ProductScanner/internal/usecase"
)

const serviceName = "productscanner"

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	extractor ports.ProductExtractor
	sessions  *usecase.Sessions
	exporter  *export.Exporter
	metrics   *monitoring.Metrics
	logger    *slog.Logger
}

// HandlerDeps groups the collaborators served over HTTP.
type HandlerDeps struct {
	Extractor ports.ProductExtractor
	Sessions  *usecase.Sessions
	Exporter  *export.Exporter
	Metrics   *monitoring.Metrics
	Logger    *slog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(deps HandlerDeps) *Handler {
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.NewExporter(nil)
	}
	return &Handler{
		extractor: deps.Extractor,
		sessions:  deps.Sessions,
		exporter:  exporter,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type createSessionRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type updateSessionRequest struct {
	Name    *string           `json:"name"`
	Items   []domain.Item     `json:"items"`
	Columns map[string]string `json:"columns"`
}

// HealthCheck returns the health status of the API.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Scrape runs the extraction pipeline for one URL.
func (h *Handler) Scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL required"})
		return
	}
	if h.extractor == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Extraction not configured"})
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), req.URL)
	if err != nil {
		h.fail(c, err, "Scrape failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSessions returns all sessions, newest first.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch sessions")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// CreateSession stores a new session, auto-scraping the optional URL.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), usecase.SessionDraft{Name: req.Name, URL: req.URL})
	if err != nil {
		h.fail(c, err, "Failed to create session")
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetSession returns one session with its items.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to fetch session")
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdateSession applies a partial update of name, items and columns.
func (h *Handler) UpdateSession(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.sessions.Update(c.Request.Context(), c.Param("id"), usecase.SessionPatch{
		Name:    req.Name,
		Items:   req.Items,
		Columns: req.Columns,
	})
	if err != nil {
		h.fail(c, err, "Failed to update session")
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession removes a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AppendToSession scrapes another URL and adds its products to the session.
func (h *Handler) AppendToSession(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL required"})
		return
	}

	session, added, err := h.sessions.AppendFromURL(c.Request.Context(), c.Param("id"), req.URL)
	if err != nil {
		h.fail(c, err, "Failed to add products")
		return
	}
	if added == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No valid products found on that page."})
		return
	}
	c.JSON(http.StatusOK, session)
}

// RefreshSession re-extracts the session's source URL.
func (h *Handler) RefreshSession(c *gin.Context) {
	session, err := h.sessions.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to refresh session")
		return
	}
	c.JSON(http.StatusOK, session)
}

// ExportSession streams the session items as csv, xlsx or json.
func (h *Handler) ExportSession(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", export.FormatCSV))

	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to fetch session")
		return
	}

	var buf bytes.Buffer
	if format == export.FormatJSON {
		err = export.WriteJSON(&buf, session.Items)
	} else {
		err = h.exporter.Write(&buf, format, export.Records(session.Items), session.Columns)
	}
	if err != nil {
		h.fail(c, err, "Export failed")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(session.Name, format)+`"`)
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

// ImportSession replaces the session items with an uploaded JSON document.
func (h *Handler) ImportSession(c *gin.Context) {
	records, err := export.ReadJSON(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON file"})
		return
	}

	session, err := h.sessions.ReplaceItems(c.Request.Context(), c.Param("id"), records)
	if err != nil {
		h.fail(c, err, "Import failed")
		return
	}
	c.JSON(http.StatusOK, session)
}

// InitDB creates the SQL schema.
func (h *Handler) InitDB(c *gin.Context) {
	if err := h.sessions.Init(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrStorageNotSQL) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Database not configured",
				"message": "Set DATABASE_URL or storage.driver to a SQL backend",
			})
			return
		}
		h.fail(c, err, "Failed to initialize database")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Database initialized successfully"})
}

// fail maps domain errors to status codes; anything else is a logged 500.
func (h *Handler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL"})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, domain.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format"})
	case errors.Is(err, domain.ErrSourceFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Source page could not be fetched"})
	case errors.Is(err, domain.ErrNoProducts):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No valid products found on that page."})
	default:
		if h.logger != nil {
			h.logger.Error(message, "path", c.Request.URL.Path, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
