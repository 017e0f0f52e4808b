package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"ProductScanner/internal/config"
	"ProductScanner/internal/domain"
	"ProductScanner/internal/ports"
)

// HTTPFetcher downloads pages with browser-like headers and decodes them to UTF-8.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	accept       string
	maxBodyBytes int64
	logger       *slog.Logger
}

var _ ports.PageFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; a nil client gets the configured timeout.
func NewHTTPFetcher(client *http.Client, cfg config.FetcherConfig, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.TimeoutDuration()}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &HTTPFetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		accept:       cfg.Accept,
		maxBodyBytes: maxBody,
		logger:       logger,
	}
}

// Fetch returns the page body; non-2xx answers yield *domain.StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.accept != "" {
		req.Header.Set("Accept", f.accept)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	f.debug("page fetched", "url", pageURL, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &domain.StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}

	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return payload, nil
}

func (f *HTTPFetcher) debug(msg string, args ...any) {
	if f.logger == nil {
		return
	}
	f.logger.Debug(msg, args...)
}
