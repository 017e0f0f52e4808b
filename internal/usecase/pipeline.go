package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/ports"
	"ProductScanner/internal/scanner"
)

// Extraction outcomes reported to the recorder.
const (
	OutcomeSuccess        = "success"
	OutcomeStatusError    = "status_error"
	OutcomeTransportError = "transport_error"
)

const (
	defaultEnrichmentPrefix = 50
	defaultConcurrency      = 5
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Fetcher          ports.PageFetcher
	Chain            *scanner.Chain
	Enricher         scanner.Enricher
	Recorder         ports.Recorder
	Logger           *slog.Logger
	EnrichmentPrefix int
	Concurrency      int
}

// Pipeline implements the listing-to-products workflow.
type Pipeline struct {
	fetcher     ports.PageFetcher
	chain       *scanner.Chain
	enricher    scanner.Enricher
	recorder    ports.Recorder
	logger      *slog.Logger
	prefix      int
	concurrency int
}

var _ ports.ProductExtractor = (*Pipeline)(nil)

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		fetcher:     deps.Fetcher,
		chain:       deps.Chain,
		enricher:    deps.Enricher,
		recorder:    deps.Recorder,
		logger:      deps.Logger,
		prefix:      deps.EnrichmentPrefix,
		concurrency: deps.Concurrency,
	}
	if p.chain == nil {
		p.chain = scanner.NewChain()
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	if p.prefix <= 0 {
		p.prefix = defaultEnrichmentPrefix
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultConcurrency
	}
	p.debug("pipeline ready", "stages", p.chain.Names(), "enrichment_prefix", p.prefix, "concurrency", p.concurrency)
	return p
}

// Extract fetches a listing page and returns the products found on it.
// Only a malformed target URL is reported as an error; fetch and parse
// failures are folded into the result.
func (p *Pipeline) Extract(ctx context.Context, rawURL string) (domain.ExtractionResult, error) {
	start := time.Now()

	target, err := parseTarget(rawURL)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	items, outcome := p.run(ctx, target)
	elapsed := time.Since(start)
	p.recorder.ExtractionFinished(outcome, elapsed)

	p.info("extraction finished", "url", target, "outcome", outcome, "items", len(items), "elapsed", elapsed)

	return domain.ExtractionResult{Items: items, Duration: formatDuration(elapsed)}, nil
}

func (p *Pipeline) run(ctx context.Context, target string) ([]domain.ProductRecord, string) {
	page, err := p.load(ctx, target)
	if err != nil {
		var statusErr *domain.StatusError
		if errors.As(err, &statusErr) {
			p.warn("listing page rejected", "url", target, "status", statusErr.Code)
			return []domain.ProductRecord{domain.FailedPage(target, statusErr.Code)}, OutcomeStatusError
		}
		p.warn("listing page unavailable", "url", target, "error", err)
		return []domain.ProductRecord{}, OutcomeTransportError
	}

	candidates := p.chain.Run(page, func(stage string, count int) {
		p.recorder.StageYield(stage, count)
		p.debug("stage finished", "stage", stage, "count", count)
	})

	unique := Deduplicate(candidates)
	return p.enrich(ctx, unique), OutcomeSuccess
}

// load fetches and parses one page.
func (p *Pipeline) load(ctx context.Context, pageURL string) (scanner.Page, error) {
	if p.fetcher == nil {
		return scanner.Page{}, errors.New("no fetcher configured")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return scanner.Page{}, fmt.Errorf("parse page url: %w", err)
	}

	body, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return scanner.Page{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return scanner.Page{}, fmt.Errorf("parse document: %w", err)
	}

	return scanner.Page{URL: base, Doc: doc}, nil
}

func parseTarget(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}

	return trimmed, nil
}

func formatDuration(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

type nopRecorder struct{}

func (nopRecorder) ExtractionFinished(string, time.Duration) {}
func (nopRecorder) StageYield(string, int)                  {}
func (nopRecorder) EnrichmentFinished(string)               {}
