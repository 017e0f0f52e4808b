package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/infrastructure/parser"
	"ProductScanner/internal/logging"
)

type stubFetcher struct {
	pages    map[string]string
	statuses map[string]int
	failures map[string]error
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu     sync.Mutex
	calls  []string
	events []fetchEvent
}

type fetchEvent struct {
	url   string
	start bool
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages:    map[string]string{},
		statuses: map[string]int{},
		failures: map[string]error{},
	}
}

func (s *stubFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxInFlight.Load()
		if current <= prev || s.maxInFlight.CompareAndSwap(prev, current) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, pageURL)
	s.events = append(s.events, fetchEvent{url: pageURL, start: true})
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.events = append(s.events, fetchEvent{url: pageURL})
		s.mu.Unlock()
	}()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := s.failures[pageURL]; err != nil {
		return nil, err
	}
	if code := s.statuses[pageURL]; code != 0 {
		return nil, &domain.StatusError{URL: pageURL, Code: code}
	}
	page, ok := s.pages[pageURL]
	if !ok {
		return nil, fmt.Errorf("no route for %s", pageURL)
	}
	return []byte(page), nil
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type countingRecorder struct {
	mu         sync.Mutex
	outcomes   []string
	enrichment map[string]int
	stages     map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{enrichment: map[string]int{}, stages: map[string]int{}}
}

func (r *countingRecorder) ExtractionFinished(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) StageYield(stage string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] += count
}

func (r *countingRecorder) EnrichmentFinished(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrichment[outcome]++
}

func newTestPipeline(f *stubFetcher, rec *countingRecorder) *Pipeline {
	deps := PipelineDeps{
		Fetcher:  f,
		Chain:    parser.NewListingChain(nil),
		Enricher: parser.NewDetailEnricher(nil),
	}
	if rec != nil {
		deps.Recorder = rec
	}
	return NewPipeline(deps)
}

func itemListPage(n int) string {
	var b strings.Builder
	b.WriteString(`<script type="application/ld+json">{"@type":"ItemList","itemListElement":[`)
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"@type":"ListItem","position":%d,"name":"Product %d","url":"https://shop.test/p/%d"}`, i, i, i)
	}
	b.WriteString(`]}</script>`)
	return b.String()
}

func skuPage(sku string) string {
	return `<script type="application/ld+json">{"@type":"Product","name":"x","sku":"` + sku + `"}</script>`
}

func TestExtractSingleStructuredProduct(t *testing.T) {
	t.Parallel()

	const target = "https://shop.test/widget"
	f := newStubFetcher()
	f.pages[target] = `<html><head><script type="application/ld+json">
	{"@context":"https://schema.org","@type":"Product","name":"Widget",
	 "offers":{"@type":"Offer","price":"9.99","priceCurrency":"EUR"}}
	</script></head><body></body></html>`

	rec := newCountingRecorder()
	result, err := newTestPipeline(f, rec).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	want := domain.ProductRecord{URL: target, Title: "Widget", Price: "9.99", Currency: "EUR"}
	if len(result.Items) != 1 || result.Items[0] != want {
		t.Fatalf("unexpected items: %+v", result.Items)
	}
	if result.Duration == "" || !strings.Contains(result.Duration, ".") {
		t.Fatalf("expected two-decimal duration, got %q", result.Duration)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0] != OutcomeSuccess {
		t.Fatalf("unexpected outcomes: %v", rec.outcomes)
	}
}

func TestExtractStatusFailureYieldsPlaceholder(t *testing.T) {
	t.Parallel()

	const target = "https://shop.test/gone"
	f := newStubFetcher()
	f.statuses[target] = 404

	result, err := newTestPipeline(f, nil).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one placeholder, got %+v", result.Items)
	}
	item := result.Items[0]
	if !item.Error || item.Title != "Failed to access URL" || !strings.Contains(item.Description, "404") {
		t.Fatalf("unexpected placeholder: %+v", item)
	}
	if len(result.ValidItems()) != 0 {
		t.Fatalf("placeholder must not count as valid")
	}
}

func TestExtractTransportFailureYieldsEmpty(t *testing.T) {
	t.Parallel()

	const target = "https://down.test/"
	f := newStubFetcher()
	f.failures[target] = errors.New("connection refused")

	rec := newCountingRecorder()
	result, err := newTestPipeline(f, rec).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if result.Items == nil || len(result.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", result.Items)
	}
	if result.Duration == "" {
		t.Fatalf("duration must be attached")
	}
	if rec.outcomes[0] != OutcomeTransportError {
		t.Fatalf("unexpected outcome: %v", rec.outcomes)
	}
}

func TestExtractNothingFound(t *testing.T) {
	t.Parallel()

	const target = "https://shop.test/about"
	f := newStubFetcher()
	f.pages[target] = `<html><head><title>About us</title></head><body><p>Hello</p></body></html>`

	result, err := newTestPipeline(f, nil).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatalf("expected no items, got %+v", result.Items)
	}
}

func TestExtractDeduplicatesCards(t *testing.T) {
	t.Parallel()

	const target = "https://shop.test/lamps"
	f := newStubFetcher()
	card := func(href, title string) string {
		return `<div class="product-card"><a href="` + href + `"><img src="/l.jpg"></a><h3>` + title + `</h3></div>`
	}
	f.pages[target] = card("/p/a", "Alpha Lamp") + card("/p/a", "Alpha Lamp") + card("/p/b", "Beta Lamp")

	result, err := newTestPipeline(f, nil).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 unique items, got %+v", result.Items)
	}
	if result.Items[0].Title != "Alpha Lamp" || result.Items[1].Title != "Beta Lamp" {
		t.Fatalf("order must be preserved: %+v", result.Items)
	}
}

func TestExtractEnrichesOnlyPrefix(t *testing.T) {
	t.Parallel()

	const target = "https://shop.test/all"
	f := newStubFetcher()
	f.pages[target] = itemListPage(73)
	for i := 1; i <= 73; i++ {
		f.pages[fmt.Sprintf("https://shop.test/p/%d", i)] = skuPage(fmt.Sprintf("SKU-%d", i))
	}

	result, err := newTestPipeline(f, nil).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Items) != 73 {
		t.Fatalf("expected 73 items, got %d", len(result.Items))
	}
	for i, item := range result.Items {
		if item.Title != fmt.Sprintf("Product %d", i+1) {
			t.Fatalf("order changed at %d: %q", i, item.Title)
		}
		enriched := item.SKU != ""
		if i < 50 && !enriched {
			t.Fatalf("item %d must be enriched", i+1)
		}
		if i >= 50 && enriched {
			t.Fatalf("item %d must be untouched, got sku %q", i+1, item.SKU)
		}
	}
	if got := f.callCount(); got != 51 {
		t.Fatalf("expected 1 listing + 50 detail fetches, got %d", got)
	}
}

func TestExtractBoundsDetailConcurrency(t *testing.T) {
	t.Parallel()

	const target = "https://shop.test/twelve"
	f := newStubFetcher()
	f.delay = 10 * time.Millisecond
	f.pages[target] = itemListPage(12)
	for i := 1; i <= 12; i++ {
		f.pages[fmt.Sprintf("https://shop.test/p/%d", i)] = skuPage("S")
	}

	result, err := newTestPipeline(f, nil).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Items) != 12 {
		t.Fatalf("expected 12 items, got %d", len(result.Items))
	}
	if peak := f.maxInFlight.Load(); peak > 5 || peak < 2 {
		t.Fatalf("detail fetches must run in parallel, at most 5 at once: peak %d", peak)
	}

	// Chunks are p/1-5, p/6-10, p/11-12; a chunk starts only after the previous one ended.
	chunkSize := []int{5, 5, 2}
	ended := make([]int, len(chunkSize))
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		var n int
		if _, err := fmt.Sscanf(ev.url, "https://shop.test/p/%d", &n); err != nil {
			continue
		}
		chunk := (n - 1) / 5
		if !ev.start {
			ended[chunk]++
			continue
		}
		if chunk > 0 && ended[chunk-1] != chunkSize[chunk-1] {
			t.Fatalf("p/%d started before chunk %d finished (%d/%d ended)", n, chunk, ended[chunk-1], chunkSize[chunk-1])
		}
	}
	for i, size := range chunkSize {
		if ended[i] != size {
			t.Fatalf("chunk %d: %d of %d fetches finished", i+1, ended[i], size)
		}
	}
}

func TestExtractAbsorbsDetailFailure(t *testing.T) {
	t.Parallel()

	const (
		target = "https://shop.test/five"
		broken = "https://shop.test/p/3"
	)
	tests := []struct {
		name      string
		breakPage func(f *stubFetcher)
	}{
		{name: "transport error", breakPage: func(f *stubFetcher) { f.failures[broken] = errors.New("connection reset by peer") }},
		{name: "status error", breakPage: func(f *stubFetcher) { f.statuses[broken] = 500 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newStubFetcher()
			f.pages[target] = itemListPage(5)
			for i := 1; i <= 5; i++ {
				f.pages[fmt.Sprintf("https://shop.test/p/%d", i)] = skuPage(fmt.Sprintf("SKU-%d", i))
			}
			tt.breakPage(f)

			rec := newCountingRecorder()
			result, err := newTestPipeline(f, rec).Extract(context.Background(), target)
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}
			if len(result.Items) != 5 {
				t.Fatalf("expected 5 items, got %d", len(result.Items))
			}
			for i, item := range result.Items {
				if i == 2 {
					if item.SKU != "" || item.Title != "Product 3" || item.Error {
						t.Fatalf("failed item must keep listing values: %+v", item)
					}
					continue
				}
				if item.SKU != fmt.Sprintf("SKU-%d", i+1) {
					t.Fatalf("item %d not enriched: %+v", i+1, item)
				}
			}
			if rec.enrichment[EnrichmentApplied] != 4 || rec.enrichment[EnrichmentFailed] != 1 {
				t.Fatalf("unexpected enrichment counts: %v", rec.enrichment)
			}
			if rec.stages["structured-data"] != 5 {
				t.Fatalf("unexpected stage yield: %v", rec.stages)
			}
		})
	}
}

func TestExtractRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newStubFetcher(), nil)
	for _, raw := range []string{"", "ftp://shop.test/", "not a url", "https://", "http://%zz"} {
		if _, err := p.Extract(context.Background(), raw); !errors.Is(err, domain.ErrInvalidURL) {
			t.Fatalf("%q: expected ErrInvalidURL, got %v", raw, err)
		}
	}
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	t.Parallel()

	in := []domain.ProductRecord{
		{URL: "u1", Title: "A", Price: "1"},
		{URL: "u1", Title: "A", Price: "2"},
		{URL: "u1", Title: "B"},
		{URL: "u2", Title: "A"},
	}
	out := Deduplicate(in)
	if len(out) != 3 || out[0].Price != "1" {
		t.Fatalf("unexpected dedup result: %+v", out)
	}
}

func TestNewPipelineLogsStageOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPipeline(PipelineDeps{
		Fetcher: newStubFetcher(),
		Chain:   parser.NewListingChain(nil),
		Logger:  logging.NewWithWriter(&buf, "debug", "text"),
	})

	out := buf.String()
	if !strings.Contains(out, "pipeline ready") || !strings.Contains(out, "[structured-data card-grid altrex-table open-graph]") {
		t.Fatalf("stage order not logged: %s", out)
	}
}
