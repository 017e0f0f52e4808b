package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ProductScanner/internal/domain"
)

// Enrichment outcomes reported to the recorder.
const (
	EnrichmentApplied = "enriched"
	EnrichmentFailed  = "failed"
	EnrichmentSkipped = "skipped"
)

// Deduplicate keeps the first record for every url+title pair, preserving order.
func Deduplicate(records []domain.ProductRecord) []domain.ProductRecord {
	seen := make(map[string]struct{}, len(records))
	unique := make([]domain.ProductRecord, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, rec)
	}
	return unique
}

// enrich visits detail pages for the leading candidates in fixed-size
// chunks; a chunk must finish before the next one starts. Records past the
// prefix are returned untouched.
func (p *Pipeline) enrich(ctx context.Context, candidates []domain.ProductRecord) []domain.ProductRecord {
	out := make([]domain.ProductRecord, len(candidates))
	copy(out, candidates)

	if p.enricher == nil {
		return out
	}

	limit := min(len(candidates), p.prefix)
	for start := 0; start < limit; start += p.concurrency {
		end := min(start+p.concurrency, limit)

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				out[i] = p.enrichOne(ctx, candidates[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	return out
}

func (p *Pipeline) enrichOne(ctx context.Context, listing domain.ProductRecord) domain.ProductRecord {
	if listing.URL == "" {
		p.recorder.EnrichmentFinished(EnrichmentSkipped)
		return listing
	}

	page, err := p.load(ctx, listing.URL)
	if err != nil {
		p.debug("detail page unavailable", "url", listing.URL, "error", err)
		p.recorder.EnrichmentFinished(EnrichmentFailed)
		return listing
	}

	p.recorder.EnrichmentFinished(EnrichmentApplied)
	return p.enricher.Enrich(page, listing)
}
