package ports

import (
	"context"
	"time"

	"ProductScanner/internal/domain"
)

// PageFetcher downloads raw markup for a page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// ProductExtractor runs the full extraction pipeline for one URL.
type ProductExtractor interface {
	Extract(ctx context.Context, pageURL string) (domain.ExtractionResult, error)
}

// SessionRepository persists sessions and their items.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, session domain.Session) (domain.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]domain.Session, error)
}

// SchemaInitializer is implemented by stores that need their schema created up front.
type SchemaInitializer interface {
	Init(ctx context.Context) error
}

// Recorder receives pipeline measurements (Prometheus in production).
type Recorder interface {
	ExtractionFinished(outcome string, duration time.Duration)
	StageYield(stage string, count int)
	EnrichmentFinished(outcome string)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
