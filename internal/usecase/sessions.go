package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/ports"
)

// DefaultSessionName is used when a session is created without name or URL.
const DefaultSessionName = "Untitled Session"

const faviconTemplate = "https://www.google.com/s2/favicons?domain=%s&sz=128"

// SessionDraft is the input for creating a session.
type SessionDraft struct {
	Name string
	URL  string
}

// SessionPatch carries the fields to change; nil members are left untouched.
type SessionPatch struct {
	Name    *string
	Items   []domain.Item
	Columns map[string]string
}

// MigrationReport summarizes a repository-to-repository copy.
type MigrationReport struct {
	Migrated int
	Failed   int
}

// Sessions manages stored extraction sessions.
type Sessions struct {
	repo      ports.SessionRepository
	extractor ports.ProductExtractor
	logger    *slog.Logger
	now       func() time.Time
}

// NewSessions wires the repository with the extractor used for auto-scraping.
func NewSessions(repo ports.SessionRepository, extractor ports.ProductExtractor, logger *slog.Logger) *Sessions {
	return &Sessions{repo: repo, extractor: extractor, logger: logger, now: time.Now}
}

// Create stores a new session, extracting products from draft.URL when set.
func (s *Sessions) Create(ctx context.Context, draft SessionDraft) (domain.Session, error) {
	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(draft.Name),
		Items:     []domain.Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session.Name == "" {
		session.Name = DefaultSessionName
	}

	if source := strings.TrimSpace(draft.URL); source != "" {
		if u, err := url.Parse(source); err == nil && u.Hostname() != "" {
			session.SourceURL = source
			session.Hostname = u.Hostname()
			session.Favicon = fmt.Sprintf(faviconTemplate, u.Hostname())
			if session.Name == DefaultSessionName {
				session.Name = u.Hostname()
			}
		}

		result, err := s.extract(ctx, source)
		if err != nil {
			return domain.Session{}, err
		}
		session.Items = stampItems(nil, result.ValidItems(), now)
		session.LastDuration = result.Duration
	}

	created, err := s.repo.Create(ctx, session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}

	s.info("session created", "id", created.ID, "items", len(created.Items))
	return created, nil
}

// Get loads one session with its items.
func (s *Sessions) Get(ctx context.Context, id string) (domain.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

// List returns sessions, most recently updated first.
func (s *Sessions) List(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Update applies patch to an existing session. Items replace the stored set.
func (s *Sessions) Update(ctx context.Context, id string, patch SessionPatch) (domain.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	now := s.now().UTC()
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			session.Name = name
		}
	}
	if patch.Items != nil {
		session.Items = stampExisting(patch.Items, now)
	}
	if patch.Columns != nil {
		if session.Columns == nil {
			session.Columns = map[string]string{}
		}
		for field, name := range patch.Columns {
			session.Columns[field] = name
		}
	}
	session.UpdatedAt = now

	updated, err := s.repo.Update(ctx, session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	return updated, nil
}

// ReplaceItems swaps the session's items for imported records.
func (s *Sessions) ReplaceItems(ctx context.Context, id string, records []domain.ProductRecord) (domain.Session, error) {
	return s.Update(ctx, id, SessionPatch{Items: stampItems(nil, records, s.now().UTC())})
}

// AppendFromURL extracts pageURL and adds the valid products to the session.
func (s *Sessions) AppendFromURL(ctx context.Context, id, pageURL string) (domain.Session, int, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, 0, fmt.Errorf("get session %s: %w", id, err)
	}

	result, err := s.extract(ctx, pageURL)
	if err != nil {
		return domain.Session{}, 0, err
	}
	valid := result.ValidItems()
	if len(valid) == 0 {
		return session, 0, nil
	}

	now := s.now().UTC()
	session.Items = stampItems(session.Items, valid, now)
	session.LastDuration = result.Duration
	session.UpdatedAt = now

	updated, err := s.repo.Update(ctx, session)
	if err != nil {
		return domain.Session{}, 0, fmt.Errorf("update session %s: %w", id, err)
	}
	return updated, len(valid), nil
}

// Refresh re-extracts the session's source URL and replaces its items.
// Sessions without a source URL are returned unchanged. When the source
// fails or yields nothing, the stored session is returned with
// ErrSourceFailed or ErrNoProducts.
func (s *Sessions) Refresh(ctx context.Context, id string) (domain.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	if session.SourceURL == "" {
		return session, nil
	}

	result, err := s.extract(ctx, session.SourceURL)
	if err != nil {
		return domain.Session{}, err
	}
	// Stored items survive a failed or empty re-extraction.
	if result.HasFailure() {
		return session, fmt.Errorf("refresh session %s: %w", id, domain.ErrSourceFailed)
	}
	valid := result.ValidItems()
	if len(valid) == 0 {
		return session, fmt.Errorf("refresh session %s: %w", id, domain.ErrNoProducts)
	}

	now := s.now().UTC()
	session.Items = stampItems(nil, valid, now)
	session.LastDuration = result.Duration
	session.UpdatedAt = now

	updated, err := s.repo.Update(ctx, session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes a session; ErrSessionNotFound is returned when it is unknown.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("delete session %s: %w", id, domain.ErrSessionNotFound)
	}
	return nil
}

// Init creates the storage schema when the repository needs one.
func (s *Sessions) Init(ctx context.Context) error {
	initializer, ok := s.repo.(ports.SchemaInitializer)
	if !ok {
		return domain.ErrStorageNotSQL
	}
	return initializer.Init(ctx)
}

// Migrate copies every session of from into to, keeping ids and items.
// List may omit items, so each session is loaded individually.
func Migrate(ctx context.Context, from, to ports.SessionRepository, logger *slog.Logger) (MigrationReport, error) {
	var report MigrationReport

	sessions, err := from.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list source sessions: %w", err)
	}

	for _, summary := range sessions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		session, err := from.Get(ctx, summary.ID)
		if err == nil {
			_, err = to.Create(ctx, session)
		}
		if err != nil {
			report.Failed++
			if logger != nil {
				logger.Warn("session migration failed", "id", summary.ID, "name", summary.Name, "error", err)
			}
			continue
		}

		report.Migrated++
		if logger != nil {
			logger.Info("session migrated", "id", session.ID, "name", session.Name, "items", len(session.Items))
		}
	}

	return report, nil
}

func (s *Sessions) extract(ctx context.Context, pageURL string) (domain.ExtractionResult, error) {
	if s.extractor == nil {
		return domain.ExtractionResult{}, errors.New("no extractor configured")
	}
	result, err := s.extractor.Extract(ctx, pageURL)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	return result, nil
}

func (s *Sessions) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

// stampItems appends records to items with fresh ids and timestamps.
func stampItems(items []domain.Item, records []domain.ProductRecord, now time.Time) []domain.Item {
	out := make([]domain.Item, 0, len(items)+len(records))
	out = append(out, items...)
	for _, rec := range records {
		out = append(out, domain.Item{ID: uuid.NewString(), ProductRecord: rec, CreatedAt: now})
	}
	return out
}

// stampExisting fills ids and timestamps missing from client-supplied items.
func stampExisting(items []domain.Item, now time.Time) []domain.Item {
	out := make([]domain.Item, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		out[i] = item
	}
	return out
}
