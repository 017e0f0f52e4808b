package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/ports"
)

// FileRepository keeps one JSON document per session inside a directory.
type FileRepository struct {
	dir    string
	logger *slog.Logger
	mu     sync.RWMutex
}

var _ ports.SessionRepository = (*FileRepository)(nil)

// NewFileRepository creates dir when missing.
func NewFileRepository(dir string, logger *slog.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRepository{dir: dir, logger: logger}, nil
}

// Create writes a new session document.
func (r *FileRepository) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	path, err := r.pathFor(session.ID)
	if err != nil {
		return domain.Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.write(path, session); err != nil {
		return domain.Session{}, err
	}
	return withItems(session), nil
}

// Get reads one session document.
func (r *FileRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(path)
}

// Update overwrites an existing session document.
func (r *FileRepository) Update(ctx context.Context, session domain.Session) (domain.Session, error) {
	path, err := r.pathFor(session.ID)
	if err != nil {
		return domain.Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("stat session: %w", err)
	}
	if err := r.write(path, session); err != nil {
		return domain.Session{}, err
	}
	return withItems(session), nil
}

// Delete removes the session document; false means it did not exist.
func (r *FileRepository) Delete(ctx context.Context, id string) (bool, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove session: %w", err)
	}
	return true, nil
}

// List returns every readable session, most recently updated first.
// Unreadable documents are skipped.
func (r *FileRepository) List(ctx context.Context) ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	sessions := make([]domain.Session, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		session, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			r.warn("skip unreadable session file", "file", entry.Name(), "error", err)
			continue
		}
		sessions = append(sessions, session)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (r *FileRepository) pathFor(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", domain.ErrSessionNotFound
	}
	return filepath.Join(r.dir, id+".json"), nil
}

func (r *FileRepository) read(path string) (domain.Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("read session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session %s: %w", filepath.Base(path), err)
	}
	return withItems(session), nil
}

// write replaces the document atomically through a temp file.
func (r *FileRepository) write(path string, session domain.Session) error {
	payload, err := json.MarshalIndent(withItems(session), "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (r *FileRepository) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func withItems(session domain.Session) domain.Session {
	if session.Items == nil {
		session.Items = []domain.Item{}
	}
	return session
}
