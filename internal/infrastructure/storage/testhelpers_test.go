package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/ports"
)

func sampleSession(id string, updated time.Time) domain.Session {
	created := updated.Add(-time.Hour)
	return domain.Session{
		ID:           id,
		Name:         "shop.test",
		SourceURL:    "https://shop.test/lamps",
		Hostname:     "shop.test",
		Favicon:      "https://www.google.com/s2/favicons?domain=shop.test&sz=128",
		LastDuration: "1.25",
		Columns:      map[string]string{"title": "Name"},
		Items: []domain.Item{
			{ID: id + "-1", ProductRecord: domain.ProductRecord{URL: "https://shop.test/p/1", Title: "Alpha", Price: "9,99", SKU: "A1"}, CreatedAt: created},
			{ID: id + "-2", ProductRecord: domain.ProductRecord{URL: "https://shop.test/p/2", Title: "Beta", Stock: "In Stock"}, CreatedAt: created},
		},
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

// exerciseRepository runs the shared contract every session store must meet.
func exerciseRepository(t *testing.T, repo ports.SessionRepository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := sampleSession("11111111-1111-4111-8111-111111111111", base)
	newer := sampleSession("22222222-2222-4222-8222-222222222222", base.Add(time.Hour))
	newer.Name = "newer"

	for _, s := range []domain.Session{older, newer} {
		if _, err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create %s: %v", s.ID, err)
		}
	}

	got, err := repo.Get(ctx, older.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != older.Name || got.LastDuration != "1.25" || got.Columns["title"] != "Name" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.UpdatedAt.Equal(older.UpdatedAt) {
		t.Fatalf("updatedAt not preserved: %s vs %s", got.UpdatedAt, older.UpdatedAt)
	}
	if len(got.Items) != 2 || got.Items[0].Title != "Alpha" || got.Items[1].Title != "Beta" {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
	if got.Items[0].Price != "9,99" || got.Items[0].SKU != "A1" || got.Items[1].Stock != "In Stock" {
		t.Fatalf("item fields lost: %+v", got.Items)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	got.Name = "renamed"
	got.Items = got.Items[1:]
	got.UpdatedAt = base.Add(2 * time.Hour)
	if _, err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	reloaded, err := repo.Get(ctx, older.ID)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if reloaded.Name != "renamed" || len(reloaded.Items) != 1 || reloaded.Items[0].Title != "Beta" {
		t.Fatalf("update not applied: %+v", reloaded)
	}

	missing := sampleSession("33333333-3333-4333-8333-333333333333", base)
	if _, err := repo.Update(ctx, missing); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on update, got %v", err)
	}
	if _, err := repo.Get(ctx, missing.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on get, got %v", err)
	}

	deleted, err := repo.Delete(ctx, older.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete: %v %v", deleted, err)
	}
	deleted, err = repo.Delete(ctx, older.ID)
	if err != nil || deleted {
		t.Fatalf("second Delete must report false: %v %v", deleted, err)
	}
	if _, err := repo.Get(ctx, older.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("deleted session still readable: %v", err)
	}
}
