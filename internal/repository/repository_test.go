package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mediabot/internal/apperr"
	"mediabot/internal/database"
	"mediabot/internal/index"
	"mediabot/internal/models"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db, 5*time.Second)
}

func seedMedia(t *testing.T, repos *Repositories, rows ...models.Media) {
	t.Helper()
	for i := range rows {
		if err := repos.Media.Upsert(context.Background(), &rows[i]); err != nil {
			t.Fatalf("Upsert(%s): %v", rows[i].ID, err)
		}
	}
}

func TestMediaSearchAndCount(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedMedia(t, repos,
		models.Media{ID: "b", FileName: "Iron Man.mkv", Keywords: "iron man mkv"},
		models.Media{ID: "a", FileName: "Ironclad.mp4", Keywords: "ironclad mp4"},
		models.Media{ID: "c", FileName: "Environment.mp4", Keywords: "environment mp4"},
		models.Media{ID: "d", FileName: "Batman.mp4", Keywords: "batman mp4"},
	)

	q := index.Build([]string{"iron"})
	got, err := repos.Media.Search(ctx, q, 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Prefix match on word starts only; "environment" must not match.
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("Search = %+v, want ids [a b]", got)
	}
	if got[1].FileName != "Iron Man.mkv" {
		t.Errorf("FileName = %q", got[1].FileName)
	}

	n, err := repos.Media.Count(ctx, q)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	page, err := repos.Media.Search(ctx, q, 1, 1)
	if err != nil {
		t.Fatalf("Search page 2: %v", err)
	}
	if len(page) != 1 || page[0].ID != "b" {
		t.Errorf("second page = %+v", page)
	}
}

func TestMediaSearchOrsTokens(t *testing.T) {
	repos := newTestRepos(t)
	seedMedia(t, repos,
		models.Media{ID: "1", Keywords: "iron man"},
		models.Media{ID: "2", Keywords: "batman begins"},
		models.Media{ID: "3", Keywords: "superman"},
	)

	n, err := repos.Media.Count(context.Background(), index.Build([]string{"iron", "bat"}))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestMediaSearchEscapesWildcards(t *testing.T) {
	repos := newTestRepos(t)
	seedMedia(t, repos,
		models.Media{ID: "1", Keywords: "100% real"},
		models.Media{ID: "2", Keywords: "100 percent"},
	)

	n, err := repos.Media.Count(context.Background(), index.Build([]string{"100%"}))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestMediaEmptyQuery(t *testing.T) {
	repos := newTestRepos(t)
	got, err := repos.Media.Search(context.Background(), index.Build(nil), 10, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("Search(empty) = %v, %v", got, err)
	}
}

func TestMediaUpsertOverwrites(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedMedia(t, repos, models.Media{ID: "x", Caption: "old", Keywords: "old"})
	seedMedia(t, repos, models.Media{ID: "x", Caption: "new", Keywords: "new", FileReference: []byte{1, 2}})

	m, err := repos.Media.GetByID(ctx, "x")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if m.Caption != "new" || len(m.FileReference) != 2 {
		t.Errorf("row = %+v", m)
	}

	if _, err := repos.Media.GetByID(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("GetByID(missing) err = %v, want not_found", err)
	}
}

func TestTokenUniquePerFile(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedMedia(t, repos, models.Media{ID: "f1"})

	if _, err := repos.Tokens.FindByFileID(ctx, "f1"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("FindByFileID before insert err = %v", err)
	}
	if err := repos.Tokens.Insert(ctx, "tok-1", "f1"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repos.Tokens.Insert(ctx, "tok-2", "f1"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second Insert err = %v, want conflict", err)
	}

	tok, err := repos.Tokens.FindByFileID(ctx, "f1")
	if err != nil || tok != "tok-1" {
		t.Errorf("FindByFileID = %q, %v", tok, err)
	}
	fileID, err := repos.Tokens.FindByToken(ctx, "tok-1")
	if err != nil || fileID != "f1" {
		t.Errorf("FindByToken = %q, %v", fileID, err)
	}
	if _, err := repos.Tokens.FindByToken(ctx, "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("FindByToken(nope) err = %v", err)
	}
}

func TestSubscriberSetExpiryOverwrites(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if _, err := repos.Subscribers.Expiry(ctx, 7); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Expiry(unknown) err = %v", err)
	}
	if err := repos.Subscribers.SetExpiry(ctx, 7, now.AddDate(0, 0, 30)); err != nil {
		t.Fatalf("SetExpiry: %v", err)
	}
	if err := repos.Subscribers.SetExpiry(ctx, 7, now.AddDate(0, 0, 5)); err != nil {
		t.Fatalf("SetExpiry renew: %v", err)
	}
	got, err := repos.Subscribers.Expiry(ctx, 7)
	if err != nil {
		t.Fatalf("Expiry: %v", err)
	}
	if !got.Equal(now.AddDate(0, 0, 5)) {
		t.Errorf("Expiry = %v, want %v", got, now.AddDate(0, 0, 5))
	}
}

func TestUserActivity(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	now := time.Now().UTC()

	users := []models.User{
		{UserID: 1, Username: "old", LastActive: now.Add(-48 * time.Hour)},
		{UserID: 2, Username: "recent", LastActive: now.Add(-time.Hour)},
	}
	for _, u := range users {
		if err := repos.Users.Upsert(ctx, u); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	total, err := repos.Users.Count(ctx)
	if err != nil || total != 2 {
		t.Fatalf("Count = %d, %v", total, err)
	}
	active, err := repos.Users.CountActiveSince(ctx, now.Add(-24*time.Hour))
	if err != nil || active != 1 {
		t.Fatalf("CountActiveSince = %d, %v", active, err)
	}

	if err := repos.Users.Touch(ctx, 1, now); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	active, _ = repos.Users.CountActiveSince(ctx, now.Add(-24*time.Hour))
	if active != 2 {
		t.Errorf("active after Touch = %d, want 2", active)
	}

	ids, err := repos.Users.IDs(ctx)
	if err != nil || len(ids) != 2 {
		t.Errorf("IDs = %v, %v", ids, err)
	}
}
