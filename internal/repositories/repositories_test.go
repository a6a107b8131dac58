package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/shared"
	tu "github.com/desertthunder/songdeck/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	user := models.NewUser(0, email, "Test User")
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "users")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := createUser(t, db, "test@example.com")
		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := createUser(t, db, "test@example.com")
		retrieved, err := NewUserRepository(db).Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}
		if retrieved.Email() != user.Email() {
			t.Errorf("expected email %s, got %s", user.Email(), retrieved.Email())
		}
		if retrieved.CreatedAt().IsZero() {
			t.Error("expected created_at to be loaded")
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := createUser(t, db, "Worship@Example.com")
		retrieved, err := NewUserRepository(db).GetByEmail(" WORSHIP@example.com ")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := createUser(t, db, "test@example.com")

		user.SetName("Updated Name")
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.Name() != "Updated Name" {
			t.Errorf("expected name 'Updated Name', got %s", retrieved.Name())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := createUser(t, db, "test@example.com")

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		if _, err := repo.Get(user.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for deleted user, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		createUser(t, db, "one@example.com")
		createUser(t, db, "two@example.com")

		users, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
		if users[0].Email() != "one@example.com" {
			t.Errorf("expected sequence order, got %s first", users[0].Email())
		}

		filtered, err := repo.List(map[string]any{"email": "two@example.com"})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(filtered) != 1 {
			t.Errorf("expected 1 user, got %d", len(filtered))
		}
	})
}

func TestSavedSongRepository(t *testing.T) {
	t.Run("Save is idempotent per user and key", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSavedSongRepository(db)
		user := createUser(t, db, "test@example.com")

		first, err := repo.Save(user.ID(), "aboveallpowers", "Above All Powers")
		if err != nil {
			t.Fatalf("failed to save song: %v", err)
		}
		second, err := repo.Save(user.ID(), "aboveallpowers", "Above All Powers")
		if err != nil {
			t.Fatalf("failed to save song again: %v", err)
		}

		if first.ID() != second.ID() {
			t.Errorf("expected the same saved entry, got %s and %s", first.ID(), second.ID())
		}
	})

	t.Run("ListByUser", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSavedSongRepository(db)
		alice := createUser(t, db, "alice@example.com")
		bob := createUser(t, db, "bob@example.com")

		repo.Save(alice.ID(), "aboveallpowers", "Above All Powers")
		repo.Save(alice.ID(), "amazinggrace", "Amazing Grace")
		repo.Save(bob.ID(), "amazinggrace", "Amazing Grace")

		songs, err := repo.ListByUser(alice.ID())
		if err != nil {
			t.Fatalf("failed to list saved songs: %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("expected 2 saved songs, got %d", len(songs))
		}
		if songs[0].SongKey() != "aboveallpowers" {
			t.Errorf("expected save order, got %s first", songs[0].SongKey())
		}
	})

	t.Run("Remove then save again", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSavedSongRepository(db)
		user := createUser(t, db, "test@example.com")

		saved, _ := repo.Save(user.ID(), "aboveallpowers", "Above All Powers")
		if err := repo.Remove(user.ID(), "aboveallpowers"); err != nil {
			t.Fatalf("failed to remove saved song: %v", err)
		}
		if err := repo.Remove(user.ID(), "aboveallpowers"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second remove, got %v", err)
		}

		again, err := repo.Save(user.ID(), "aboveallpowers", "Above All Powers")
		if err != nil {
			t.Fatalf("failed to save song after removal: %v", err)
		}
		if again.ID() == saved.ID() {
			t.Error("expected a new entry after removal")
		}
	})

	t.Run("Update and Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSavedSongRepository(db)
		user := createUser(t, db, "test@example.com")
		song := models.NewSavedSong(0, user.ID(), "amazinggrace", "Amazing Grace")
		if err := repo.Create(song); err != nil {
			t.Fatalf("failed to create saved song: %v", err)
		}

		if err := repo.Update(song); err != nil {
			t.Fatalf("failed to update saved song: %v", err)
		}
		if err := repo.Delete(song.ID()); err != nil {
			t.Fatalf("failed to delete saved song: %v", err)
		}
		if _, err := repo.Get(song.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDailySongRepository(t *testing.T) {
	t.Run("Replace orders and supersedes", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDailySongRepository(db)
		songs := tu.SampleSongs()

		if _, err := repo.Replace("2026-10-18", songs[:2]); err != nil {
			t.Fatalf("failed to set daily songs: %v", err)
		}
		entries, err := repo.Replace("2026-10-18", []models.Song{songs[2], songs[0]})
		if err != nil {
			t.Fatalf("failed to replace daily songs: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}

		listed, err := repo.ListByDay("2026-10-18")
		if err != nil {
			t.Fatalf("failed to list daily songs: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 live entries, got %d", len(listed))
		}
		if listed[0].SongKey() != "amazinggrace" || listed[1].SongKey() != "aboveallpowers" {
			t.Errorf("unexpected order: %s, %s", listed[0].SongKey(), listed[1].SongKey())
		}
		if listed[0].Position() != 0 || listed[1].Position() != 1 {
			t.Errorf("unexpected positions: %d, %d", listed[0].Position(), listed[1].Position())
		}
	})

	t.Run("Days are independent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDailySongRepository(db)
		songs := tu.SampleSongs()
		repo.Replace("2026-10-18", songs[:1])
		repo.Replace("2026-10-19", songs[1:3])

		day1, _ := repo.ListByDay("2026-10-18")
		day2, _ := repo.ListByDay("2026-10-19")
		if len(day1) != 1 || len(day2) != 2 {
			t.Errorf("expected 1 and 2 entries, got %d and %d", len(day1), len(day2))
		}
	})

	t.Run("Invalid day", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewDailySongRepository(db).Replace("18/10/2026", tu.SampleSongs())
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Create Get Update Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDailySongRepository(db)
		entry := models.NewDailySong(0, "2026-10-18", 0, "amazinggrace", "Amazing Grace")
		if err := repo.Create(entry); err != nil {
			t.Fatalf("failed to create daily song: %v", err)
		}

		got, err := repo.Get(entry.ID())
		if err != nil {
			t.Fatalf("failed to get daily song: %v", err)
		}
		if got.Day() != "2026-10-18" {
			t.Errorf("expected day 2026-10-18, got %s", got.Day())
		}

		if err := repo.Update(got); err != nil {
			t.Fatalf("failed to update daily song: %v", err)
		}
		if err := repo.Delete(got.ID()); err != nil {
			t.Fatalf("failed to delete daily song: %v", err)
		}
		if err := repo.Delete(got.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDocumentRepository(t *testing.T) {
	t.Run("cache adapter stores and refreshes", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDocumentRepository(db)
		cache := NewDocumentCacheAdapter(repo)

		if _, _, err := cache.Lookup("aboveallpowers"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on miss, got %v", err)
		}

		if err := cache.Store("aboveallpowers", "<pre>v1</pre>"); err != nil {
			t.Fatalf("failed to store document: %v", err)
		}
		html, fetchedAt, err := cache.Lookup("aboveallpowers")
		if err != nil {
			t.Fatalf("failed to look up document: %v", err)
		}
		if html != "<pre>v1</pre>" || fetchedAt.IsZero() {
			t.Errorf("unexpected cache entry %q at %v", html, fetchedAt)
		}

		if err := cache.Store("aboveallpowers", "<pre>v2</pre>"); err != nil {
			t.Fatalf("failed to refresh document: %v", err)
		}
		html, _, _ = cache.Lookup("aboveallpowers")
		if html != "<pre>v2</pre>" {
			t.Errorf("expected refreshed document, got %q", html)
		}

		docs, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list documents: %v", err)
		}
		if len(docs) != 1 {
			t.Errorf("expected a single cached row, got %d", len(docs))
		}
	})

	t.Run("Delete removes the row", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDocumentRepository(db)
		doc := models.NewSongDocument(0, "amazinggrace", "<pre></pre>")
		if err := repo.Create(doc); err != nil {
			t.Fatalf("failed to create document: %v", err)
		}
		if err := repo.Delete(doc.ID()); err != nil {
			t.Fatalf("failed to delete document: %v", err)
		}
		if err := repo.Create(models.NewSongDocument(0, "amazinggrace", "<pre></pre>")); err != nil {
			t.Errorf("expected key to be reusable after delete, got %v", err)
		}
	})
}

func TestStateRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("versions increase per channel", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStateRepository(db)
		for want := int64(1); want <= 3; want++ {
			got, err := repo.Save(ctx, "above-all-powers", []byte(`{"type":"index","index":0}`))
			if err != nil {
				t.Fatalf("failed to save state: %v", err)
			}
			if got != want {
				t.Errorf("expected version %d, got %d", want, got)
			}
		}

		other, err := repo.Save(ctx, "amazing-grace", []byte(`{}`))
		if err != nil {
			t.Fatalf("failed to save state: %v", err)
		}
		if other != 1 {
			t.Errorf("expected independent version 1, got %d", other)
		}

		payload, version, err := repo.Latest(ctx, "above-all-powers")
		if err != nil {
			t.Fatalf("failed to load state: %v", err)
		}
		if version != 3 || string(payload) != `{"type":"index","index":0}` {
			t.Errorf("unexpected latest %s at %d", payload, version)
		}

		channels, err := repo.Channels(ctx)
		if err != nil {
			t.Fatalf("failed to list channels: %v", err)
		}
		if len(channels) != 2 {
			t.Errorf("expected 2 channels, got %v", channels)
		}
	})

	t.Run("missing channel", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, _, err := NewStateRepository(db).Latest(ctx, "nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStateRepository(db)
		repo.Save(ctx, "k", []byte(`{}`))
		if err := repo.Clear(ctx, "k"); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if _, _, err := repo.Latest(ctx, "k"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after clear, got %v", err)
		}
	})

	t.Run("empty channel", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewStateRepository(db).Save(ctx, "", []byte(`{}`)); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("late audience joins through SQLStore", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		transport := present.NewStoreTransport(present.NewSQLStore(NewStateRepository(db), 10*time.Millisecond, nil))
		state := models.NewPresentationState("Above All Powers", []models.Slide{"<pre>a</pre>", "<pre>b</pre>"})
		state.CurrentSlide = 1

		payload, err := models.StateEnvelope(state).Encode()
		if err != nil {
			t.Fatalf("failed to encode state: %v", err)
		}
		if err := transport.Publish(ctx, "above-all-powers", payload); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}

		subCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		audience := present.NewAudience()
		sub, err := transport.Subscribe(subCtx, "above-all-powers")
		if err != nil {
			t.Fatalf("failed to subscribe: %v", err)
		}
		defer sub.Close()

		select {
		case msg := <-sub.Messages():
			if err := audience.Apply(msg); err != nil {
				t.Fatalf("failed to apply: %v", err)
			}
		case <-subCtx.Done():
			t.Fatal("timed out waiting for stored state")
		}

		view := audience.Current()
		if view.Waiting || view.Index != 1 || view.Slide != "<pre>b</pre>" {
			t.Errorf("unexpected view %+v", view)
		}
	})
}
