package repository

import (
	"context"
	"errors"
	"sync"
	"telenotes/cmd/internal/domain/database"
	"telenotes/cmd/internal/domain/entity"
	"testing"

	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, repo *DefaultUserRepository, telegramID string) *entity.User {
	t.Helper()
	user := &entity.User{TelegramID: telegramID, HashedPassword: "hash"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createNote(t *testing.T, repo *DefaultNoteRepository, owner *entity.User, title string, tags ...string) *entity.Note {
	t.Helper()
	note := &entity.Note{Title: title, Content: "body", UserID: owner.ID, CreatedAt: 1, UpdatedAt: 1}
	if err := repo.Create(context.Background(), note, tags); err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	return note
}

func tagNames(note *entity.Note) []string {
	names := make([]string, len(note.Tags))
	for i, tag := range note.Tags {
		names[i] = tag.Name
	}
	return names
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	found, err := repo.FindByTelegramID(ctx, "u1")
	if err != nil || found != nil {
		t.Fatalf("FindByTelegramID() = %v, %v, want nil, nil", found, err)
	}

	user := createUser(t, repo, "u1")
	if user.ID == 0 {
		t.Fatal("expected user id to be set")
	}

	found, err = repo.FindByTelegramID(ctx, "u1")
	if err != nil || found == nil || found.ID != user.ID {
		t.Fatalf("FindByTelegramID() = %v, %v", found, err)
	}

	exists, err := repo.ExistsByTelegramID(ctx, "u1")
	if err != nil || !exists {
		t.Errorf("ExistsByTelegramID(u1) = %v, %v", exists, err)
	}

	exists, err = repo.ExistsByTelegramID(ctx, "u2")
	if err != nil || exists {
		t.Errorf("ExistsByTelegramID(u2) = %v, %v", exists, err)
	}

	err = repo.Create(ctx, &entity.User{TelegramID: "u1", HashedPassword: "other"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("duplicate Create() error = %v, want %v", err, gorm.ErrDuplicatedKey)
	}
}

func TestNoteRepositoryCreateReusesTags(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	notes := NewNoteRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	first := createNote(t, notes, alice, "first", "work", "Work")
	second := createNote(t, notes, bob, "second", "work")

	if got := tagNames(first); len(got) != 2 || got[0] != "work" || got[1] != "Work" {
		t.Fatalf("first note tags = %v, want [work Work]", got)
	}

	if first.Tags[0].ID != second.Tags[0].ID {
		t.Errorf("tag 'work' not shared: %d != %d", first.Tags[0].ID, second.Tags[0].ID)
	}

	var count int64
	db.Model(&entity.Tag{}).Count(&count)
	if count != 2 {
		t.Errorf("tags table has %d rows, want 2", count)
	}
}

func TestNoteRepositoryOwnership(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	notes := NewNoteRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	note := createNote(t, notes, alice, "secret", "x")

	found, err := notes.FindOwned(ctx, bob.ID, note.ID)
	if err != nil || found != nil {
		t.Errorf("FindOwned() by other user = %v, %v, want nil, nil", found, err)
	}

	found, err = notes.FindOwned(ctx, alice.ID, note.ID+100)
	if err != nil || found != nil {
		t.Errorf("FindOwned() missing = %v, %v, want nil, nil", found, err)
	}

	updated, err := notes.Update(ctx, bob.ID, note.ID, func(n *entity.Note) { n.Title = "hijacked" })
	if err != nil || updated != nil {
		t.Errorf("Update() by other user = %v, %v, want nil, nil", updated, err)
	}

	attached, err := notes.AttachTag(ctx, bob.ID, note.ID, "y", 5)
	if err != nil || attached != nil {
		t.Errorf("AttachTag() by other user = %v, %v, want nil, nil", attached, err)
	}

	detached, err := notes.DetachTag(ctx, bob.ID, note.ID, "x", 5)
	if err != nil || detached != nil {
		t.Errorf("DetachTag() by other user = %v, %v, want nil, nil", detached, err)
	}

	found, _ = notes.FindOwned(ctx, alice.ID, note.ID)
	if found.Title != "secret" || len(found.Tags) != 1 {
		t.Errorf("note changed through another user: %+v", found)
	}
}

func TestNoteRepositoryFindByOwner(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	notes := NewNoteRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	n1 := createNote(t, notes, alice, "n1", "x", "y")
	n2 := createNote(t, notes, alice, "n2", "y")
	n3 := createNote(t, notes, alice, "n3", "z")
	createNote(t, notes, bob, "bob's", "x", "y")

	tests := []struct {
		name string
		tags []string
		want []int64
	}{
		{"all", nil, []int64{n1.ID, n2.ID, n3.ID}},
		{"single tag", []string{"x"}, []int64{n1.ID}},
		{"union without duplicates", []string{"x", "y"}, []int64{n1.ID, n2.ID}},
		{"unknown tag", []string{"nope"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := notes.FindByOwner(ctx, alice.ID, tt.tags)
			if err != nil {
				t.Fatalf("FindByOwner() error = %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("FindByOwner() returned %d notes, want %d", len(got), len(tt.want))
			}

			for i, note := range got {
				if note.ID != tt.want[i] {
					t.Errorf("note[%d] = %d, want %d", i, note.ID, tt.want[i])
				}
			}
		})
	}

	got, _ := notes.FindByOwner(ctx, alice.ID, []string{"x", "y"})
	if names := tagNames(got[0]); len(names) != 2 {
		t.Errorf("tags not fully materialized on filtered read: %v", names)
	}
}

func TestNoteRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	notes := NewNoteRepository(db)
	note := createNote(t, notes, alice, "title", "x")

	updated, err := notes.Update(ctx, alice.ID, note.ID, func(n *entity.Note) {
		n.Content = ""
		n.UpdatedAt = 42
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, _ := notes.FindOwned(ctx, alice.ID, note.ID)
	for _, n := range []*entity.Note{updated, stored} {
		if n.Title != "title" || n.Content != "" || n.UpdatedAt != 42 || n.CreatedAt != 1 {
			t.Errorf("unexpected note after update: %+v", n)
		}

		if len(n.Tags) != 1 {
			t.Errorf("tags lost on update: %v", tagNames(n))
		}
	}
}

func TestNoteRepositoryAttachAndDetach(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	notes := NewNoteRepository(db)
	note := createNote(t, notes, alice, "title", "x")

	updated, err := notes.AttachTag(ctx, alice.ID, note.ID, "y", 10)
	if err != nil {
		t.Fatalf("AttachTag() error = %v", err)
	}

	if names := tagNames(updated); len(names) != 2 || names[1] != "y" || updated.UpdatedAt != 10 {
		t.Fatalf("AttachTag() = %v at %d", names, updated.UpdatedAt)
	}

	if _, err = notes.AttachTag(ctx, alice.ID, note.ID, "y", 11); !errors.Is(err, ErrTagAlreadyAttached) {
		t.Fatalf("second AttachTag() error = %v, want %v", err, ErrTagAlreadyAttached)
	}

	stored, _ := notes.FindOwned(ctx, alice.ID, note.ID)
	if len(stored.Tags) != 2 || stored.UpdatedAt != 10 {
		t.Errorf("failed attach changed the note: %v at %d", tagNames(stored), stored.UpdatedAt)
	}

	updated, err = notes.DetachTag(ctx, alice.ID, note.ID, "x", 12)
	if err != nil {
		t.Fatalf("DetachTag() error = %v", err)
	}

	if names := tagNames(updated); len(names) != 1 || names[0] != "y" || updated.UpdatedAt != 12 {
		t.Errorf("DetachTag() = %v at %d", names, updated.UpdatedAt)
	}

	// Tag rows survive detaching.
	var count int64
	db.Model(&entity.Tag{}).Where("name = ?", "x").Count(&count)
	if count != 1 {
		t.Errorf("tag 'x' was deleted")
	}

	if _, err = notes.DetachTag(ctx, alice.ID, note.ID, "x", 13); !errors.Is(err, ErrTagNotAttached) {
		t.Errorf("DetachTag() of unattached tag error = %v, want %v", err, ErrTagNotAttached)
	}

	if _, err = notes.DetachTag(ctx, alice.ID, note.ID, "never-created", 13); !errors.Is(err, ErrTagNotAttached) {
		t.Errorf("DetachTag() of unknown tag error = %v, want %v", err, ErrTagNotAttached)
	}
}

func TestNoteRepositoryConcurrentTagCreation(t *testing.T) {
	db := setupTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	notes := NewNoteRepository(db)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			note := &entity.Note{Title: "n", UserID: alice.ID}
			errs <- notes.Create(context.Background(), note, []string{"shared"})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Create() error = %v", err)
		}
	}

	var count int64
	db.Model(&entity.Tag{}).Where("name = ?", "shared").Count(&count)
	if count != 1 {
		t.Errorf("tag 'shared' stored %d times, want 1", count)
	}
}

func TestAttachTagLosesRace(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	notes := NewNoteRepository(db)
	note := createNote(t, notes, alice, "title", "x")

	// Link the tag right before AttachTag inserts it, as a concurrent
	// request would after our read of the note's tags.
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("test:link_first", func(tx *gorm.DB) {
		link, ok := tx.Statement.Dest.(*entity.NoteTag)
		if !ok || raced {
			return
		}
		raced = true
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO note_tag (note_id, tag_id) VALUES (?, ?)", link.NoteID, link.TagID)
		if err != nil {
			t.Errorf("failed to insert concurrent link: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	if _, err = notes.AttachTag(ctx, alice.ID, note.ID, "y", 10); !errors.Is(err, ErrTagAlreadyAttached) {
		t.Errorf("AttachTag() error = %v, want %v", err, ErrTagAlreadyAttached)
	}

	if !raced {
		t.Fatal("concurrent link was never inserted")
	}
}
