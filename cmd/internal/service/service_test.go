package service

import (
	"context"
	"os"
	"telenotes/cmd/internal/contract"
	"telenotes/cmd/internal/domain/database"
	"telenotes/cmd/internal/domain/database/repository"
	"telenotes/cmd/internal/domain/entity"
	"telenotes/cmd/internal/security"
	"telenotes/cmd/internal/utils/validators"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	security.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type testEnv struct {
	db     *gorm.DB
	users  *UserService
	notes  *DefaultNoteService
	tokens *security.TokenIssuer
	clock  int64
}

func setupTestEnv(t *testing.T) *testEnv {
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

	tokens, err := security.NewTokenIssuer("test-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	validate := validators.New()
	env := &testEnv{
		db:     db,
		tokens: tokens,
		users:  NewUserService(repository.NewUserRepository(db), tokens, validate),
		notes:  NewNoteService(repository.NewNoteRepository(db), validate),
		clock:  1_700_000_000_000,
	}
	env.notes.Clock = func() int64 { return env.clock }
	return env
}

// register creates a user and returns the stored entity, as the auth
// middleware would put it in the request context.
func (e *testEnv) register(t *testing.T, telegramID string) *entity.User {
	t.Helper()
	ctx := context.Background()
	if _, apierr := e.users.Register(ctx, &contract.RegisterRequest{TelegramID: telegramID, Password: "secret-pw"}); apierr != nil {
		t.Fatalf("Register(%q) error = %v", telegramID, apierr)
	}

	user, err := repository.NewUserRepository(e.db).FindByTelegramID(ctx, telegramID)
	if err != nil || user == nil {
		t.Fatalf("failed to load user %q: %v", telegramID, err)
	}
	return user
}
