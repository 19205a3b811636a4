package service

import (
	"context"
	"errors"
	"net/http"
	"telenotes/cmd/internal/contract"
	"telenotes/cmd/internal/domain/entity"
	"telenotes/cmd/internal/infrastructure/metrics"
	"telenotes/cmd/internal/security"
	"telenotes/cmd/internal/utils"
	"telenotes/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByTelegramID(ctx context.Context, telegramID string) (*entity.User, error)
	ExistsByTelegramID(ctx context.Context, telegramID string) (bool, error)
	Create(ctx context.Context, user *entity.User) error
}

type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// UserService is the credential store: the only place where passwords are
// hashed or compared.
type UserService struct {
	UserRepo UserRepository
	Tokens   TokenIssuer
	Validate *validator.Validate
}

func NewUserService(userRepo UserRepository, tokens TokenIssuer, validate *validator.Validate) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Tokens:   tokens,
		Validate: validate,
	}
}

// Register creates a user with a bcrypt hash of the password. It fails with
// IdentityTakenError when the telegram ID is already registered.
func (u *UserService) Register(ctx context.Context, req *contract.RegisterRequest) (*contract.UserResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	found, err := u.UserRepo.ExistsByTelegramID(ctx, req.TelegramID)
	if err != nil {
		log.Errorf("failed to check if user already exists: %v", err)
		return nil, apierror.InternalServerError
	}

	if found {
		return nil, apierror.IdentityTakenError
	}

	hash, err := security.HashPassword(req.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		tooLong := apierror.NewStructured(http.StatusBadRequest)
		tooLong.Add("password", "Value is too long, max bytes: 72")
		return nil, tooLong
	}

	if err != nil {
		log.Errorf("failed to hash password: %v", err)
		return nil, apierror.InternalServerError
	}

	user := &entity.User{
		TelegramID:     req.TelegramID,
		HashedPassword: hash,
	}

	err = u.UserRepo.Create(ctx, user)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the race against a concurrent registration.
		return nil, apierror.IdentityTakenError
	}

	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return nil, apierror.InternalServerError
	}

	metrics.Registrations.Inc()
	return toUserResponse(user), nil
}

// Verify checks the credentials. Unknown identity and wrong password give
// the same error and take the same time.
func (u *UserService) Verify(ctx context.Context, telegramID, password string) (*entity.User, apierror.ErrorResponse) {
	user, err := u.UserRepo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		log.Errorf("failed to fetch user from database: %v", err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		security.CompareDummy(password)
		return nil, apierror.CredentialsMismatchError
	}

	if !security.ComparePassword(user.HashedPassword, password) {
		return nil, apierror.CredentialsMismatchError
	}
	return user, nil
}

func (u *UserService) Login(ctx context.Context, req *contract.LoginRequest) (*contract.LoginResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	user, apierr := u.Verify(ctx, req.Username, req.Password)
	if apierr != nil {
		if apierr == apierror.CredentialsMismatchError {
			metrics.LoginFailures.Inc()
		}
		return nil, apierr
	}

	token, err := u.Tokens.Issue(user.TelegramID)
	if err != nil {
		log.Errorf("failed to issue token for user %d: %v", user.ID, err)
		return nil, apierror.InternalServerError
	}

	return &contract.LoginResponse{
		AccessToken: token,
		TokenType:   contract.TokenTypeBearer,
		User:        toUserResponse(user),
	}, nil
}

// Exists reports whether the telegram ID is registered. No authentication involved.
func (u *UserService) Exists(ctx context.Context, telegramID string) (bool, apierror.ErrorResponse) {
	found, err := u.UserRepo.ExistsByTelegramID(ctx, telegramID)
	if err != nil {
		log.Errorf("failed to check if user (%s) exists: %v", telegramID, err)
		return false, apierror.InternalServerError
	}
	return found, nil
}

func toUserResponse(user *entity.User) *contract.UserResponse {
	return &contract.UserResponse{
		ID:         user.ID,
		TelegramID: user.TelegramID,
	}
}
