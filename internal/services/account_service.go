package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	stderrors "errors"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/auth"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/redis"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/repository"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72

	maxNameLength  = 255
	maxEmailLength = 255
	maxPhoneLength = 20
)

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", pkgerrors.ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", pkgerrors.ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

type RegisterInput struct {
	FullName    string
	Email       string
	PhoneNumber string
	Password    string
}

type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*models.Account, error)
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*models.Account, string, error)
	Logout(ctx context.Context, accountID int64) error
	IssueResetToken(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type accountService struct {
	accountRepo    repository.AccountRepository
	resetTokenRepo repository.ResetTokenRepository
	tx             repository.Transactor
	redisClient    redis.RedisClient
	tokens         *auth.TokenManager
	bcryptCost     int
	dummyHash      []byte
	now            func() time.Time
}

func NewAccountService(
	accountRepo repository.AccountRepository,
	resetTokenRepo repository.ResetTokenRepository,
	tx repository.Transactor,
	redisClient redis.RedisClient,
	tokens *auth.TokenManager,
	bcryptCost int,
) *accountService {
	// Compared against when the email is unknown, so both failure paths cost one bcrypt run.
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	if err != nil {
		slog.Error("failed to prepare dummy hash", "error", err)
	}
	return &accountService{
		accountRepo:    accountRepo,
		resetTokenRepo: resetTokenRepo,
		tx:             tx,
		redisClient:    redisClient,
		tokens:         tokens,
		bcryptCost:     bcryptCost,
		dummyHash:      dummyHash,
		now:            time.Now,
	}
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "Register")
	defer span.End()

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.FullName == "" || in.Email == "" || in.PhoneNumber == "" || in.Password == "" {
		span.SetStatus(codes.Error, "missing fields")
		return nil, fmt.Errorf("%w: all fields are required", pkgerrors.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		span.SetStatus(codes.Error, "invalid email")
		return nil, fmt.Errorf("%w: invalid email", pkgerrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.FullName) > maxNameLength ||
		utf8.RuneCountInString(in.Email) > maxEmailLength ||
		utf8.RuneCountInString(in.PhoneNumber) > maxPhoneLength {
		span.SetStatus(codes.Error, "field too long")
		return nil, fmt.Errorf("%w: fullName and email allow %d characters, phoneNumber %d",
			pkgerrors.ErrInvalidInput, maxNameLength, maxPhoneLength)
	}
	if err := validatePassword(in.Password); err != nil {
		span.SetStatus(codes.Error, "invalid password")
		return nil, err
	}

	existing, err := s.accountRepo.GetByEmail(ctx, in.Email)
	if existing != nil {
		span.SetStatus(codes.Error, "email already registered")
		slog.Warn("email already registered", "method", "Register", "existing_id", existing.ID)
		return nil, pkgerrors.ErrEmailExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "account check failed")
		slog.Error("failed to check account existence", "method", "Register", "error", err)
		return nil, fmt.Errorf("%w: failed to check account existence", pkgerrors.ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "method", "Register", "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	account := &models.Account{
		FullName:     in.FullName,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: string(hash),
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "account creation failed")
		if stderrors.Is(err, pkgerrors.ErrEmailExists) {
			return nil, err
		}
		slog.Error("failed to create account", "method", "Register", "error", err)
		return nil, fmt.Errorf("%w: failed to create account", pkgerrors.ErrInternal)
	}

	slog.Info("account registered", "method", "Register", "account_id", account.ID)
	return account, nil
}

func (s *accountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "Authenticate")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, pkgerrors.ErrInvalidCredentials
	}

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
			span.RecordError(err)
			slog.Error("failed to load account", "method", "Authenticate", "error", err)
			return nil, fmt.Errorf("%w: failed to load account", pkgerrors.ErrInternal)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		slog.Warn("invalid password", "method", "Authenticate", "account_id", account.ID)
		return nil, pkgerrors.ErrInvalidCredentials
	}
	return account, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "Login")
	defer span.End()

	account, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, _, err := s.tokens.IssueSession(account)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate JWT", "method", "Login", "error", err)
		return nil, "", fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Set(ctx, redis.SessionKey(account.ID), token, s.tokens.SessionTTL()); err != nil {
		span.RecordError(err)
		slog.Error("failed to cache JWT", "method", "Login", "account_id", account.ID, "error", err)
		return nil, "", fmt.Errorf("%w: failed to store session", pkgerrors.ErrInternal)
	}

	slog.Info("account logged in", "method", "Login", "account_id", account.ID)
	return account, token, nil
}

func (s *accountService) Logout(ctx context.Context, accountID int64) error {
	if err := s.redisClient.Del(ctx, redis.SessionKey(accountID)); err != nil {
		slog.Error("failed to revoke session", "method", "Logout", "account_id", accountID, "error", err)
		return fmt.Errorf("%w: failed to revoke session", pkgerrors.ErrInternal)
	}
	slog.Info("account logged out", "method", "Logout", "account_id", accountID)
	return nil
}

func (s *accountService) IssueResetToken(ctx context.Context, email string) (string, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "IssueResetToken")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	}

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
			return "", err
		}
		span.RecordError(err)
		return "", fmt.Errorf("%w: failed to load account", pkgerrors.ErrInternal)
	}

	token, expiresAt, err := s.tokens.IssueReset(account)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate reset token", "method", "IssueResetToken", "error", err)
		return "", fmt.Errorf("%w: failed to generate reset token", pkgerrors.ErrInternal)
	}

	if err := s.resetTokenRepo.Create(ctx, &models.PasswordResetToken{
		AccountID: account.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	}); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: failed to store reset token", pkgerrors.ErrInternal)
	}

	slog.Info("reset token issued", "method", "IssueResetToken", "account_id", account.ID)
	return token, nil
}

func (s *accountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := otel.Tracer("account-service").Start(ctx, "ResetPassword")
	defer span.End()

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	claims, err := s.tokens.Parse(token, models.TokenTypeReset)
	if err != nil {
		span.SetStatus(codes.Error, "invalid reset token")
		slog.Warn("invalid reset token", "method", "ResetPassword", "error", err)
		return pkgerrors.ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		accountID, err := s.resetTokenRepo.Consume(ctx, token, s.now())
		if err != nil {
			return err
		}
		if accountID != claims.AccountID {
			return pkgerrors.ErrResetTokenInvalid
		}
		return s.accountRepo.UpdatePassword(ctx, accountID, string(hash))
	})
	if err != nil {
		span.RecordError(err)
		if stderrors.Is(err, pkgerrors.ErrResetTokenInvalid) || stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
			return pkgerrors.ErrResetTokenInvalid
		}
		slog.Error("failed to reset password", "method", "ResetPassword", "account_id", claims.AccountID, "error", err)
		return fmt.Errorf("%w: failed to reset password", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Del(ctx, redis.SessionKey(claims.AccountID)); err != nil {
		slog.Error("failed to revoke session after password reset", "method", "ResetPassword", "account_id", claims.AccountID, "error", err)
	}

	slog.Info("password reset", "method", "ResetPassword", "account_id", claims.AccountID)
	return nil
}
