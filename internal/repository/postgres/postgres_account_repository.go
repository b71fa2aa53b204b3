package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/observability"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const (
	accountTracer        = "account-repository"
	uniqueViolationCode  = "23505"
	accountSelectColumns = `id, full_name, email, phone_number, password_hash, created_at, updated_at`
)

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) (err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, accountTracer, "CreateAccount")
	defer func() { done(err) }()

	if account == nil {
		err = pkgerrors.ErrNilAccount
		slog.Error("failed to create account", "method", "Create", "error", err)
		return err
	}
	if account.Email == "" || account.PasswordHash == "" {
		err = fmt.Errorf("%w: email and password hash are required", pkgerrors.ErrInvalidInput)
		return err
	}
	span.SetAttributes(attribute.String("email", account.Email))

	query := `
		INSERT INTO accounts (full_name, email, phone_number, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err = executor(ctx, r.db).QueryRowContext(ctx, query,
		account.FullName,
		account.Email,
		account.PhoneNumber,
		account.PasswordHash,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			slog.Warn("email already registered", "method", "Create", "email", account.Email)
			err = pkgerrors.ErrEmailExists
			return err
		}
		slog.Error("failed to create account", "method", "Create", "email", account.Email, "error", err)
		err = fmt.Errorf("failed to create account: %w", err)
		return err
	}

	slog.Info("account created", "method", "Create", "account_id", account.ID)
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id int64) (_ *models.Account, err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, accountTracer, "GetAccountByID")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("account_id", id))

	query := `SELECT ` + accountSelectColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrAccountNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get account by id", "method", "GetByID", "account_id", id, "error", err)
		err = fmt.Errorf("failed to get account by id: %w", err)
		return nil, err
	}
	return account, nil
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (_ *models.Account, err error) {
	ctx, _, done := observability.TrackRepositoryCall(ctx, accountTracer, "GetAccountByEmail")
	defer func() { done(err) }()

	if email == "" {
		err = fmt.Errorf("%w: email cannot be empty", pkgerrors.ErrInvalidInput)
		return nil, err
	}

	query := `SELECT ` + accountSelectColumns + ` FROM accounts WHERE email = $1`
	account, err := scanAccount(executor(ctx, r.db).QueryRowContext(ctx, query, email))
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		// Lookups by unknown email are a normal part of login and registration.
		return nil, pkgerrors.ErrAccountNotFound
	case err != nil:
		slog.Error("failed to get account by email", "method", "GetByEmail", "error", err)
		err = fmt.Errorf("failed to get account by email: %w", err)
		return nil, err
	}
	return account, nil
}

func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, accountTracer, "UpdatePassword")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("account_id", id))

	query := `UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	res, err := executor(ctx, r.db).ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		slog.Error("failed to update password", "method", "UpdatePassword", "account_id", id, "error", err)
		err = fmt.Errorf("failed to update password: %w", err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to get rows affected: %w", err)
		return err
	}
	if affected == 0 {
		err = pkgerrors.ErrAccountNotFound
		return err
	}
	return nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.PhoneNumber, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

type PostgresResetTokenRepository struct {
	db *sql.DB
}

func NewPostgresResetTokenRepository(db *sql.DB) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{db: db}
}

func (r *PostgresResetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) (err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, accountTracer, "CreateResetToken")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		err = fmt.Errorf("%w: reset token is empty", pkgerrors.ErrInvalidInput)
		return err
	}
	span.SetAttributes(attribute.Int64("account_id", token.AccountID))

	query := `
		INSERT INTO password_reset_tokens (account_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err = executor(ctx, r.db).QueryRowContext(ctx, query, token.AccountID, token.Token, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		slog.Error("failed to create reset token", "method", "Create", "account_id", token.AccountID, "error", err)
		err = fmt.Errorf("failed to create reset token: %w", err)
		return err
	}
	return nil
}

// Consume flips used in the same statement that checks it, so two concurrent
// resets with one token cannot both succeed.
func (r *PostgresResetTokenRepository) Consume(ctx context.Context, token string, now time.Time) (_ int64, err error) {
	ctx, _, done := observability.TrackRepositoryCall(ctx, accountTracer, "ConsumeResetToken")
	defer func() { done(err) }()

	query := `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE token = $1 AND used = FALSE AND expires_at > $2
		RETURNING account_id`
	var accountID int64
	err = executor(ctx, r.db).QueryRowContext(ctx, query, token, now).Scan(&accountID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, pkgerrors.ErrResetTokenInvalid
	}
	if err != nil {
		slog.Error("failed to consume reset token", "method", "Consume", "error", err)
		err = fmt.Errorf("failed to consume reset token: %w", err)
		return 0, err
	}
	return accountID, nil
}
