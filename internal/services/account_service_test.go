package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/auth"
	redismocks "github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/redis/mocks"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	repositorymocks "github.com/DebiyaQugan28/vallblox-gaming-store/internal/repository/mocks"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

type accountFixture struct {
	accounts    *repositorymocks.AccountRepository
	resetTokens *repositorymocks.ResetTokenRepository
	tx          *repositorymocks.Transactor
	redis       *redismocks.RedisClient
	tokens      *auth.TokenManager
	svc         *accountService
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		accounts:    &repositorymocks.AccountRepository{},
		resetTokens: &repositorymocks.ResetTokenRepository{},
		tx:          &repositorymocks.Transactor{},
		redis:       &redismocks.RedisClient{},
		tokens:      auth.NewTokenManager(testJWTSecret, 24*time.Hour, time.Hour),
	}
	f.svc = NewAccountService(f.accounts, f.resetTokens, f.tx, f.redis, f.tokens, bcrypt.MinCost)
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	input := RegisterInput{FullName: "Budi Santoso", Email: "Budi@Example.com", PhoneNumber: "081234567890", Password: "rahasia"}

	t.Run("successful registration", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(nil, pkgerrors.ErrAccountNotFound)
		f.accounts.On("Create", mock.Anything, mock.MatchedBy(func(a *models.Account) bool {
			return a.Email == "budi@example.com" &&
				bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("rahasia")) == nil
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Account).ID = 7
		}).Return(nil)

		account, err := f.svc.Register(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, int64(7), account.ID)
		assert.NotEqual(t, "rahasia", account.PasswordHash)
		f.accounts.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(&models.Account{ID: 1}, nil)

		account, err := f.svc.Register(ctx, input)
		assert.Nil(t, account)
		assert.ErrorIs(t, err, pkgerrors.ErrEmailExists)
		f.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email lost race", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(nil, pkgerrors.ErrAccountNotFound)
		f.accounts.On("Create", mock.Anything, mock.Anything).Return(pkgerrors.ErrEmailExists)

		_, err := f.svc.Register(ctx, input)
		assert.ErrorIs(t, err, pkgerrors.ErrEmailExists)
	})

	t.Run("short password", func(t *testing.T) {
		f := newAccountFixture()
		in := input
		in.Password = "12345"

		_, err := f.svc.Register(ctx, in)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("missing field", func(t *testing.T) {
		f := newAccountFixture()
		in := input
		in.PhoneNumber = " "

		_, err := f.svc.Register(ctx, in)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("fields beyond column limits", func(t *testing.T) {
		cases := map[string]func(in *RegisterInput){
			"phone too long":     func(in *RegisterInput) { in.PhoneNumber = "+62 812 3456 7890 1234" },
			"name too long":      func(in *RegisterInput) { in.FullName = strings.Repeat("a", 256) },
			"email too long":     func(in *RegisterInput) { in.Email = strings.Repeat("a", 250) + "@example.com" },
			"short multibyte":    func(in *RegisterInput) { in.Password = "ééééé" },
			"password over 72 b": func(in *RegisterInput) { in.Password = strings.Repeat("p", 73) },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				f := newAccountFixture()
				in := input
				mutate(&in)

				_, err := f.svc.Register(ctx, in)
				assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
				f.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("multibyte name at the limit", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(nil, pkgerrors.ErrAccountNotFound)
		f.accounts.On("Create", mock.Anything, mock.Anything).Return(nil)

		in := input
		in.FullName = strings.Repeat("ñ", 255)
		_, err := f.svc.Register(ctx, in)
		require.NoError(t, err)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(nil, errors.New("connection refused"))

		_, err := f.svc.Register(ctx, input)
		assert.ErrorIs(t, err, pkgerrors.ErrInternal)
	})
}

func TestAccountService_Authenticate(t *testing.T) {
	ctx := context.Background()
	account := &models.Account{ID: 7, Email: "budi@example.com", PasswordHash: hashed(t, "rahasia")}

	t.Run("success", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(account, nil)

		got, err := f.svc.Authenticate(ctx, "budi@example.com", "rahasia")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
	})

	t.Run("unknown email and wrong password fail the same way", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(account, nil)
		f.accounts.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, pkgerrors.ErrAccountNotFound)

		_, wrongPassword := f.svc.Authenticate(ctx, "budi@example.com", "salah")
		_, unknownEmail := f.svc.Authenticate(ctx, "ghost@example.com", "rahasia")

		assert.ErrorIs(t, wrongPassword, pkgerrors.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, pkgerrors.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	})
}

func TestAccountService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	account := &models.Account{ID: 7, Email: "budi@example.com", PasswordHash: hashed(t, "rahasia")}

	t.Run("login caches the session token", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(account, nil)
		f.redis.On("Set", mock.Anything, "account:7:token", mock.AnythingOfType("string"), 24*time.Hour).Return(nil)

		got, token, err := f.svc.Login(ctx, "budi@example.com", "rahasia")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)

		claims, err := f.tokens.Parse(token, models.TokenTypeSession)
		require.NoError(t, err)
		assert.Equal(t, int64(7), claims.AccountID)
		f.redis.AssertExpectations(t)
	})

	t.Run("login fails when the session cannot be stored", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(account, nil)
		f.redis.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		_, token, err := f.svc.Login(ctx, "budi@example.com", "rahasia")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, pkgerrors.ErrInternal)
	})

	t.Run("logout revokes", func(t *testing.T) {
		f := newAccountFixture()
		f.redis.On("Del", mock.Anything, []string{"account:7:token"}).Return(nil)

		assert.NoError(t, f.svc.Logout(ctx, 7))
		f.redis.AssertExpectations(t)
	})
}

func TestAccountService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	account := &models.Account{ID: 7, Email: "budi@example.com"}

	t.Run("issue for unknown email", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, pkgerrors.ErrAccountNotFound)

		token, err := f.svc.IssueResetToken(ctx, "ghost@example.com")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, pkgerrors.ErrAccountNotFound)
	})

	t.Run("issue persists a one hour token", func(t *testing.T) {
		f := newAccountFixture()
		f.accounts.On("GetByEmail", mock.Anything, "budi@example.com").Return(account, nil)
		f.resetTokens.On("Create", mock.Anything, mock.MatchedBy(func(rt *models.PasswordResetToken) bool {
			return rt.AccountID == 7 && rt.Token != "" &&
				rt.ExpiresAt.Sub(time.Now()) > 59*time.Minute && rt.ExpiresAt.Sub(time.Now()) <= time.Hour
		})).Return(nil)

		token, err := f.svc.IssueResetToken(ctx, "budi@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		f.resetTokens.AssertExpectations(t)
	})

	t.Run("reset consumes the token and revokes sessions", func(t *testing.T) {
		f := newAccountFixture()
		token, _, err := f.tokens.IssueReset(account)
		require.NoError(t, err)

		f.resetTokens.On("Consume", mock.Anything, token, mock.Anything).Return(int64(7), nil)
		f.accounts.On("UpdatePassword", mock.Anything, int64(7), mock.MatchedBy(func(h string) bool {
			return bcrypt.CompareHashAndPassword([]byte(h), []byte("baru123")) == nil
		})).Return(nil)
		f.redis.On("Del", mock.Anything, []string{"account:7:token"}).Return(nil)

		require.NoError(t, f.svc.ResetPassword(ctx, token, "baru123"))
		assert.Equal(t, 1, f.tx.Runs)
		f.resetTokens.AssertExpectations(t)
		f.accounts.AssertExpectations(t)
		f.redis.AssertExpectations(t)
	})

	t.Run("used or expired token", func(t *testing.T) {
		f := newAccountFixture()
		token, _, _ := f.tokens.IssueReset(account)
		f.resetTokens.On("Consume", mock.Anything, token, mock.Anything).Return(int64(0), pkgerrors.ErrResetTokenInvalid)

		err := f.svc.ResetPassword(ctx, token, "baru123")
		assert.ErrorIs(t, err, pkgerrors.ErrResetTokenInvalid)
		f.accounts.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("session token cannot reset", func(t *testing.T) {
		f := newAccountFixture()
		token, _, _ := f.tokens.IssueSession(account)

		err := f.svc.ResetPassword(ctx, token, "baru123")
		assert.ErrorIs(t, err, pkgerrors.ErrResetTokenInvalid)
		f.resetTokens.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("short password", func(t *testing.T) {
		f := newAccountFixture()
		err := f.svc.ResetPassword(ctx, "whatever", "123")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

		err = f.svc.ResetPassword(ctx, "whatever", "ééééé")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}
