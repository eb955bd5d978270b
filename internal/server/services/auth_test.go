package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup_CreatesUnconfirmedAndSendsMail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.auth.Signup(ctx, signupInput("Alice", "a@x.com", "+380501234567"))
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.False(t, c.Confirmed)
	assert.Empty(t, c.Password)

	stored, err := f.rm.Contacts(nil).GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)
	ok, err := auth.VerifyPassword("secret1", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Equal(t, 1, f.mail.count())
	msg := f.mail.msgs[0]
	assert.Equal(t, "a@x.com", msg.To)
	assert.Contains(t, msg.HTMLBody, "http://localhost:8000/api/auth/confirmed_email/")
}

func TestSignup_DuplicateEmailConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, signupInput("Alice", "a@x.com", "+380501234567"))
	require.NoError(t, err)

	_, err = f.auth.Signup(ctx, signupInput("Alice Two", "a@x.com", "+380507654321"))
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Equal(t, 1, f.mail.count())
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)

	in := signupInput("Al", "not-an-email", "123")
	in.Password = "123"
	_, err := f.auth.Signup(context.Background(), in)
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Len(t, validation.Fields(err), 4)
}

func TestSignup_MailFailureIsNotReturned(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errBoom

	_, err := f.auth.Signup(context.Background(), signupInput("Alice", "a@x.com", "+380501234567"))
	assert.NoError(t, err)
}

func TestLogin_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, "ghost@x.com", "secret1")
	assert.ErrorIs(t, err, common.ErrInvalidEmail)

	_, err = f.auth.Signup(ctx, signupInput("Alice", "a@x.com", "+380501234567"))
	require.NoError(t, err)

	// unconfirmed wins over the password check, right or wrong
	_, err = f.auth.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, common.ErrEmailNotConfirmed)
	_, err = f.auth.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrEmailNotConfirmed)

	require.NoError(t, f.rm.Contacts(nil).Confirm(ctx, "a@x.com"))
	_, err = f.auth.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestLogin_IssuesAndStoresTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "Alice", "a@x.com", "+380501234567")

	pair, err := f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)

	email, err := f.tokens.Decode(pair.AccessToken, common.ScopeAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)

	stored, err := f.rm.Contacts(nil).GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
}

func TestConfirmEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, signupInput("Alice", "a@x.com", "+380501234567"))
	require.NoError(t, err)

	token, err := f.tokens.EmailToken("a@x.com")
	require.NoError(t, err)

	msg, err := f.auth.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, MsgEmailConfirmed, msg)

	msg, err = f.auth.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, MsgEmailAlreadyConfirmed, msg)

	stored, _ := f.rm.Contacts(nil).GetByEmail(ctx, "a@x.com")
	assert.True(t, stored.Confirmed)
}

func TestConfirmEmail_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.ConfirmEmail(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidConfirmationToken)

	token, err := f.tokens.EmailToken("ghost@x.com")
	require.NoError(t, err)
	_, err = f.auth.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, common.ErrVerification)
}

func TestRequestConfirmationEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.auth.RequestConfirmationEmail(ctx, "ghost@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgCheckEmail, msg)
	assert.Equal(t, 0, f.mail.count())

	_, err = f.auth.Signup(ctx, signupInput("Alice", "a@x.com", "+380501234567"))
	require.NoError(t, err)

	msg, err = f.auth.RequestConfirmationEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgCheckEmail, msg)
	assert.Equal(t, 2, f.mail.count())

	require.NoError(t, f.rm.Contacts(nil).Confirm(ctx, "a@x.com"))
	msg, err = f.auth.RequestConfirmationEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgEmailAlreadyConfirmed, msg)
	assert.Equal(t, 2, f.mail.count())

	_, err = f.auth.RequestConfirmationEmail(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRefreshToken_RotationAndReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "Alice", "a@x.com", "+380501234567")

	first, err := f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	second, err := f.auth.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// replaying the rotated token revokes the session
	_, err = f.auth.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)

	stored, err := f.rm.Contacts(nil).GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	_, err = f.auth.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
	_, err = f.auth.RefreshToken(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
}

func TestRefreshToken_PurposeIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "Alice", "a@x.com", "+380501234567")

	pair, err := f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.auth.RefreshToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = f.auth.ResolveCaller(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	caller, err := f.auth.ResolveCaller(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", caller.Email)
}

func TestResolveCaller_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	token, err := f.tokens.AccessToken("ghost@x.com")
	require.NoError(t, err)

	_, err = f.auth.ResolveCaller(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestResolveCaller_Expired(t *testing.T) {
	f := newFixture(t)
	f.signupConfirmed(t, "Alice", "a@x.com", "+380501234567")

	f.tokens.SetClock(func() time.Time { return time.Now().Add(-time.Hour) })
	token, err := f.tokens.AccessToken("a@x.com")
	require.NoError(t, err)
	f.tokens.SetClock(time.Now)

	_, err = f.auth.ResolveCaller(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

// The revocation must be committed even though the call fails.
func TestRefreshToken_MismatchCommitsRevocation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	f := newFixture(t)
	svc := NewAuthService(dbx.NewSQLRunner(db), &repomanager.PostgresRepositoryManager{}, f.tokens,
		f.mail, validation.New(), cfg, logging.Nop())

	presented, err := f.tokens.RefreshToken("a@x.com")
	require.NoError(t, err)

	cols := []string{"id", "name", "email", "phone", "birthday", "password", "refresh_token", "confirmed", "avatar", "created_at"}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM contacts\s+WHERE email = \$1\s+FOR UPDATE`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(3), "Alice", "a@x.com", "+380501234567", now, "hash", "stored-other", true, nil, now))
	mock.ExpectExec(`UPDATE contacts SET refresh_token = \$1 WHERE id = \$2`).
		WithArgs(nil, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err = svc.RefreshToken(context.Background(), presented)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_StorageErrorRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	f := newFixture(t)
	svc := NewAuthService(dbx.NewSQLRunner(db), &repomanager.PostgresRepositoryManager{}, f.tokens,
		f.mail, validation.New(), testConfig(), logging.Nop())

	presented, err := f.tokens.RefreshToken("a@x.com")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM contacts`).WillReturnError(errBoom)
	mock.ExpectRollback()

	_, err = svc.RefreshToken(context.Background(), presented)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewAuthService_BaseURLSlash(t *testing.T) {
	f := newFixture(t)
	assert.True(t, strings.HasSuffix(f.auth.baseURL, "/"))
}
