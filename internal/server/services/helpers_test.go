package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/mailer"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	msgs []mailer.Message
	err  error
}

func (f *fakeMailer) Enqueue(msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeImageHost struct {
	publicID string
	err      error
}

func (f *fakeImageHost) Upload(_ context.Context, publicID string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.publicID = publicID
	return "http://img.local/avatars/" + publicID + ".png", nil
}

var errBoom = errors.New("boom")

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.BaseURL = "http://localhost:8000"
	return cfg
}

type fixture struct {
	cfg      *config.Config
	rm       *repomanager.MemoryRepositoryManager
	tokens   *auth.TokenManager
	mail     *fakeMailer
	images   *fakeImageHost
	auth     *AuthService
	contacts *ContactService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	tokens, err := auth.NewTokenManager(cfg)
	require.NoError(t, err)

	f := &fixture{
		cfg:    cfg,
		rm:     repomanager.NewMemoryRepositoryManager(),
		tokens: tokens,
		mail:   &fakeMailer{},
		images: &fakeImageHost{},
	}
	v := validation.New()
	f.auth = NewAuthService(dbx.NopRunner{}, f.rm, tokens, f.mail, v, cfg, logging.Nop())
	f.contacts = NewContactService(dbx.NopRunner{}, f.rm, f.images, v, logging.Nop())
	return f
}

func signupInput(name, email, phone string) SignupInput {
	return SignupInput{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Birthday: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Password: "secret1",
	}
}

// signupConfirmed creates an account and confirms it directly in the store.
func (f *fixture) signupConfirmed(t *testing.T, name, email, phone string) {
	t.Helper()
	_, err := f.auth.Signup(context.Background(), signupInput(name, email, phone))
	require.NoError(t, err)
	require.NoError(t, f.rm.Contacts(nil).Confirm(context.Background(), email))
}
