// Package services contains server-side business logic. This file implements
// AuthService: signup with email confirmation, login, refresh-token rotation
// and resolution of the calling account from an access token.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/mailer"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
)

const (
	MsgEmailConfirmed        = "Email confirmed"
	MsgEmailAlreadyConfirmed = "Your email is already confirmed"
	MsgCheckEmail            = "Check your email for confirmation."
)

const confirmPath = "api/auth/confirmed_email/"

// Mailer accepts outgoing mail for background delivery.
type Mailer interface {
	Enqueue(msg mailer.Message) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Name     string    `json:"name" validate:"required,min=3,max=40"`
	Email    string    `json:"email" validate:"required,email,max=50"`
	Phone    string    `json:"phone" validate:"required,min=10,max=13"`
	Birthday time.Time `json:"birthday" validate:"required"`
	Password string    `json:"password" validate:"required,min=6,max=8"`
}

type AuthService struct {
	tx          dbx.TxRunner
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenManager
	mail        Mailer
	validate    *validation.Validator
	baseURL     string
	emailTTL    time.Duration
	log         logging.Logger
}

func NewAuthService(tx dbx.TxRunner, m repomanager.RepositoryManager, tokens *auth.TokenManager,
	mail Mailer, v *validation.Validator, cfg *config.Config, log logging.Logger) *AuthService {
	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &AuthService{
		tx:          tx,
		repomanager: m,
		tokens:      tokens,
		mail:        mail,
		validate:    v,
		baseURL:     baseURL,
		emailTTL:    cfg.EmailTokenValidityDuration,
		log:         log.With("module", "auth"),
	}
}

// Signup creates an unconfirmed account and queues the confirmation email.
// The returned record has no password.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.Contact, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}

	var created *models.Contact
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)

		_, err := repo.GetByEmail(ctx, in.Email)
		if err == nil {
			return common.ErrConflict
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		created, err = repo.Create(ctx, &models.Contact{
			Name:     in.Name,
			Email:    in.Email,
			Phone:    in.Phone,
			Birthday: in.Birthday,
			Password: hash,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, created)
	s.log.Info(ctx, "contact signed up", "id", created.ID)

	created.Password = ""
	return created, nil
}

// Login checks credentials and issues a new token pair, replacing any stored
// refresh token. Unknown email and wrong password are reported differently.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)

		contact, err := repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidEmail
			}
			return err
		}
		if !contact.Confirmed {
			return common.ErrEmailNotConfirmed
		}

		ok, err := auth.VerifyPassword(password, contact.Password)
		if err != nil {
			return fmt.Errorf("%w: stored password hash for contact %d: %w", common.ErrorInternal, contact.ID, err)
		}
		if !ok {
			return common.ErrInvalidPassword
		}

		pair, err = s.issuePair(ctx, repo, contact)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// ConfirmEmail marks the account named by a confirmation token as confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	email, err := s.tokens.DecodeUnscoped(token)
	if err != nil {
		return "", err
	}

	var msg string
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)

		contact, err := repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrVerification
			}
			return err
		}
		if contact.Confirmed {
			msg = MsgEmailAlreadyConfirmed
			return nil
		}
		if err := repo.Confirm(ctx, email); err != nil {
			return err
		}
		msg = MsgEmailConfirmed
		return nil
	})
	if err != nil {
		return "", err
	}
	return msg, nil
}

// RequestConfirmationEmail re-sends the confirmation letter for an
// unconfirmed account. Unknown addresses get the same answer as known ones.
func (s *AuthService) RequestConfirmationEmail(ctx context.Context, email string) (string, error) {
	if !s.validate.IsEmail(email) {
		return "", validation.NewError("email", "email", "email must be a valid email address")
	}

	var contact *models.Contact
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		contact, err = s.repomanager.Contacts(tx).GetByEmail(ctx, email)
		if errors.Is(err, common.ErrorNotFound) {
			contact = nil
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}

	if contact == nil {
		return MsgCheckEmail, nil
	}
	if contact.Confirmed {
		return MsgEmailAlreadyConfirmed, nil
	}
	s.sendConfirmation(ctx, contact)
	return MsgCheckEmail, nil
}

// RefreshToken rotates the refresh token. A token that decodes but differs
// from the stored one revokes the stored token and fails.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (*TokenPair, error) {
	email, err := s.tokens.Decode(token, common.ScopeRefreshToken)
	if err != nil {
		return nil, err
	}

	var (
		pair    *TokenPair
		revoked bool
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)

		// the row lock makes a concurrent refresh with the same token wait,
		// then see the rotated value and revoke
		contact, err := repo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}

		if contact.RefreshToken == nil || *contact.RefreshToken != token {
			// commit the revocation, report the failure after the tx
			revoked = true
			return repo.UpdateToken(ctx, contact.ID, nil)
		}

		pair, err = s.issuePair(ctx, repo, contact)
		return err
	})
	if err != nil {
		return nil, err
	}
	if revoked {
		s.log.Warn(ctx, "refresh token mismatch, session revoked", "email", email)
		return nil, common.ErrInvalidRefreshToken
	}
	return pair, nil
}

// ResolveCaller returns the account that owns a valid access token.
func (s *AuthService) ResolveCaller(ctx context.Context, token string) (*models.Contact, error) {
	email, err := s.tokens.Decode(token, common.ScopeAccessToken)
	if err != nil {
		return nil, err
	}

	var contact *models.Contact
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		contact, err = s.repomanager.Contacts(tx).GetByEmail(ctx, email)
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

type tokenStore interface {
	UpdateToken(ctx context.Context, id int64, token *string) error
}

func (s *AuthService) issuePair(ctx context.Context, repo tokenStore, contact *models.Contact) (*TokenPair, error) {
	access, err := s.tokens.AccessToken(contact.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: access token: %w", common.ErrorInternal, err)
	}
	refresh, err := s.tokens.RefreshToken(contact.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %w", common.ErrorInternal, err)
	}
	if err := repo.UpdateToken(ctx, contact.ID, &refresh); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: common.TokenType}, nil
}

// sendConfirmation queues the confirmation letter. Failures are logged only.
func (s *AuthService) sendConfirmation(ctx context.Context, contact *models.Contact) {
	token, err := s.tokens.EmailToken(contact.Email)
	if err != nil {
		s.log.Error(ctx, "email token", "email", contact.Email, "error", err)
		return
	}

	msg, err := mailer.ConfirmationMessage(contact.Email, contact.Name, s.baseURL+confirmPath+token, s.emailTTL)
	if err != nil {
		s.log.Error(ctx, "render confirmation email", "email", contact.Email, "error", err)
		return
	}

	if err := s.mail.Enqueue(msg); err != nil {
		s.log.Error(ctx, "enqueue confirmation email", "email", contact.Email, "error", err)
	}
}
