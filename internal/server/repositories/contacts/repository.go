// Package contacts declares the storage contract for contact records and
// ships a PostgreSQL and an in-memory implementation of it.
package contacts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// Repository is the persistence accessor for contact records.
//
// Lookups of absent records return common.ErrorNotFound, unique violations
// return common.ErrConflict and driver failures common.ErrStorageUnavailable.
type Repository interface {
	List(ctx context.Context, page models.Page) ([]*models.Contact, error)
	GetByID(ctx context.Context, id int64) (*models.Contact, error)
	GetByEmail(ctx context.Context, email string) (*models.Contact, error)
	// GetByEmailForUpdate is GetByEmail that also locks the row until the
	// surrounding transaction ends.
	GetByEmailForUpdate(ctx context.Context, email string) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	Update(ctx context.Context, id int64, upd models.ContactUpdate) (*models.Contact, error)
	Delete(ctx context.Context, id int64) error

	// Search matches term as a case-insensitive substring of name or phone.
	Search(ctx context.Context, term string, page models.Page) ([]*models.Contact, error)
	// SearchByEmail returns the record with exactly this email, if any.
	SearchByEmail(ctx context.Context, email string) ([]*models.Contact, error)
	// ComingBirthdays returns records whose birthday (month and day) falls
	// within [today, today+days].
	ComingBirthdays(ctx context.Context, today time.Time, days int, page models.Page) ([]*models.Contact, error)

	UpdateToken(ctx context.Context, id int64, token *string) error
	Confirm(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email string, url string) (*models.Contact, error)
}
