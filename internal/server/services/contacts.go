package services

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
)

// ImageHost stores an uploaded picture under publicID and returns its URL.
type ImageHost interface {
	Upload(ctx context.Context, publicID string, r io.Reader) (string, error)
}

// ContactUpdateInput carries the profile fields a caller may change.
type ContactUpdateInput struct {
	Name     string    `json:"name" validate:"required,min=3,max=40"`
	Phone    string    `json:"phone" validate:"required,min=10,max=13"`
	Birthday time.Time `json:"birthday" validate:"required"`
}

// ContactService serves the contact book queries and the caller's own
// profile changes. Concurrent updates of one record are last-write-wins.
type ContactService struct {
	tx          dbx.TxRunner
	repomanager repomanager.RepositoryManager
	images      ImageHost
	validate    *validation.Validator
	now         func() time.Time
	log         logging.Logger
}

func NewContactService(tx dbx.TxRunner, m repomanager.RepositoryManager, images ImageHost,
	v *validation.Validator, log logging.Logger) *ContactService {
	return &ContactService{
		tx:          tx,
		repomanager: m,
		images:      images,
		validate:    v,
		now:         time.Now,
		log:         log.With("module", "contacts"),
	}
}

// DefaultPage is the window used when the client gives no offset or limit.
func DefaultPage() models.Page {
	return models.Page{Offset: common.DefaultOffset, Limit: common.DefaultLimit}
}

func (s *ContactService) List(ctx context.Context, page models.Page) ([]*models.Contact, error) {
	if err := s.validate.Struct(page); err != nil {
		return nil, err
	}

	var out []*models.Contact
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Contacts(tx).List(ctx, page)
		return err
	})
	return out, err
}

func (s *ContactService) Get(ctx context.Context, id int64) (*models.Contact, error) {
	var out *models.Contact
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Contacts(tx).GetByID(ctx, id)
		return err
	})
	return out, err
}

// UpdateSelf changes name, phone and birthday of the caller's own record.
func (s *ContactService) UpdateSelf(ctx context.Context, caller *models.Contact, in ContactUpdateInput) (*models.Contact, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	var out *models.Contact
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Contacts(tx).Update(ctx, caller.ID, models.ContactUpdate{
			Name:     in.Name,
			Phone:    in.Phone,
			Birthday: in.Birthday,
		})
		return err
	})
	return out, err
}

// DeleteSelf removes the caller's own record.
func (s *ContactService) DeleteSelf(ctx context.Context, caller *models.Contact) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Contacts(tx).Delete(ctx, caller.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "contact deleted", "id", caller.ID)
	return nil
}

// Search dispatches on the term: a valid email address is matched exactly
// (at most one record, paging ignored), anything else is a case-insensitive
// substring match on name or phone.
func (s *ContactService) Search(ctx context.Context, term string, page models.Page) ([]*models.Contact, error) {
	if term == "" {
		return nil, validation.NewError("term", "required", "term is required")
	}
	if err := s.validate.Struct(page); err != nil {
		return nil, err
	}

	byEmail := s.validate.IsEmail(term)

	var out []*models.Contact
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)
		var err error
		if byEmail {
			out, err = repo.SearchByEmail(ctx, term)
		} else {
			out, err = repo.Search(ctx, term, page)
		}
		return err
	})
	return out, err
}

// ComingBirthdays lists records whose birthday falls within the next
// common.BirthdayWindowDays days, today included.
func (s *ContactService) ComingBirthdays(ctx context.Context, page models.Page) ([]*models.Contact, error) {
	if err := s.validate.Struct(page); err != nil {
		return nil, err
	}

	today := s.now()
	var out []*models.Contact
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Contacts(tx).ComingBirthdays(ctx, today, common.BirthdayWindowDays, page)
		return err
	})
	return out, err
}

// UpdateAvatar uploads the picture and stores its URL on the caller's record.
func (s *ContactService) UpdateAvatar(ctx context.Context, caller *models.Contact, r io.Reader) (*models.Contact, error) {
	url, err := s.images.Upload(ctx, strconv.FormatInt(caller.ID, 10), r)
	if err != nil {
		return nil, err
	}

	var out *models.Contact
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Contacts(tx).UpdateAvatar(ctx, caller.Email, url)
		return err
	})
	return out, err
}
