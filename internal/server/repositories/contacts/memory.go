package contacts

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// MemoryRepository keeps contacts in process memory. It backs the
// "memory://" storage URL and the HTTP end-to-end tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.Contact
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[int64]*models.Contact),
		now:  time.Now,
	}
}

func clone(c *models.Contact) *models.Contact {
	cp := *c
	if c.RefreshToken != nil {
		t := *c.RefreshToken
		cp.RefreshToken = &t
	}
	if c.Avatar != nil {
		a := *c.Avatar
		cp.Avatar = &a
	}
	return &cp
}

// sorted returns copies of the contacts accepted by keep, ordered by id.
// Caller holds at least the read lock.
func (r *MemoryRepository) sorted(keep func(*models.Contact) bool) []*models.Contact {
	result := make([]*models.Contact, 0)
	for _, c := range r.byID {
		if keep(c) {
			result = append(result, clone(c))
		}
	}
	slices.SortFunc(result, func(a, b *models.Contact) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return result
}

func paginate(items []*models.Contact, page models.Page) []*models.Contact {
	if page.Offset >= len(items) {
		return make([]*models.Contact, 0)
	}
	end := len(items)
	if page.Limit >= 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return items[page.Offset:end]
}

// conflict reports whether email or phone is already used by a record
// other than self.
func (r *MemoryRepository) conflict(self int64, email, phone string) error {
	for _, c := range r.byID {
		if c.ID == self {
			continue
		}
		if email != "" && c.Email == email {
			return fmt.Errorf("%w: email", common.ErrConflict)
		}
		if phone != "" && c.Phone == phone {
			return fmt.Errorf("%w: phone", common.ErrConflict)
		}
	}
	return nil
}

func (r *MemoryRepository) findByEmail(email string) *models.Contact {
	for _, c := range r.byID {
		if c.Email == email {
			return c
		}
	}
	return nil
}

func (r *MemoryRepository) List(_ context.Context, page models.Page) ([]*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paginate(r.sorted(func(*models.Contact) bool { return true }), page), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(c), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.findByEmail(email)
	if c == nil {
		return nil, common.ErrorNotFound
	}
	return clone(c), nil
}

// GetByEmailForUpdate has nothing to lock; every memory call is already
// serialized by the store mutex.
func (r *MemoryRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.Contact, error) {
	return r.GetByEmail(ctx, email)
}

func (r *MemoryRepository) Create(_ context.Context, contact *models.Contact) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflict(0, contact.Email, contact.Phone); err != nil {
		return nil, err
	}

	r.nextID++
	contact.ID = r.nextID
	contact.Confirmed = false
	contact.CreatedAt = r.now().UTC()
	r.byID[contact.ID] = clone(contact)

	return contact, nil
}

func (r *MemoryRepository) Update(_ context.Context, id int64, upd models.ContactUpdate) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := r.conflict(id, "", upd.Phone); err != nil {
		return nil, err
	}
	c.Name = upd.Name
	c.Phone = upd.Phone
	c.Birthday = upd.Birthday
	return clone(c), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) Search(_ context.Context, term string, page models.Page) ([]*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(term)
	found := r.sorted(func(c *models.Contact) bool {
		return strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.Phone), needle)
	})
	return paginate(found, page), nil
}

func (r *MemoryRepository) SearchByEmail(_ context.Context, email string) ([]*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(c *models.Contact) bool { return c.Email == email }), nil
}

func (r *MemoryRepository) ComingBirthdays(_ context.Context, today time.Time, days int, page models.Page) ([]*models.Contact, error) {
	keys := make(map[string]struct{})
	for _, k := range BirthdayMonthDays(today, days) {
		keys[k] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	found := r.sorted(func(c *models.Contact) bool {
		_, ok := keys[c.Birthday.Format(monthDayLayout)]
		return ok
	})
	return paginate(found, page), nil
}

func (r *MemoryRepository) UpdateToken(_ context.Context, id int64, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if token == nil {
		c.RefreshToken = nil
	} else {
		t := *token
		c.RefreshToken = &t
	}
	return nil
}

func (r *MemoryRepository) Confirm(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findByEmail(email)
	if c == nil {
		return common.ErrorNotFound
	}
	c.Confirmed = true
	return nil
}

func (r *MemoryRepository) UpdateAvatar(_ context.Context, email string, url string) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findByEmail(email)
	if c == nil {
		return nil, common.ErrorNotFound
	}
	c.Avatar = &url
	return clone(c), nil
}
