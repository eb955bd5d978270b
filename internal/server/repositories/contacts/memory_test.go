package contacts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *MemoryRepository, name, email, phone string, bday time.Time) *models.Contact {
	t.Helper()
	c, err := r.Create(context.Background(), &models.Contact{
		Name: name, Email: email, Phone: phone, Birthday: bday, Password: "hash",
	})
	require.NoError(t, err)
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMemory_CreateAssignsIDsAndRejectsDuplicates(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	a := seed(t, r, "Alice", "alice@example.com", "+380501111111", day(1990, 1, 1))
	b := seed(t, r, "Bob", "bob@example.com", "+380502222222", day(1991, 2, 2))
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.False(t, a.Confirmed)

	_, err := r.Create(ctx, &models.Contact{Name: "X", Email: "alice@example.com", Phone: "+380503333333"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = r.Create(ctx, &models.Contact{Name: "Y", Email: "y@example.com", Phone: "+380502222222"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	seed(t, r, "Alice", "alice@example.com", "+380501111111", day(1990, 1, 1))

	got, err := r.GetByID(ctx, 1)
	require.NoError(t, err)
	got.Name = "Mallory"

	again, err := r.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
}

func TestMemory_ListPagination(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		seed(t, r, fmt.Sprintf("C%02d", i), fmt.Sprintf("c%d@example.com", i), fmt.Sprintf("+3805000000%02d", i), day(1990, 1, 1))
	}

	first, err := r.List(ctx, models.Page{Offset: 0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.Equal(t, int64(1), first[0].ID)

	rest, err := r.List(ctx, models.Page{Offset: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rest, 5)
	assert.Equal(t, int64(11), rest[0].ID)

	none, err := r.List(ctx, models.Page{Offset: 100, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemory_UpdateAndDelete(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	seed(t, r, "Alice", "alice@example.com", "+380501111111", day(1990, 1, 1))
	seed(t, r, "Bob", "bob@example.com", "+380502222222", day(1991, 2, 2))

	upd, err := r.Update(ctx, 1, models.ContactUpdate{Name: "Alicia", Phone: "+380509999999", Birthday: day(1990, 6, 6)})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", upd.Name)
	assert.Equal(t, "alice@example.com", upd.Email)

	_, err = r.Update(ctx, 1, models.ContactUpdate{Name: "Alicia", Phone: "+380502222222"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = r.Update(ctx, 42, models.ContactUpdate{Name: "Nobody"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, r.Delete(ctx, 1))
	assert.ErrorIs(t, r.Delete(ctx, 1), common.ErrorNotFound)
	_, err = r.GetByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_Search(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	seed(t, r, "Alice Smith", "alice@example.com", "+380501111111", day(1990, 1, 1))
	seed(t, r, "Bob", "bob@example.com", "+380672222222", day(1991, 2, 2))

	byName, err := r.Search(ctx, "SMITH", models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Alice Smith", byName[0].Name)

	byPhone, err := r.Search(ctx, "067", models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "Bob", byPhone[0].Name)

	byEmail, err := r.SearchByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)

	none, err := r.SearchByEmail(ctx, "bo@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_ComingBirthdays(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	seed(t, r, "Today", "a@example.com", "+380500000001", day(1980, 12, 29))
	seed(t, r, "NewYear", "b@example.com", "+380500000002", day(1985, 1, 4))
	seed(t, r, "TooLate", "c@example.com", "+380500000003", day(1985, 1, 6))
	seed(t, r, "Past", "d@example.com", "+380500000004", day(1985, 12, 28))

	got, err := r.ComingBirthdays(ctx, day(2025, 12, 29), 7, models.Page{Limit: 10})
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Today", "NewYear"}, names)
}

func TestMemory_TokenConfirmAvatar(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	seed(t, r, "Alice", "alice@example.com", "+380501111111", day(1990, 1, 1))

	tok := "refresh"
	require.NoError(t, r.UpdateToken(ctx, 1, &tok))
	c, _ := r.GetByID(ctx, 1)
	require.NotNil(t, c.RefreshToken)
	assert.Equal(t, "refresh", *c.RefreshToken)

	require.NoError(t, r.UpdateToken(ctx, 1, nil))
	c, _ = r.GetByID(ctx, 1)
	assert.Nil(t, c.RefreshToken)

	require.NoError(t, r.Confirm(ctx, "alice@example.com"))
	c, _ = r.GetByID(ctx, 1)
	assert.True(t, c.Confirmed)
	assert.ErrorIs(t, r.Confirm(ctx, "ghost@example.com"), common.ErrorNotFound)

	upd, err := r.UpdateAvatar(ctx, "alice@example.com", "http://img/1.png")
	require.NoError(t, err)
	require.NotNil(t, upd.Avatar)
	assert.Equal(t, "http://img/1.png", *upd.Avatar)
}
