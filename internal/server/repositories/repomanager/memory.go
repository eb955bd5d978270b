package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/contacts"
)

// MemoryRepositoryManager hands out one shared in-memory store regardless of
// the DBTX it is given. It pairs with dbx.NopRunner.
type MemoryRepositoryManager struct {
	contacts *contacts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{contacts: contacts.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Contacts(dbx.DBTX) contacts.Repository {
	return m.contacts
}

// RunMigrations is a no-op; the in-memory store has no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
