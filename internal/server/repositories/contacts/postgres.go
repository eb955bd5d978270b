package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const contactColumns = `id, name, email, phone, birthday, password, refresh_token, confirmed, avatar, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(row scanner) (*models.Contact, error) {
	var (
		c            models.Contact
		refreshToken sql.NullString
		avatar       sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Birthday, &c.Password,
		&refreshToken, &c.Confirmed, &avatar, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if refreshToken.Valid {
		c.RefreshToken = &refreshToken.String
	}
	if avatar.Valid {
		c.Avatar = &avatar.String
	}
	return &c, nil
}

func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%w: db error: %w", common.ErrStorageUnavailable, err)
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbError(err)
	}
	return c, nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	result := make([]*models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, dbError(err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context, page models.Page) ([]*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 ORDER BY id
		 OFFSET $1 LIMIT $2
		 `
	return r.queryMany(ctx, query, page.Offset, page.Limit)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE id = $1
		 `
	return r.queryOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE email = $1
		 `
	return r.queryOne(ctx, query, email)
}

func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE email = $1
		 FOR UPDATE
		 `
	return r.queryOne(ctx, query, email)
}

func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query :=
		`INSERT INTO contacts (name, email, phone, birthday, password)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, confirmed, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		contact.Name, contact.Email, contact.Phone, contact.Birthday, contact.Password,
	).Scan(&contact.ID, &contact.Confirmed, &contact.CreatedAt)
	if err != nil {
		return nil, dbError(err)
	}

	return contact, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, upd models.ContactUpdate) (*models.Contact, error) {
	query :=
		`UPDATE contacts SET name = $1, phone = $2, birthday = $3
		 WHERE id = $4
		 RETURNING ` + contactColumns
	return r.queryOne(ctx, query, upd.Name, upd.Phone, upd.Birthday, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM contacts WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Search(ctx context.Context, term string, page models.Page) ([]*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE name ILIKE $1 ESCAPE '\' OR phone ILIKE $1 ESCAPE '\'
		 ORDER BY id
		 OFFSET $2 LIMIT $3
		 `
	return r.queryMany(ctx, query, likePattern(term), page.Offset, page.Limit)
}

func (r *PostgresRepository) SearchByEmail(ctx context.Context, email string) ([]*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE email = $1
		 `
	return r.queryMany(ctx, query, email)
}

func (r *PostgresRepository) ComingBirthdays(ctx context.Context, today time.Time, days int, page models.Page) ([]*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE to_char(birthday, 'MM-DD') = ANY(string_to_array($1, ','))
		 ORDER BY id
		 OFFSET $2 LIMIT $3
		 `
	keys := strings.Join(BirthdayMonthDays(today, days), ",")
	return r.queryMany(ctx, query, keys, page.Offset, page.Limit)
}

func (r *PostgresRepository) UpdateToken(ctx context.Context, id int64, token *string) error {
	query := `UPDATE contacts SET refresh_token = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, token, id)
	if err != nil {
		return dbError(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Confirm(ctx context.Context, email string) error {
	query := `UPDATE contacts SET confirmed = TRUE WHERE email = $1`

	res, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		return dbError(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, email string, url string) (*models.Contact, error) {
	query :=
		`UPDATE contacts SET avatar = $1
		 WHERE email = $2
		 RETURNING ` + contactColumns
	return r.queryOne(ctx, query, url, email)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
