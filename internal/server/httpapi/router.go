package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/gorilla/mux"
)

// AuthService is the account side of the API.
type AuthService interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.Contact, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	ConfirmEmail(ctx context.Context, token string) (string, error)
	RequestConfirmationEmail(ctx context.Context, email string) (string, error)
	RefreshToken(ctx context.Context, token string) (*services.TokenPair, error)
	ResolveCaller(ctx context.Context, token string) (*models.Contact, error)
}

// ContactService is the contact book side of the API.
type ContactService interface {
	List(ctx context.Context, page models.Page) ([]*models.Contact, error)
	Get(ctx context.Context, id int64) (*models.Contact, error)
	UpdateSelf(ctx context.Context, caller *models.Contact, in services.ContactUpdateInput) (*models.Contact, error)
	DeleteSelf(ctx context.Context, caller *models.Contact) error
	Search(ctx context.Context, term string, page models.Page) ([]*models.Contact, error)
	ComingBirthdays(ctx context.Context, page models.Page) ([]*models.Contact, error)
	UpdateAvatar(ctx context.Context, caller *models.Contact, r io.Reader) (*models.Contact, error)
}

// RateLimiter admits or rejects one request for key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

// Pinger reports storage health. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth     AuthService
	Contacts ContactService
	// Limiter and DB are optional.
	Limiter RateLimiter
	DB      Pinger
	Logger  logging.Logger
}

type handlers struct {
	auth     AuthService
	contacts ContactService
	limiter  RateLimiter
	db       Pinger
	logger   logging.Logger
}

// NewRouter builds the complete HTTP handler, middleware included.
func NewRouter(d Deps) http.Handler {
	h := &handlers{
		auth:     d.Auth,
		contacts: d.Contacts,
		limiter:  d.Limiter,
		db:       d.DB,
		logger:   d.Logger.With("module", "http"),
	}

	r := mux.NewRouter()
	r.Use(withRequestID, h.withLogging, h.withRecover)

	r.HandleFunc("/", h.hello).Methods(http.MethodGet)
	r.HandleFunc("/api/healthchecker", h.healthchecker).Methods(http.MethodGet)

	a := r.PathPrefix("/api/auth").Subrouter()
	a.HandleFunc("/signup", h.signup).Methods(http.MethodPost)
	a.HandleFunc("/login", h.login).Methods(http.MethodPost)
	a.HandleFunc("/confirmed_email/{token}", h.confirmedEmail).Methods(http.MethodGet)
	a.HandleFunc("/request_email", h.requestEmail).Methods(http.MethodPost)
	a.HandleFunc("/refresh_token", h.refreshToken).Methods(http.MethodGet)

	c := r.PathPrefix("/api/contacts").Subrouter()
	c.Use(h.authenticated())
	c.HandleFunc("/", h.rateLimited(h.listContacts)).Methods(http.MethodGet)
	c.HandleFunc("/", h.updateContact).Methods(http.MethodPut)
	c.HandleFunc("/", h.deleteContact).Methods(http.MethodDelete)
	c.HandleFunc("/search/{term}", h.searchContacts).Methods(http.MethodGet)
	c.HandleFunc("/coming-birthday/", h.comingBirthdays).Methods(http.MethodGet)
	c.HandleFunc("/avatar", h.updateAvatar).Methods(http.MethodPatch)
	c.HandleFunc("/{id:[0-9]+}", h.getContact).Methods(http.MethodGet)

	return withCORS(r)
}
