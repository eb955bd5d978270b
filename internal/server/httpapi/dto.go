package httpapi

import (
	"time"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
)

const dateLayout = "2006-01-02"

type contactResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Birthday  string    `json:"birthday"`
	Confirmed bool      `json:"confirmed"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

func toContactResponse(c *models.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Birthday:  c.Birthday.Format(dateLayout),
		Confirmed: c.Confirmed,
		Avatar:    c.Avatar,
		CreatedAt: c.CreatedAt,
	}
}

func toContactList(cs []*models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContactResponse(c))
	}
	return out
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func toTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: p.TokenType}
}

type messageResponse struct {
	Message string `json:"message"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Birthday string `json:"birthday"`
	Password string `json:"password"`
}

func (r signupRequest) toInput() (services.SignupInput, error) {
	bday, err := parseDate(r.Birthday)
	if err != nil {
		return services.SignupInput{}, err
	}
	return services.SignupInput{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Birthday: bday,
		Password: r.Password,
	}, nil
}

type updateRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Birthday string `json:"birthday"`
}

func (r updateRequest) toInput() (services.ContactUpdateInput, error) {
	bday, err := parseDate(r.Birthday)
	if err != nil {
		return services.ContactUpdateInput{}, err
	}
	return services.ContactUpdateInput{Name: r.Name, Phone: r.Phone, Birthday: bday}, nil
}

type requestEmailRequest struct {
	Email string `json:"email"`
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, validation.NewError("birthday", "date", "birthday must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
