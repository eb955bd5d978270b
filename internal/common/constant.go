package common

// TokenType is the token_type marker returned with every token pair.
const TokenType = "bearer"

// Token scopes embedded in the "scope" claim.
const (
	ScopeAccessToken  = "access_token"
	ScopeRefreshToken = "refresh_token"
)

// Pagination bounds shared by list-style endpoints.
const (
	DefaultOffset = 0
	DefaultLimit  = 10
	MinLimit      = 10
	MaxLimit      = 100
)

// BirthdayWindowDays is how far ahead the coming-birthday query looks.
const BirthdayWindowDays = 7
