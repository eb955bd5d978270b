package models

import "time"

// Contact is a single record that is both an address-book entry and the
// account of the person it describes.
type Contact struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	Birthday     time.Time
	Password     string
	RefreshToken *string
	Confirmed    bool
	Avatar       *string
	CreatedAt    time.Time
}

// ContactUpdate carries the profile fields a caller may change on their own record.
type ContactUpdate struct {
	Name     string
	Phone    string
	Birthday time.Time
}

// Page is an offset/limit window over an ordered result set.
type Page struct {
	Offset int `validate:"gte=0"`
	Limit  int `validate:"gte=10,lte=100"`
}
