package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	CompanyName  string    `json:"company_name"`
	ContactName  string    `json:"contact_name,omitempty"`
	PasswordHash []byte    `json:"-"`
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"created_at"`
}
