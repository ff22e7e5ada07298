package domain

import "time"

// UserStatus representa el nivel de la cuenta.
type UserStatus string

const (
	StatusBasic      UserStatus = "basic"
	StatusPro        UserStatus = "pro"
	StatusEnterprise UserStatus = "enterprise"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusBasic, StatusPro, StatusEnterprise:
		return true
	}
	return false
}

type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	Status         UserStatus `json:"status"`
	HashedPassword string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}
