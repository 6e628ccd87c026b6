package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleBase  = "base"

	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

type User struct {
	ID           string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string                      `gorm:"type:varchar(160);uniqueIndex;not null" json:"email"`
	PasswordHash string                      `gorm:"type:varchar(100)" json:"-"`
	Roles        datatypes.JSONSlice[string] `json:"roles"`
	Providers    datatypes.JSONSlice[string] `json:"providers"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

func (u *User) HasProvider(provider string) bool {
	return slices.Contains(u.Providers, provider)
}

// AddProvider merges provider into the list, keeping it duplicate free.
func (u *User) AddProvider(provider string) {
	if !u.HasProvider(provider) {
		u.Providers = append(u.Providers, provider)
	}
}

// AllowedEmail is one entry of the sign-up allowlist.
type AllowedEmail struct {
	Email     string    `gorm:"primaryKey;type:varchar(160)" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
