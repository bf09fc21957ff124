package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account is a registered user. Identity is a bearer token issued at creation
// and re-issuable against the stored credentials; there is no cookie login
// flow in this service.
type Account struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	Email     string `gorm:"uniqueIndex;size:160" json:"email"`
	Password  string `gorm:"size:120" json:"-"`
	Token     string `gorm:"uniqueIndex;size:64" json:"-"`
	FirstName string `gorm:"size:80" json:"firstName"`
	LastName  string `gorm:"size:80" json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// CheckPassword verifies a plaintext password against the stored hash.
func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) == nil
}
