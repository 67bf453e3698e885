// internal/models/user.go
package models

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name        string     `json:"name" gorm:"size:120;not null"`
	Email       string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Password    string     `json:"-" gorm:"size:255;not null"`
	Role        Role       `json:"role" gorm:"type:varchar(20);not null"`
	Status      UserStatus `json:"status" gorm:"type:varchar(20);not null"`
	Location    string     `json:"location"`
	Phone       string     `json:"phone"`
	Description string     `json:"description"`
	Picture     string     `json:"picture"`
	LastLoginAt *time.Time `json:"lastLoginAt"`

	// Relationships
	Activity []UserActivity `json:"activity,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// HasHashedPassword reports whether the stored password is a bcrypt hash.
func (u *User) HasHashedPassword() bool {
	return strings.HasPrefix(u.Password, "$2")
}

// CheckPassword compares against the bcrypt hash, or, when allowPlaintext is
// set and the stored value is not a hash, against the stored plaintext.
func (u *User) CheckPassword(password string, allowPlaintext bool) bool {
	if u.HasHashedPassword() {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
	}
	if !allowPlaintext || u.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

type UserActivity struct {
	BaseModel
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	Action     string    `json:"action" gorm:"size:100"`
	Method     string    `json:"method" gorm:"size:10"`
	Path       string    `json:"path" gorm:"size:255"`
	StatusCode int       `json:"statusCode"`
	IP         string    `json:"ip" gorm:"size:64"`
	UserAgent  string    `json:"userAgent"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}
