package models

import (
	"time"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;type:varchar(255)" json:"email"`
	PasswordHash string    `gorm:"not null;type:varchar(255)" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Profile roles
const (
	RoleUser      = "user"
	RoleDeveloper = "developer"
	RoleAdmin     = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleDeveloper, RoleAdmin:
		return true
	}
	return false
}

// Profile carries per-user role and display metadata. The primary key is
// the owning user's id; rows are created lazily on first authenticated
// access with role defaulting to "user".
type Profile struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FullName  string    `gorm:"type:varchar(255)" json:"full_name"`
	AvatarURL string    `gorm:"type:varchar(500)" json:"avatar_url"`
	Role      string    `gorm:"not null;type:varchar(20);default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
