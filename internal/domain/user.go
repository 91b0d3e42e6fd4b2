package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleEmployee = "employee"
	RoleMentor   = "mentor"
	RoleAdmin    = "admin"
)

// RoleSet is an unordered capability set. Grants go through Union so that
// repeated grants stay idempotent.
type RoleSet []string

func (rs RoleSet) Has(role string) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Union returns a set containing every role of rs plus the given roles,
// without duplicates. The receiver is not modified.
func (rs RoleSet) Union(roles ...string) RoleSet {
	out := make(RoleSet, len(rs))
	copy(out, rs)
	for _, role := range roles {
		if !out.Has(role) {
			out = append(out, role)
		}
	}
	return out
}

// User carries only the fields the journey engine touches. Account
// management lives elsewhere.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	FirstName string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName  string    `gorm:"not null;column:last_name" json:"last_name"`
	Roles     RoleSet   `gorm:"type:jsonb;serializer:json;column:roles" json:"roles"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return u.FirstName + " " + u.LastName
}
