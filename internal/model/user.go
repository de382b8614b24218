package model

import "time"

// Roles recognized by the access control layer.
const (
	RoleOperator = "operator"
	RoleChef     = "chef"
	RoleAdmin    = "admin"
)

// User represents an account that can authenticate against the API.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:32;not null;default:operator" json:"role"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`

	// Associations
	Machines []Machine `gorm:"foreignKey:CreatedBy" json:"-"`
}

// ValidRole reports whether role is one of the recognized roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOperator, RoleChef, RoleAdmin:
		return true
	}
	return false
}
