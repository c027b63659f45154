package models

import "gorm.io/gorm"

// User roles.
const (
	RoleSuper   = "super"
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User account states.
const (
	UserStatusPending     = "pending"
	UserStatusActive      = "active"
	UserStatusDeactivated = "deactivated"
)

// User is an application profile bound to an identity-provider subject.
type User struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	AuthID string `gorm:"size:255;uniqueIndex;not null" json:"auth_id"`
	Name   string `gorm:"size:255" json:"name"`
	Email  string `gorm:"size:255" json:"email,omitempty"`
	Role   string `gorm:"size:32;not null" json:"role"`
	Status string `gorm:"size:32;not null" json:"status"`
}

// TableName keeps the collection name stable.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an identifier when missing.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// IsAdmin reports whether the user holds an administrative role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuper
}

// ValidRole reports whether value is a known role.
func ValidRole(value string) bool {
	switch value {
	case RoleSuper, RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// ValidUserStatus reports whether value is a known account state.
func ValidUserStatus(value string) bool {
	switch value {
	case UserStatusPending, UserStatusActive, UserStatusDeactivated:
		return true
	}
	return false
}
