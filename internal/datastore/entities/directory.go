package entities

import "gorm.io/gorm"

// User is the subset of the user directory the engine reads.
type User struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	Name         string  `gorm:"size:255;not null;index" json:"name"`
	Email        string  `gorm:"size:255;default:''" json:"email"`
	SupervisorID *string `gorm:"size:36" json:"supervisor_id,omitempty"`
	Active       bool    `gorm:"not null" json:"active"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	u.ID = newID(u.ID)
	return nil
}

// RoleMembership joins users to roles.
type RoleMembership struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	RoleID string `gorm:"size:36;not null;uniqueIndex:idx_role_user,priority:1" json:"role_id"`
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_role_user,priority:2" json:"user_id"`
}

func (RoleMembership) TableName() string { return "role_memberships" }
