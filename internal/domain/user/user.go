package user

import (
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleUploader = "uploader"
	RoleViewer   = "viewer"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUploader, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string     `gorm:"uniqueIndex;not null;size:64;column:username" json:"username"`
	DisplayName    string     `gorm:"size:128;column:display_name" json:"display_name"`
	Email          *string    `gorm:"uniqueIndex;size:255;column:email" json:"email,omitempty"`
	HashedPassword string     `gorm:"not null;size:255;column:hashed_password" json:"-"`
	Role           string     `gorm:"not null;size:16;default:viewer;column:role;index" json:"role"`
	IsActive       bool       `gorm:"not null;default:true;column:is_active" json:"is_active"`
	LastLogin      *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "sys_user" }
