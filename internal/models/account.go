package models

import "time"

// Staff is an account row inside a tenant's account schema. Email is unique
// only within the tenant.
type Staff struct {
	BaseModel
	FirstName         string     `gorm:"size:100;not null" json:"first_name"`
	LastName          string     `gorm:"size:100;not null" json:"last_name"`
	Email             string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash      string     `gorm:"column:password;size:255;not null" json:"-"`
	Role              string     `gorm:"size:32;not null;default:stylist" json:"role"`
	EmailVerified     bool       `gorm:"not null;default:false" json:"email_verified"`
	VerificationToken string     `gorm:"size:64;index" json:"-"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt       *time.Time `gorm:"column:last_login" json:"last_login_at"`

	// Added by later revisions and repaired onto older schemas.
	ProfileImage   string     `gorm:"size:500" json:"profile_image,omitempty"`
	Phone          string     `gorm:"size:20" json:"phone,omitempty"`
	ResetTokenHash string     `gorm:"column:reset_token;size:64" json:"-"`
	ResetExpiresAt *time.Time `gorm:"column:reset_expires" json:"-"`
	ResetUsed      bool       `gorm:"not null;default:false" json:"-"`
}

// TableName implements gorm's tabler.
func (Staff) TableName() string { return "staff" }

// Resource is a bookable chair, room or device owned by the tenant.
type Resource struct {
	BaseModel
	CustomID    string `gorm:"size:50;uniqueIndex;not null" json:"custom_id"`
	Type        string `gorm:"size:50;not null" json:"type"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName keeps the historic singular table name.
func (Resource) TableName() string { return "resource" }
