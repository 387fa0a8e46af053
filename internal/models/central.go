package models

import "time"

// DirectoryEntry routes a staff email to the tenant holding its account.
// Lives in the central schema; one row per email across all tenants.
type DirectoryEntry struct {
	Email         string     `gorm:"primaryKey;size:255" json:"email"`
	FirstName     string     `gorm:"size:100" json:"first_name"`
	LastName      string     `gorm:"size:100" json:"last_name"`
	TenantSlug    string     `gorm:"size:64;index;not null" json:"tenant"`
	AccountSchema string     `gorm:"size:64;not null" json:"account_schema"`
	Role          string     `gorm:"size:32;not null" json:"role"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName keeps the historic table name.
func (DirectoryEntry) TableName() string { return "staff_directory" }

// Invitation is a single-use onboarding grant into one tenant's account schema.
// Only the SHA-256 of the token is stored. Rows are never deleted.
type Invitation struct {
	BaseModel
	Email         string     `gorm:"size:255;index;not null" json:"email"`
	TenantSlug    string     `gorm:"size:64;index;not null" json:"tenant"`
	AccountSchema string     `gorm:"size:64;not null" json:"-"`
	Role          string     `gorm:"size:32;not null" json:"role"`
	TokenHash     string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	InvitedBy     string     `gorm:"size:36" json:"invited_by"`
	ExpiresAt     time.Time  `gorm:"index;not null" json:"expires_at"`
	Accepted      bool       `gorm:"not null;default:false" json:"accepted"`
	AcceptedAt    *time.Time `json:"accepted_at"`
}

// TenantStatus tracks the provisioning saga of a tenant.
type TenantStatus string

const (
	TenantProvisioning TenantStatus = "provisioning"
	TenantReady        TenantStatus = "ready"
	TenantFailed       TenantStatus = "failed"
	TenantDeleted      TenantStatus = "deleted"
)

// TenantRecord is the provisioning marker for a tenant. Only tenants in the
// ready state are visible to lookups.
type TenantRecord struct {
	Slug           string       `gorm:"primaryKey;size:64" json:"tenant"`
	BusinessName   string       `gorm:"size:255" json:"business_name"`
	BusinessSchema string       `gorm:"size:64;not null" json:"business_schema"`
	AccountSchema  string       `gorm:"size:64;not null" json:"account_schema"`
	Status         TenantStatus `gorm:"size:16;index;not null" json:"status"`
	Attempts       int          `gorm:"not null;default:0" json:"attempts"`
	LastError      string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName implements gorm's tabler.
func (TenantRecord) TableName() string { return "tenants" }
