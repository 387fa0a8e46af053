package services

import (
	"errors"
	"fmt"

	"github.com/charlesng35/salonhub/internal/database"
)

var (
	// ErrDirectoryEntryNotFound indicates no active directory entry exists for an email.
	ErrDirectoryEntryNotFound = errors.New("directory: entry not found")
	// ErrEmailTaken indicates the email already routes to a tenant or account.
	ErrEmailTaken = errors.New("staff: email already registered")
	// ErrTenantExists indicates the derived slug is already taken or being provisioned.
	ErrTenantExists = errors.New("tenant: already exists")
	// ErrTenantRetired indicates the slug belonged to a deleted tenant. It
	// matches ErrTenantExists.
	ErrTenantRetired = fmt.Errorf("%w: slug retired", ErrTenantExists)
	// ErrTenantNotFound indicates no provisioning record exists for a slug.
	ErrTenantNotFound = errors.New("tenant: not found")
	// ErrInvitationInvalid covers unknown, expired and already accepted invitations alike.
	ErrInvitationInvalid = errors.New("invite: invalid or expired")
	// ErrInvitationPending indicates an unexpired invitation already exists for the email.
	ErrInvitationPending = errors.New("invite: pending invitation exists")
	// ErrInvalidRole indicates a role that cannot be granted.
	ErrInvalidRole = errors.New("staff: invalid role")
	// ErrStaffNotFound indicates the staff member does not exist in the tenant.
	ErrStaffNotFound = errors.New("staff: not found")
	// ErrCannotDeactivateSelf prevents a member from locking themselves out.
	ErrCannotDeactivateSelf = errors.New("staff: cannot deactivate own account")
	// ErrCannotDeactivateOwner prevents a tenant from losing its owner.
	ErrCannotDeactivateOwner = errors.New("staff: cannot deactivate owner")
	// ErrVerificationInvalid indicates an unknown or already used verification token.
	ErrVerificationInvalid = errors.New("staff: invalid verification token")
	// ErrResetTokenInvalid indicates an unknown, expired or used password reset token.
	ErrResetTokenInvalid = errors.New("staff: invalid reset token")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	return database.IsUniqueViolation(err)
}
