package handlers

import (
	"context"
	stdErrors "errors"
	"net/http"

	iauth "github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/services"
	"github.com/charlesng35/salonhub/internal/tenant"
	appErrors "github.com/charlesng35/salonhub/pkg/errors"
	appValidator "github.com/charlesng35/salonhub/pkg/validator"
)

var (
	errInvitationPending = appErrors.New("INVITATION_PENDING", "An invitation for this email is already pending", http.StatusConflict)
	errVerificationToken = appErrors.New("VERIFICATION_INVALID", "Invalid or already used verification link", http.StatusBadRequest)
	errResetToken        = appErrors.New("RESET_TOKEN_INVALID", "Invalid or expired reset link", http.StatusBadRequest)
	errInvalidRole       = appErrors.New("INVALID_ROLE", "Role must be admin, stylist or reception", http.StatusBadRequest)
	errCannotDeactivate  = appErrors.New("CANNOT_DEACTIVATE", "This account cannot be deactivated", http.StatusForbidden)
	errInvalidBusiness   = appErrors.NewBadRequest("business name must contain letters or digits and be at most 40 characters once normalised")
)

// translateError maps data plane and service errors onto client facing
// AppErrors. Unknown errors become a 500 that keeps the cause for logging.
func translateError(err error) *appErrors.AppError {
	var appErr *appErrors.AppError
	var validation appValidator.ValidationErrors

	switch {
	case err == nil:
		return nil
	case stdErrors.As(err, &appErr):
		return appErr
	case stdErrors.As(err, &validation):
		return appErrors.NewBadRequest(formatValidationError(validation))
	case stdErrors.Is(err, database.ErrConnectivity):
		return appErrors.ErrConnectivity.WithInternal(err)
	case stdErrors.Is(err, context.DeadlineExceeded):
		return appErrors.ErrRequestTimeout.WithInternal(err)
	case stdErrors.Is(err, iauth.ErrInvalidCredentials):
		return appErrors.ErrInvalidCredentials
	case stdErrors.Is(err, iauth.ErrEmailNotVerified):
		return appErrors.ErrEmailNotVerified
	case stdErrors.Is(err, services.ErrEmailTaken),
		stdErrors.Is(err, services.ErrTenantExists):
		return appErrors.ErrAlreadyExists
	case stdErrors.Is(err, services.ErrInvitationPending):
		return errInvitationPending
	case stdErrors.Is(err, services.ErrInvitationInvalid):
		return appErrors.ErrInvitationInvalid
	case stdErrors.Is(err, services.ErrVerificationInvalid):
		return errVerificationToken
	case stdErrors.Is(err, services.ErrResetTokenInvalid):
		return errResetToken
	case stdErrors.Is(err, services.ErrInvalidRole):
		return errInvalidRole
	case stdErrors.Is(err, services.ErrCannotDeactivateSelf),
		stdErrors.Is(err, services.ErrCannotDeactivateOwner):
		return errCannotDeactivate
	case stdErrors.Is(err, services.ErrStaffNotFound),
		stdErrors.Is(err, services.ErrTenantNotFound):
		return appErrors.ErrNotFound
	case stdErrors.Is(err, tenant.ErrInvalidName):
		return errInvalidBusiness
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}
