package schema

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/internal/models"
)

// Kind selects which set of tables a schema must carry.
type Kind string

const (
	KindBusiness Kind = "business"
	KindAccount  Kind = "account"
	KindCentral  Kind = "central"
)

// Step is one independent, purely additive repair.
type Step struct {
	Name  string
	Apply func(db *gorm.DB) error
}

// Plan returns the ordered repair steps for kind. Tables are created first,
// then columns introduced by later revisions are added to older tables.
func Plan(kind Kind) ([]Step, error) {
	switch kind {
	case KindBusiness:
		return []Step{
			createTable(&models.Booking{}, "bookings"),
			createTable(&models.Service{}, "services"),
			createTable(&models.OpeningHours{}, "opening_hours"),
			createTable(&models.SalonInfo{}, "salon_info"),
			createTable(&models.NotificationSettings{}, "notification_settings"),
			createTable(&models.Customer{}, "customers"),
			addColumn(&models.Booking{}, "bookings", "StylistID", "stylist_id"),
			addColumn(&models.Booking{}, "bookings", "Service", "service"),
		}, nil
	case KindAccount:
		return []Step{
			createTable(&models.Staff{}, "staff"),
			createTable(&models.Resource{}, "resource"),
			addColumn(&models.Staff{}, "staff", "ProfileImage", "profile_image"),
			addColumn(&models.Staff{}, "staff", "Phone", "phone"),
			addColumn(&models.Staff{}, "staff", "ResetTokenHash", "reset_token"),
			addColumn(&models.Staff{}, "staff", "ResetExpiresAt", "reset_expires"),
			addColumn(&models.Staff{}, "staff", "ResetUsed", "reset_used"),
		}, nil
	case KindCentral:
		return []Step{
			createTable(&models.DirectoryEntry{}, "staff_directory"),
			createTable(&models.Invitation{}, "invitations"),
			createTable(&models.TenantRecord{}, "tenants"),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// createTable creates the table for model when it is missing. A concurrent
// creator winning the race is not a failure.
func createTable(model any, table string) Step {
	return Step{
		Name: "create table " + table,
		Apply: func(db *gorm.DB) error {
			migrator := db.Migrator()
			if migrator.HasTable(model) {
				return nil
			}
			if err := migrator.CreateTable(model); err != nil {
				if migrator.HasTable(model) {
					return nil
				}
				return err
			}
			return nil
		},
	}
}

// addColumn adds field to an existing table when the column is missing.
func addColumn(model any, table, field, column string) Step {
	return Step{
		Name: "add column " + table + "." + column,
		Apply: func(db *gorm.DB) error {
			migrator := db.Migrator()
			if !migrator.HasTable(model) {
				return fmt.Errorf("table %s does not exist", table)
			}
			if migrator.HasColumn(model, field) {
				return nil
			}
			if err := migrator.AddColumn(model, field); err != nil {
				if migrator.HasColumn(model, field) {
					return nil
				}
				return err
			}
			return nil
		},
	}
}
