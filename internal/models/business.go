package models

import "time"

// Booking is an appointment in a tenant's business schema.
type Booking struct {
	BaseModel
	CustomerID  string    `gorm:"size:36;index;not null" json:"customer_id"`
	Duration    int       `gorm:"not null" json:"duration"`
	BookingDate time.Time `gorm:"index;not null" json:"booking_date"`
	Status      int       `gorm:"not null;default:0" json:"status"`
	Price       float64   `json:"price"`
	Notes       string    `gorm:"type:text" json:"notes"`

	// Added by later revisions and repaired onto older schemas.
	StylistID string `gorm:"size:36;index" json:"stylist_id"`
	Service   string `gorm:"size:255" json:"service"`
}

// Service is an offering with its duration in minutes and price.
type Service struct {
	BaseModel
	Name     string  `gorm:"column:service;size:255;not null" json:"service"`
	Duration int     `gorm:"column:time;not null" json:"time"`
	Price    float64 `gorm:"not null" json:"price"`
}

// OpeningHours is one open or break slot on a date.
type OpeningHours struct {
	BaseModel
	Date         time.Time `gorm:"index;not null" json:"date"`
	TimeSlotType string    `gorm:"size:8;not null" json:"time_slot_type"`
	StartTime    string    `gorm:"size:8;not null" json:"start_time"`
	EndTime      string    `gorm:"size:8;not null" json:"end_time"`
	Location     string    `gorm:"size:100" json:"location"`
}

// TableName implements gorm's tabler.
func (OpeningHours) TableName() string { return "opening_hours" }

// SalonInfo holds the public profile and branding of the tenant.
type SalonInfo struct {
	BaseModel
	SalonName      string `gorm:"size:255" json:"salon_name"`
	AddressStreet  string `gorm:"size:255" json:"address_street"`
	AddressCity    string `gorm:"size:255" json:"address_city"`
	AddressZip     string `gorm:"size:20" json:"address_zip"`
	Phone          string `gorm:"size:20" json:"phone"`
	Email          string `gorm:"size:255" json:"email"`
	Website        string `gorm:"size:255" json:"website"`
	Description    string `gorm:"type:text" json:"description"`
	LogoURL        string `gorm:"size:500" json:"logo_url"`
	PrimaryColor   string `gorm:"size:7;default:#5ac8fa" json:"primary_color"`
	SecondaryColor string `gorm:"size:7;default:#007aff" json:"secondary_color"`
	FontFamily     string `gorm:"size:100;default:Arial" json:"font_family"`
}

// TableName implements gorm's tabler.
func (SalonInfo) TableName() string { return "salon_info" }

// NotificationSettings toggles which booking events notify the tenant.
type NotificationSettings struct {
	BaseModel
	NewBookingNotify    bool `gorm:"not null;default:true" json:"new_booking_notify"`
	BookingUpdateNotify bool `gorm:"not null;default:true" json:"booking_update_notify"`
	BookingCancelNotify bool `gorm:"not null;default:true" json:"booking_cancel_notify"`
	Reminder24h         bool `gorm:"not null;default:true" json:"reminder_24h"`
	Reminder2h          bool `gorm:"not null;default:true" json:"reminder_2h"`
}

// TableName keeps the plural table name used by existing schemas.
func (NotificationSettings) TableName() string { return "notification_settings" }

// Customer is an end client of the tenant.
type Customer struct {
	BaseModel
	Email     string     `gorm:"size:255;uniqueIndex" json:"email"`
	Phone     string     `gorm:"size:20" json:"phone"`
	FirstName string     `gorm:"size:100" json:"first_name"`
	LastName  string     `gorm:"size:100" json:"last_name"`
	LastVisit *time.Time `json:"last_visit"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
}
