package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// idColumnSize fits a canonical UUID string on every supported dialect.
const idColumnSize = 36

// BaseModel is embedded by every staff, business and directory row. Ids are
// UUIDv7 strings, so rows inserted later sort after earlier ones even on
// dialects without a native uuid type.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a fresh time ordered row id.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("models: generate id: %w", err)
	}
	return id.String(), nil
}

// BeforeCreate assigns an id unless the caller already chose one.
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	if m.ID != "" {
		if len(m.ID) > idColumnSize {
			return fmt.Errorf("models: id %q exceeds %d characters", m.ID, idColumnSize)
		}
		return nil
	}

	id, err := NewID()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}
