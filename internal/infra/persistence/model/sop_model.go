package model

import (
	"time"

	"github.com/google/uuid"
)

// SOPModel mirrors the 'sops' table.
type SOPModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID     string    `gorm:"type:varchar(128);not null;index"`
	Title       string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
	ShareToken  *string   `gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Steps []StepModel `gorm:"foreignKey:SOPID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (SOPModel) TableName() string {
	return "sops"
}

// StepModel mirrors the 'sop_steps' table.
type StepModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SOPID        uuid.UUID `gorm:"column:sop_id;type:uuid;not null;index"`
	Position     int       `gorm:"not null"`
	Title        string    `gorm:"type:varchar(200);not null"`
	Instructions string    `gorm:"type:text"`
	MediaURL     string    `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (StepModel) TableName() string {
	return "sop_steps"
}
