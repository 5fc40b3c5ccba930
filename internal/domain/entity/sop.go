package entity

import (
	"time"

	"github.com/google/uuid"
)

// SOP is a standard operating procedure authored by an editor.
type SOP struct {
	ID          uuid.UUID
	OwnerID     string
	Title       string
	Description string
	ShareToken  *string // Set once the SOP has been shared.
	Steps       []*Step
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsShared reports whether a read-only link exists.
func (s *SOP) IsShared() bool {
	return s.ShareToken != nil && *s.ShareToken != ""
}

// Step is one ordered instruction of an SOP.
type Step struct {
	ID           uuid.UUID
	SOPID        uuid.UUID
	Position     int
	Title        string
	Instructions string
	MediaURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
