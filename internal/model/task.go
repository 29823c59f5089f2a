package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Frequency определяет период повторения задачи
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// DefaultFrequency is used when a recurring task is created without a valid frequency.
const DefaultFrequency = FrequencyWeekly

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title       string         `gorm:"not null"`
	Completed   bool           `gorm:"not null"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	Recurring   bool           `gorm:"not null"`
	Frequency   Frequency      `gorm:"type:varchar(16);not null"`
	NextDueDate *time.Time
	SharedWith  pq.StringArray `gorm:"type:text[];not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOwner reports whether userID owns the task.
func (t *Task) IsOwner(userID uuid.UUID) bool {
	return t.UserID == userID
}

// IsSharedWith reports whether userID is a collaborator on the task.
func (t *Task) IsSharedWith(userID uuid.UUID) bool {
	id := userID.String()
	for _, shared := range t.SharedWith {
		if shared == id {
			return true
		}
	}
	return false
}

// CanAccess reports whether userID is the owner or a collaborator.
func (t *Task) CanAccess(userID uuid.UUID) bool {
	return t.IsOwner(userID) || t.IsSharedWith(userID)
}
