package model

import "time"

// Machine statuses. Transitions are free-form: any status may follow any other.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusSetup   = "setup"
)

// Machine represents one production machine on the factory floor.
type Machine struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:256;not null" json:"name"`
	Code              string    `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Status            string    `gorm:"size:32;not null;default:setup;index" json:"status"`
	TargetRatePerHour int       `gorm:"not null;default:0" json:"target_rate_per_hour"`
	CreatedBy         *int64    `gorm:"index" json:"created_by"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`

	// Associations
	Owner  *User             `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"-"`
	Events []ProductionEvent `gorm:"foreignKey:MachineID" json:"-"`
}

// ValidStatus reports whether status is one of the recognized machine statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusRunning, StatusStopped, StatusSetup:
		return true
	}
	return false
}
