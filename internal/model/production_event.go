package model

import "time"

// Event types. A stop event always carries qty 0.
const (
	EventGood  = "good"
	EventScrap = "scrap"
	EventStop  = "stop"
)

// ProductionEvent is one immutable row of the production ledger. Events are
// never updated or deleted; corrections require new compensating events.
type ProductionEvent struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	MachineID   int64      `gorm:"not null;index:idx_production_events_machine_happened" json:"machine_id"`
	WorkOrderID *int64     `gorm:"index" json:"work_order_id"`
	EventType   string     `gorm:"size:16;not null" json:"event_type"`
	Qty         int        `gorm:"not null;default:0" json:"qty"`
	Notes       *string    `gorm:"size:512" json:"notes"`
	HappenedAt  time.Time  `gorm:"not null;index:idx_production_events_machine_happened" json:"happened_at"`

	// Associations
	Machine   Machine    `json:"-"`
	WorkOrder *WorkOrder `json:"-"`
}

// ValidEventType reports whether t is one of the recognized event types.
func ValidEventType(t string) bool {
	switch t {
	case EventGood, EventScrap, EventStop:
		return true
	}
	return false
}
