package model

import "time"

// WorkOrder represents a manufacturing order. Work orders are immutable after
// creation; events reference them optionally.
type WorkOrder struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	Number    string     `gorm:"uniqueIndex;size:64;not null" json:"number"`
	Client    *string    `gorm:"size:256" json:"client"`
	PartRef   *string    `gorm:"size:128" json:"part_ref"`
	TargetQty int        `gorm:"not null;default:0" json:"target_qty"`
	DueOn     *time.Time `gorm:"index" json:"due_on"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`

	// Associations
	Events []ProductionEvent `gorm:"foreignKey:WorkOrderID" json:"-"`
}
