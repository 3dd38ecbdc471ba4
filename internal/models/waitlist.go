package models

import "time"

// WaitlistEntry is one signup captured from the waitlist form. Rows are
// insert-only; a resubmitted email adds another row.
type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Email     string    `gorm:"type:text;not null;index"`
	Company   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (WaitlistEntry) TableName() string {
	return "waitlist"
}
