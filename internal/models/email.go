package models

import "time"

// Email is a queued outbound notification. A separate consumer owns delivery.
type Email struct {
	ID        uint      `gorm:"primaryKey"`
	To        string    `gorm:"column:to;type:text;not null"`
	Subject   string    `gorm:"type:text;not null"`
	HTML      string    `gorm:"column:html;type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Email) TableName() string {
	return "emails"
}
