package models

import "time"

// Notification is a fire-and-forget user-facing event (phase started, trade
// executed, kill switch tripped).
type Notification struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"type:uuid;not null;index"`
	ProjectID string `gorm:"type:uuid;index"`

	Title    string `gorm:"type:varchar(200);not null"`
	Body     string `gorm:"type:text"`
	Category string `gorm:"type:varchar(30);not null;index"`

	ReadAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
