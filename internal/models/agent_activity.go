package models

import (
	"time"

	"gorm.io/datatypes"
)

// AgentActivity is the append-only audit log. Every component writes here;
// nothing updates or deletes rows.
type AgentActivity struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProjectID string `gorm:"type:uuid;index"`

	AgentID   string `gorm:"type:varchar(50);index"`
	AgentName string `gorm:"type:varchar(100)"`

	Action   string         `gorm:"type:text;not null"`
	Status   string         `gorm:"type:varchar(20);not null;index"`
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (AgentActivity) TableName() string {
	return "agent_activities"
}
