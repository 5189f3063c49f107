package models

import (
	"time"

	"gorm.io/datatypes"
)

// Deliverable is a unit of work inside a phase. Status runs
// pending → in_progress → review; "approved" is never stored, it is derived
// from the two independent sign-off flags.
type Deliverable struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	ProjectID string `gorm:"type:uuid;not null;index"`
	PhaseID   string `gorm:"type:uuid;not null;index"`

	Type        string `gorm:"type:varchar(50);not null"`
	Name        string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"type:varchar(30);not null;default:'pending';index"`

	AgentID   string `gorm:"type:varchar(50)"`
	AgentName string `gorm:"type:varchar(100)"`

	// Content is whatever the work executor produced; opaque to this service.
	Content datatypes.JSON `gorm:"type:jsonb"`

	CEOApproved  bool `gorm:"column:ceo_approved;not null;default:false"`
	UserApproved bool `gorm:"not null;default:false"`

	// Feedback is an append-only history of rejection feedback entries.
	Feedback datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Deliverable) TableName() string {
	return "deliverables"
}
