package models

import "time"

// Phase is one stage of a project's fixed ordered workflow. At most one phase
// per project is active; activation goes through a conditional claim update
// rather than caller discipline.
type Phase struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	ProjectID string `gorm:"type:uuid;not null;uniqueIndex:idx_phases_project_number,priority:1"`

	PhaseNumber int    `gorm:"not null;uniqueIndex:idx_phases_project_number,priority:2"`
	Name        string `gorm:"type:varchar(100);not null"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending';index"`

	StartedAt   *time.Time `gorm:"type:timestamptz"`
	CompletedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Phase) TableName() string {
	return "phases"
}
