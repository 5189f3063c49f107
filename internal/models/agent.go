package models

import "time"

// Agent is a named roster entry. One agent is designated per phase number by
// the checklist templates; the roster exists so dashboards can show who did
// what.
type Agent struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null"`
	Name string `gorm:"type:varchar(100);not null"`
	Role string `gorm:"type:varchar(100)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Agent) TableName() string {
	return "agents"
}
