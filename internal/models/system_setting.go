package models

import (
	"time"

	"gorm.io/datatypes"
)

type SystemSetting struct {
	ID  uint64 `gorm:"primaryKey;autoIncrement"`
	Key string `gorm:"type:varchar(100);uniqueIndex;not null"`

	Value       datatypes.JSON `gorm:"type:jsonb"`
	Description string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
