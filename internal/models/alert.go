package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert is a one-shot price trigger. Firing deactivates it regardless of
// whether the resulting auto-action order succeeded.
type Alert struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	ProjectID string `gorm:"type:uuid;not null;index"`
	UserID    string `gorm:"type:uuid;not null;index"`

	Symbol       string          `gorm:"type:varchar(20);not null"`
	Condition    string          `gorm:"type:varchar(20);not null"`
	TriggerPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	// AutoAction is "BUY:<qty>" or "SELL:<qty>", empty for notify-only alerts.
	AutoAction string `gorm:"type:varchar(30)"`

	IsActive bool `gorm:"not null;default:true;index"`

	// LastEvalPrice is the price seen on the previous tick, used by the
	// crossover/crossunder conditions.
	LastEvalPrice   *decimal.Decimal `gorm:"type:numeric(20,10)"`
	LastTriggeredAt *time.Time       `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Alert) TableName() string {
	return "alerts"
}
