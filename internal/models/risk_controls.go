package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskControls holds the per-project kill switch and drawdown guard state.
// Once KillSwitchActive is set the trading loop skips the project until a
// human clears it; there is no automatic reset.
type RiskControls struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProjectID string `gorm:"type:uuid;not null;uniqueIndex"`

	KillSwitchActive bool            `gorm:"not null;default:false"`
	MaxDrawdownPct   float64         `gorm:"not null;default:20"`
	PeakEquity       decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	TrippedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (RiskControls) TableName() string {
	return "risk_controls"
}
