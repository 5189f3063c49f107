package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TradingStrategy is a per-project automation rule (dca, grid or momentum).
// LastExecutedAt is the interval gate; it is stamped through a conditional
// update so overlapping ticks cannot double-fire a strategy.
type TradingStrategy struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	ProjectID string `gorm:"type:uuid;not null;index"`

	Name         string `gorm:"type:varchar(100);not null"`
	StrategyType string `gorm:"type:varchar(20);not null;index"`
	Symbol       string `gorm:"type:varchar(20);not null"`

	AmountUSD     decimal.Decimal `gorm:"column:amount_usd;type:numeric(30,10);not null;default:0"`
	IntervalHours int             `gorm:"not null;default:24"`
	Params        datatypes.JSON  `gorm:"type:jsonb"`

	IsActive bool   `gorm:"not null;default:false;index"`
	Mode     string `gorm:"type:varchar(10);not null;default:'paper'"`

	LastExecutedAt *time.Time `gorm:"type:timestamptz"`
	TotalTrades    int        `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TradingStrategy) TableName() string {
	return "trading_strategies"
}
