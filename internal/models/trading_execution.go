package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingExecution is an immutable record of a simulated or real fill.
type TradingExecution struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	ProjectID  string  `gorm:"type:uuid;not null;index"`
	StrategyID *string `gorm:"type:uuid;index"`

	Symbol string `gorm:"type:varchar(20);not null;index"`
	Side   string `gorm:"type:varchar(10);not null"`

	Quantity    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Price       decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	RealizedPnL decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10);not null;default:0"`

	Mode   string `gorm:"type:varchar(10);not null"`
	Source string `gorm:"type:varchar(30);not null"`

	ExecutedAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TradingExecution) TableName() string {
	return "trading_executions"
}
