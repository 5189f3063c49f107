package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PortfolioSnapshot is the latest-known broker state for a project: one row
// per project, overwritten on every sync. It is not a time series.
type PortfolioSnapshot struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProjectID string `gorm:"type:uuid;not null;uniqueIndex"`

	Equity        decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Cash          decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	DayPnL        decimal.Decimal `gorm:"column:day_pnl;type:numeric(30,10);not null;default:0"`
	UnrealizedPnL decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(30,10);not null;default:0"`

	Positions datatypes.JSON `gorm:"type:jsonb"`

	SyncedAt  time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}
