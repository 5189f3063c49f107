package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project is a business/trading initiative owned by a user. The phase worker
// moves CurrentPhase forward; the trading loop maintains Capital, TotalPnL and
// LastSyncAt.
type Project struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	OwnerUserID string `gorm:"type:uuid;not null;index"`
	Name        string `gorm:"type:varchar(200);not null"`
	Industry    string `gorm:"type:varchar(100)"`
	Exchange    string `gorm:"type:varchar(50)"`

	Mode string `gorm:"type:varchar(10);not null;default:'paper'"`

	Capital  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	TotalPnL decimal.Decimal `gorm:"column:total_pnl;type:numeric(30,10);not null;default:0"`

	AutonomousMode bool   `gorm:"not null;default:false;index"`
	CurrentPhase   int    `gorm:"not null;default:1"`
	Status         string `gorm:"type:varchar(20);not null;default:'active';index"`

	LastSyncAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Project) TableName() string {
	return "projects"
}
