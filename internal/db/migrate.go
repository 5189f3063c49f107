package db

import (
	"venture/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Project{},
		&models.Phase{},
		&models.Deliverable{},
		&models.Agent{},
		&models.AgentActivity{},
		&models.TradingStrategy{},
		&models.TradingExecution{},
		&models.RiskControls{},
		&models.PortfolioSnapshot{},
		&models.Alert{},
		&models.Notification{},
		&models.SystemSetting{},
	)
}
