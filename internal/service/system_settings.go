package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"venture/internal/models"
	"venture/internal/repository"
)

const (
	FeaturePhaseMonitor = "feature.phase_monitor"
	FeatureTradingLoop  = "feature.trading_loop"
	FeatureCEOReview    = "feature.ceo_review"
	FeatureAlerts       = "feature.alerts"
	FeatureStrategies   = "feature.strategies"
	FeatureLiveOrders   = "feature.live_orders"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeaturePhaseMonitor: true,
		FeatureTradingLoop:  true,
		FeatureCEOReview:    false,
		FeatureAlerts:       true,
		FeatureStrategies:   true,
		FeatureLiveOrders:   false, // paper fills only until flipped on in DB
	}
}

type SystemSettingsService struct {
	Repo repository.Repository
}

func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) Set(ctx context.Context, key string, value any, description string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.Repo.UpsertSystemSetting(ctx, &models.SystemSetting{
		Key:         strings.TrimSpace(key),
		Value:       datatypes.JSON(raw),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
