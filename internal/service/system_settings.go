package service

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"signalarchive/internal/models"
	"signalarchive/internal/repository"
)

const (
	FeaturePipeline       = "feature.pipeline"
	FeatureRetentionSweep = "feature.retention_sweep"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeaturePipeline:       true,
		FeatureRetentionSweep: true,
	}
}

// SystemSettingsService stores operator switches in the database so the
// scheduled pipeline can be paused without a redeploy.
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
		if err := s.Repo.UpsertSystemSetting(ctx, &models.SystemSetting{
			Key:       key,
			Value:     datatypes.JSON(raw),
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, def bool) bool {
	if s == nil || s.Repo == nil {
		return def
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil {
		return def
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return def
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	return s.Repo.UpsertSystemSetting(ctx, &models.SystemSetting{
		Key:       key,
		Value:     datatypes.JSON(raw),
		UpdatedAt: time.Now().UTC(),
	})
}

func (s *SystemSettingsService) List(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	return s.Repo.ListSystemSettings(ctx)
}
