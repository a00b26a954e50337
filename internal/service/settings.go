package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"wingo/internal/config"
	"wingo/internal/models"
	"wingo/internal/outcome"
	"wingo/internal/repository"
)

const (
	SettingGameAlgorithm         = "game_algorithm"
	SettingBettingFeePercentage  = "betting_fee_percentage"
	SettingHouseProfitPercentage = "house_profit_percentage"
)

// GameSettingsService reads the runtime-tunable knobs from system_settings.
// Values are fetched fresh before every outcome decision; anything missing or
// unparseable falls back to the configured default and logs, never blocking
// settlement.
type GameSettingsService struct {
	Repo     repository.Repository
	Logger   *zap.Logger
	Defaults config.GameConfig
}

// EnsureDefaults seeds the settings rows on first boot. Existing values are
// never overwritten.
func (s *GameSettingsService) EnsureDefaults(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	defaults := map[string]any{
		SettingGameAlgorithm:         s.defaultAlgorithm(),
		SettingBettingFeePercentage:  s.Defaults.FeePercent,
		SettingHouseProfitPercentage: s.Defaults.TargetProfitPercent,
	}
	for key, value := range defaults {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(value)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "game engine setting",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *GameSettingsService) Algorithm(ctx context.Context) string {
	fallback := s.defaultAlgorithm()
	if s == nil || s.Repo == nil {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, SettingGameAlgorithm)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var name string
	if err := json.Unmarshal(item.Value, &name); err != nil {
		s.logInvalid(SettingGameAlgorithm, err)
		return fallback
	}
	switch strings.TrimSpace(name) {
	case outcome.AlgorithmFairRandom, outcome.AlgorithmPlayerFavored, outcome.AlgorithmProfitGuaranteed:
		return strings.TrimSpace(name)
	default:
		s.logInvalid(SettingGameAlgorithm, nil)
		return fallback
	}
}

func (s *GameSettingsService) FeePercent(ctx context.Context) decimal.Decimal {
	fallback := decimal.NewFromFloat(s.defaultFee())
	v, ok := s.numericSetting(ctx, SettingBettingFeePercentage)
	if !ok || v.IsNegative() {
		return fallback
	}
	return v
}

func (s *GameSettingsService) TargetProfitPercent(ctx context.Context) float64 {
	v, ok := s.numericSetting(ctx, SettingHouseProfitPercentage)
	if !ok {
		if s != nil {
			return s.Defaults.TargetProfitPercent
		}
		return 0
	}
	f, _ := v.Float64()
	return f
}

func (s *GameSettingsService) Set(ctx context.Context, key string, value json.RawMessage) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" || len(value) == 0 {
		return nil
	}
	return s.Repo.UpsertSystemSetting(ctx, &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(value),
		Description: "game engine setting",
		UpdatedAt:   time.Now().UTC(),
	})
}

func (s *GameSettingsService) List(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	return s.Repo.ListSystemSettings(ctx)
}

// numericSetting accepts both JSON numbers and numeric strings; operators
// edit these rows by hand.
func (s *GameSettingsService) numericSetting(ctx context.Context, key string) (decimal.Decimal, bool) {
	if s == nil || s.Repo == nil {
		return decimal.Zero, false
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return decimal.Zero, false
	}
	var num float64
	if err := json.Unmarshal(item.Value, &num); err == nil {
		return decimal.NewFromFloat(num), true
	}
	var str string
	if err := json.Unmarshal(item.Value, &str); err == nil {
		if d, err := decimal.NewFromString(strings.TrimSpace(str)); err == nil {
			return d, true
		}
	}
	s.logInvalid(key, nil)
	return decimal.Zero, false
}

func (s *GameSettingsService) defaultAlgorithm() string {
	if s != nil && strings.TrimSpace(s.Defaults.Algorithm) != "" {
		return strings.TrimSpace(s.Defaults.Algorithm)
	}
	return outcome.AlgorithmProfitGuaranteed
}

func (s *GameSettingsService) defaultFee() float64 {
	if s != nil && s.Defaults.FeePercent >= 0 {
		return s.Defaults.FeePercent
	}
	return 0
}

func (s *GameSettingsService) logInvalid(key string, err error) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn("invalid setting value, using default", zap.String("key", key), zap.Error(err))
}
