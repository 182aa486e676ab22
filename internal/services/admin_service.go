// internal/services/admin_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

type settingsInvalidator interface {
	Invalidate(ctx context.Context, category, key string) error
}

// AdminService manages platform settings and operator views.
type AdminService struct {
	store          repositories.Store
	audit          *AuditService
	cache          settingsInvalidator
	notifications  *NotificationService
	payouts        *PayoutService
	defaultPercent decimal.Decimal
}

func NewAdminService(store repositories.Store, audit *AuditService, notifications *NotificationService, payouts *PayoutService, defaultPercent decimal.Decimal) *AdminService {
	return &AdminService{
		store:          store,
		audit:          audit,
		notifications:  notifications,
		payouts:        payouts,
		defaultPercent: defaultPercent,
	}
}

// WithSettingsCache makes setting updates drop the cached copy.
func (s *AdminService) WithSettingsCache(cache settingsInvalidator) *AdminService {
	s.cache = cache
	return s
}

type PlatformFeeUpdate struct {
	Percent decimal.Decimal `json:"percent"`
}

// EnsureDefaults writes the configured platform fee when no setting exists yet.
func (s *AdminService) EnsureDefaults(ctx context.Context) error {
	_, err := s.store.GetSetting(ctx, models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to read platform settings: %w", err)
	}

	return s.store.WithinTransaction(ctx, func(tx repositories.Tx) error {
		return tx.UpsertSetting(&models.PlatformSetting{
			Category:    models.SettingCategoryPlatform,
			Key:         models.SettingPlatformFeePercent,
			Value:       models.JSONB{"value": s.defaultPercent.String()},
			DataType:    "decimal",
			Description: "Default seller fee percentage when no subscription applies",
		})
	})
}

// GetPlatformFeePercent returns the stored platform fee, or the configured
// default when none is stored.
func (s *AdminService) GetPlatformFeePercent(ctx context.Context) (decimal.Decimal, error) {
	setting, err := s.store.GetSetting(ctx, models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
	if errors.Is(err, repositories.ErrNotFound) {
		return s.defaultPercent, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read platform fee: %w", err)
	}
	raw, ok := setting.StringValue()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: platform fee setting is not a number", ErrInvalidFeeInput)
	}
	percent, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidFeeInput, err)
	}
	return percent, nil
}

// UpdatePlatformFeePercent changes the platform-wide default fee. Quotes made
// after this returns use the new value.
func (s *AdminService) UpdatePlatformFeePercent(ctx context.Context, percent decimal.Decimal, adminID uuid.UUID) (*models.PlatformSetting, error) {
	if percent.IsNegative() || percent.GreaterThanOrEqual(hundred) {
		return nil, fmt.Errorf("%w: percent must be in [0, 100)", ErrInvalidFeeInput)
	}

	var setting *models.PlatformSetting
	err := s.store.WithinTransaction(ctx, func(tx repositories.Tx) error {
		var oldValue interface{}
		current, err := tx.GetSetting(models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
		switch {
		case err == nil:
			oldValue = current.Value["value"]
			setting = current
		case errors.Is(err, repositories.ErrNotFound):
			setting = &models.PlatformSetting{
				Category:    models.SettingCategoryPlatform,
				Key:         models.SettingPlatformFeePercent,
				Description: "Default seller fee percentage when no subscription applies",
			}
		default:
			return fmt.Errorf("failed to read setting: %w", err)
		}

		setting.Value = models.JSONB{"value": percent.String()}
		setting.DataType = "decimal"
		setting.UpdatedBy = &adminID
		if err := tx.UpsertSetting(setting); err != nil {
			return fmt.Errorf("failed to update setting: %w", err)
		}

		return s.audit.Record(tx, EntitySetting, setting.ID, UserActor(adminID), ActionUpdateSetting, models.JSONB{
			"key":  setting.Key,
			"from": oldValue,
			"to":   percent.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, models.SettingCategoryPlatform, models.SettingPlatformFeePercent); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate cached platform fee")
		}
	}

	logrus.WithFields(logrus.Fields{
		"admin_id": adminID,
		"percent":  percent.String(),
	}).Info("Platform fee updated")

	return setting, nil
}

func (s *AdminService) NotificationStats() NotificationStats {
	if s.notifications == nil {
		return NotificationStats{}
	}
	return s.notifications.Stats()
}

// RetryPendingPayouts re-submits payouts stuck in PENDING.
func (s *AdminService) RetryPendingPayouts(ctx context.Context, limit int) (int, error) {
	if s.payouts == nil {
		return 0, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.payouts.RetryPending(ctx, limit)
}

// ListAudit returns the audit trail of one entity, for staff.
func (s *AdminService) ListAudit(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEntry, error) {
	return s.audit.List(ctx, entityType, entityID)
}
