package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/billingsettings/domain"
	"github.com/ringbill/ringbill/internal/billingsettings/repository"
	"github.com/ringbill/ringbill/internal/clock"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("billingsettings.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.Provide(),
	}
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID) ([]domain.BillingSettings, error) {
	return s.repo.ListByOrg(ctx, s.db, orgID)
}

func (s *Service) Resolve(ctx context.Context, orgID snowflake.ID, companyID *snowflake.ID) (*domain.BillingSettings, error) {
	if companyID != nil {
		settings, err := s.repo.FindByScope(ctx, s.db, orgID, companyID)
		if err != nil {
			return nil, err
		}
		if settings != nil {
			return settings, nil
		}
	}
	settings, err := s.repo.FindByScope(ctx, s.db, orgID, nil)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, domain.ErrSettingsNotFound
	}
	return settings, nil
}

func (s *Service) Upsert(ctx context.Context, orgID snowflake.ID, req domain.UpsertRequest) (*domain.BillingSettings, error) {
	now := s.clock.Now(ctx)

	var result *domain.BillingSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByScopeForUpdate(ctx, tx, orgID, req.CompanyID)
		if err != nil {
			return err
		}

		if current == nil {
			current = defaults(s.genID.Generate(), orgID, req.CompanyID, now)
			merge(current, req)
			current.UpdatedAt = now
			if err := validate(current); err != nil {
				return err
			}
			result = current
			return s.repo.Insert(ctx, tx, current)
		}

		merge(current, req)
		current.UpdatedAt = now
		if err := validate(current); err != nil {
			return err
		}
		result = current
		return s.repo.Update(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func defaults(id, orgID snowflake.ID, companyID *snowflake.ID, now time.Time) *domain.BillingSettings {
	return &domain.BillingSettings{
		ID:                  id,
		OrgID:               orgID,
		CompanyID:           companyID,
		MinDurationSeconds:  30,
		BasePriceCents:      0,
		SurgeMultiplier:     1.0,
		ExclusiveMultiplier: 1.0,
		AutoBillEnabled:     false,
		DisputeWindowHours:  72,
		MinPriceCents:       0,
		MaxPriceCents:       0,
		Timezone:            "UTC",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func merge(current *domain.BillingSettings, req domain.UpsertRequest) {
	if req.MinDurationSeconds != nil {
		current.MinDurationSeconds = *req.MinDurationSeconds
	}
	if req.BasePriceCents != nil {
		current.BasePriceCents = *req.BasePriceCents
	}
	if req.SurgeMultiplier != nil {
		current.SurgeMultiplier = *req.SurgeMultiplier
	}
	if req.ExclusiveMultiplier != nil {
		current.ExclusiveMultiplier = *req.ExclusiveMultiplier
	}
	if req.SurgeStartMinute != nil {
		current.SurgeStartMinute = req.SurgeStartMinute
	}
	if req.SurgeEndMinute != nil {
		current.SurgeEndMinute = req.SurgeEndMinute
	}
	if req.AutoBillEnabled != nil {
		current.AutoBillEnabled = *req.AutoBillEnabled
	}
	if req.DisputeWindowHours != nil {
		current.DisputeWindowHours = *req.DisputeWindowHours
	}
	if req.MinPriceCents != nil {
		current.MinPriceCents = *req.MinPriceCents
	}
	if req.MaxPriceCents != nil {
		current.MaxPriceCents = *req.MaxPriceCents
	}
	if req.Timezone != nil {
		current.Timezone = *req.Timezone
	}
}

func validate(s *domain.BillingSettings) error {
	if s.MinDurationSeconds < 0 {
		return domain.ErrInvalidDuration
	}
	if s.DisputeWindowHours < 0 {
		return domain.ErrInvalidWindow
	}
	if s.SurgeMultiplier < 0 || s.ExclusiveMultiplier < 0 {
		return domain.ErrInvalidMultiplier
	}
	if s.BasePriceCents < 0 || s.MinPriceCents < 0 || s.MaxPriceCents < 0 {
		return domain.ErrInvalidPriceBounds
	}
	if s.MaxPriceCents > 0 && s.MinPriceCents > s.MaxPriceCents {
		return domain.ErrInvalidPriceBounds
	}
	if (s.SurgeStartMinute == nil) != (s.SurgeEndMinute == nil) {
		return domain.ErrInvalidSurgeWindow
	}
	if s.SurgeStartMinute != nil {
		if *s.SurgeStartMinute < 0 || *s.SurgeStartMinute > 1439 || *s.SurgeEndMinute < 0 || *s.SurgeEndMinute > 1439 {
			return domain.ErrInvalidSurgeWindow
		}
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return domain.ErrInvalidTimezone
	}
	return nil
}
