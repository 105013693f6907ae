package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/clock"
	"github.com/ringbill/ringbill/internal/pricingrule/domain"
	"github.com/ringbill/ringbill/internal/pricingrule/repository"
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
		log: p.Log.Named("pricingrule.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.Provide(),
	}
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID) ([]domain.PricingRule, error) {
	return s.repo.List(ctx, s.db, orgID)
}

func (s *Service) ListActive(ctx context.Context, orgID snowflake.ID) ([]domain.PricingRule, error) {
	return s.repo.ListActive(ctx, s.db, orgID)
}

func (s *Service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateRequest) (*domain.PricingRule, error) {
	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidRuleName
	}
	if req.BasePriceCents < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if req.Multiplier < 0 {
		return nil, domain.ErrInvalidMultiplier
	}
	if err := validateWindow(req.WindowStartMin, req.WindowEndMin); err != nil {
		return nil, err
	}
	days, err := validateDays(req.DaysOfWeek)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	rule := &domain.PricingRule{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		Code:           slug.Make(name),
		Name:           name,
		Category:       trimmed(req.Category),
		Region:         trimmed(req.Region),
		PostalPrefix:   trimmed(req.PostalPrefix),
		City:           trimmed(req.City),
		DaysOfWeek:     days,
		WindowStartMin: req.WindowStartMin,
		WindowEndMin:   req.WindowEndMin,
		IsEmergency:    req.IsEmergency,
		BasePriceCents: req.BasePriceCents,
		Multiplier:     req.Multiplier,
		Priority:       req.Priority,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rule.Multiplier == 0 {
		rule.Multiplier = 1.0
	}
	if idempotencyKey != "" {
		rule.IdempotencyKey = &idempotencyKey
	}

	existing, err := s.repo.FindByCode(ctx, s.db, orgID, rule.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateCode
	}

	if err := s.repo.Insert(ctx, s.db, rule); err != nil {
		if idempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			prior, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
			if findErr == nil && prior != nil {
				return prior, nil
			}
		}
		return nil, err
	}
	return rule, nil
}

func (s *Service) Update(ctx context.Context, orgID, ruleID snowflake.ID, fields map[string]any) (*domain.PricingRule, error) {
	diff, err := domain.BuildUpdate(fields)
	if err != nil {
		return nil, err
	}

	affected, err := s.repo.ApplyDiff(ctx, s.db, orgID, ruleID, diff)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrRuleNotFound
	}
	return s.repo.FindByID(ctx, s.db, orgID, ruleID)
}

func (s *Service) Delete(ctx context.Context, orgID, ruleID snowflake.ID) error {
	affected, err := s.repo.Retire(ctx, s.db, orgID, ruleID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func validateWindow(start, end *int) error {
	if (start == nil) != (end == nil) {
		return domain.ErrInvalidWindow
	}
	if start == nil {
		return nil
	}
	if *start < 0 || *start > 1439 || *end < 0 || *end > 1439 {
		return domain.ErrInvalidWindow
	}
	return nil
}

func validateDays(days []int64) (pq.Int64Array, error) {
	if len(days) == 0 {
		return nil, nil
	}
	out := make(pq.Int64Array, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, domain.ErrInvalidDays
		}
		out = append(out, d)
	}
	return out, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
