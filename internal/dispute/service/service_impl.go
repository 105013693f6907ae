package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	callrepository "github.com/ringbill/ringbill/internal/call/repository"
	"github.com/ringbill/ringbill/internal/clock"
	"github.com/ringbill/ringbill/internal/dispute/domain"
	"github.com/ringbill/ringbill/internal/dispute/repository"
	"github.com/ringbill/ringbill/internal/events"
	"github.com/ringbill/ringbill/pkg/db/pagination"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	callRepo    calldomain.Repository
	settingsSvc settingsdomain.Service
	outbox      *events.Outbox
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	SettingsSvc settingsdomain.Service
	Outbox      *events.Outbox
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("dispute.service"),

		genID:       p.GenID,
		clock:       p.Clock,
		repo:        repository.Provide(),
		callRepo:    callrepository.Provide(),
		settingsSvc: p.SettingsSvc,
		outbox:      p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateRequest) (*domain.Dispute, error) {
	if strings.TrimSpace(req.DisputeType) == "" {
		return nil, domain.ErrMissingDisputeType
	}

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

	now := s.clock.Now(ctx)
	dispute := &domain.Dispute{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		CallID:      req.CallID,
		Reference:   newReference(now),
		DisputeType: strings.TrimSpace(req.DisputeType),
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusOpen,
		CreatedAt:   now,
	}
	if idempotencyKey != "" {
		dispute.IdempotencyKey = &idempotencyKey
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		call, err := s.callRepo.FindByIDForUpdate(ctx, tx, orgID, req.CallID)
		if err != nil {
			return err
		}
		if call == nil {
			return calldomain.ErrCallNotFound
		}
		switch call.BillingStatus {
		case calldomain.BillingStatusBilled:
		case calldomain.BillingStatusDisputed:
			return domain.ErrDisputeAlreadyOpen
		default:
			return domain.ErrCallNotBilled
		}
		if call.BilledAt == nil {
			return domain.ErrCallNotBilled
		}

		settings, err := s.settingsSvc.Resolve(ctx, orgID, call.CompanyID)
		if err != nil {
			return err
		}

		// The window boundary is inclusive: a dispute filed exactly at
		// billed_at + window is still accepted.
		deadline := call.BilledAt.Add(time.Duration(settings.DisputeWindowHours) * time.Hour)
		if now.After(deadline) {
			return domain.ErrDisputeWindowClosed
		}

		open, err := s.repo.FindOpenByCallID(ctx, tx, orgID, req.CallID)
		if err != nil {
			return err
		}
		if open != nil {
			return domain.ErrDisputeAlreadyOpen
		}

		dispute.CompanyID = call.CompanyID
		if err := s.repo.Insert(ctx, tx, dispute); err != nil {
			return err
		}

		affected, err := s.callRepo.TransitionStatus(ctx, tx, orgID, req.CallID, calldomain.BillingStatusBilled, calldomain.BillingStatusDisputed, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrDisputeAlreadyOpen
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: orgID,
			Type:  events.EventDisputeOpened,
			Payload: events.DisputePayload{
				DisputeID: dispute.ID.String(),
				Reference: dispute.Reference,
				CallID:    req.CallID.String(),
			}.ToMap(),
			DedupeKey: fmt.Sprintf("dispute_opened:%s", dispute.ID),
		})
	})
	if err != nil {
		if idempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			// Two concurrent retries with the same key; the other one won.
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.log.Info("dispute opened",
		zap.String("dispute_id", dispute.ID.String()),
		zap.String("reference", dispute.Reference),
		zap.String("call_id", req.CallID.String()),
	)
	return dispute, nil
}

func (s *Service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.Dispute, error) {
	dispute, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, domain.ErrDisputeNotFound
	}
	return dispute, nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.Dispute, *pagination.PageInfo, error) {
	disputes, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return nil, nil, err
	}
	info := pagination.NewPageInfo(page, len(disputes))
	return disputes, &info, nil
}

func (s *Service) Resolve(ctx context.Context, orgID, id snowflake.ID, req domain.ResolveRequest) (*domain.Dispute, error) {
	if !req.Resolution.Valid() {
		return nil, domain.ErrInvalidResolution
	}

	now := s.clock.Now(ctx)
	var resolved *domain.Dispute

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dispute, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if dispute == nil {
			return domain.ErrDisputeNotFound
		}
		if dispute.Status == domain.StatusResolved {
			return domain.ErrDisputeAlreadyResolved
		}

		call, err := s.callRepo.FindByIDForUpdate(ctx, tx, orgID, dispute.CallID)
		if err != nil {
			return err
		}
		if call == nil {
			return calldomain.ErrCallNotFound
		}

		refund, err := refundAmount(req, call.BillingPriceCents)
		if err != nil {
			return err
		}

		affected, err := s.repo.MarkResolved(ctx, tx, orgID, id, req.Resolution, refund, req.Notes, req.ResolvedBy, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrDisputeAlreadyResolved
		}

		target := calldomain.BillingStatusRefunded
		if req.Resolution == domain.ResolutionRejected {
			target = calldomain.BillingStatusBilled
		}
		if _, err := s.callRepo.TransitionStatus(ctx, tx, orgID, dispute.CallID, calldomain.BillingStatusDisputed, target, now); err != nil {
			return err
		}

		payload := events.DisputePayload{
			DisputeID:  dispute.ID.String(),
			Reference:  dispute.Reference,
			CallID:     dispute.CallID.String(),
			Resolution: string(req.Resolution),
		}
		if refund != nil {
			payload.RefundAmountCents = *refund
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID:     orgID,
			Type:      events.EventDisputeResolved,
			Payload:   payload.ToMap(),
			DedupeKey: fmt.Sprintf("dispute_resolved:%s", dispute.ID),
		}); err != nil {
			return err
		}

		dispute.Status = domain.StatusResolved
		dispute.Resolution = &req.Resolution
		dispute.RefundAmountCents = refund
		if req.Notes != "" {
			notes := req.Notes
			dispute.ResolutionNotes = &notes
		}
		dispute.ResolvedBy = &req.ResolvedBy
		dispute.ResolvedAt = &now
		resolved = dispute
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("dispute resolved",
		zap.String("dispute_id", resolved.ID.String()),
		zap.String("resolution", string(req.Resolution)),
	)
	return resolved, nil
}

// refundAmount settles the refund for a resolution. Approved refunds the full
// billed price, rejected refunds nothing, partial_refund requires an explicit
// amount within (0, billed price].
func refundAmount(req domain.ResolveRequest, billedCents int64) (*int64, error) {
	switch req.Resolution {
	case domain.ResolutionApproved:
		amount := billedCents
		return &amount, nil
	case domain.ResolutionRejected:
		return nil, nil
	case domain.ResolutionPartialRefund:
		if req.RefundAmountCents == nil {
			return nil, domain.ErrInvalidRefundAmount
		}
		amount := *req.RefundAmountCents
		if amount <= 0 || amount > billedCents {
			return nil, domain.ErrInvalidRefundAmount
		}
		return &amount, nil
	default:
		return nil, domain.ErrInvalidResolution
	}
}

func newReference(at time.Time) string {
	return "DSP-" + ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}
