package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	callrepository "github.com/ringbill/ringbill/internal/call/repository"
	"github.com/ringbill/ringbill/internal/clock"
	"github.com/ringbill/ringbill/internal/events"
	ruledomain "github.com/ringbill/ringbill/internal/pricingrule/domain"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock       clock.Clock
	callRepo    calldomain.Repository
	settingsSvc settingsdomain.Service
	ruleSvc     ruledomain.Service
	outbox      *events.Outbox
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	SettingsSvc settingsdomain.Service
	RuleSvc     ruledomain.Service
	Outbox      *events.Outbox
}

func NewService(p ServiceParam) ratingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("rating.service"),

		clock:       p.Clock,
		callRepo:    callrepository.Provide(),
		settingsSvc: p.SettingsSvc,
		ruleSvc:     p.RuleSvc,
		outbox:      p.Outbox,
	}
}

func (s *Service) ProcessCall(ctx context.Context, orgID, callID snowflake.ID, trigger ratingdomain.Trigger, force bool) (*ratingdomain.ProcessResult, error) {
	call, err := s.callRepo.FindByID(ctx, s.db, orgID, callID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, ratingdomain.ErrCallNotFound
	}

	// Idempotent reprocessing: anything past pending returns the stored
	// decision untouched. Force only recomputes a call still in billed
	// state; disputed and refunded calls are settled history.
	if call.BillingStatus != calldomain.BillingStatusPending {
		if !force || call.BillingStatus != calldomain.BillingStatusBilled {
			return storedResult(call), nil
		}
	}

	settings, err := s.settingsSvc.Resolve(ctx, orgID, call.CompanyID)
	if err != nil {
		// Includes ErrSettingsNotFound: the call must stay pending rather
		// than be silently billed with defaults.
		return nil, err
	}

	attrs := ratingdomain.AttributesFromCall(*call)
	now := s.clock.Now(ctx)

	if !isQualified(attrs, *settings) {
		if call.BillingStatus == calldomain.BillingStatusBilled {
			// A forced recompute never unwinds billing. The stored decision
			// stands even when current settings would no longer qualify the
			// call.
			return storedResult(call), nil
		}
		if err := s.callRepo.SetQualified(ctx, s.db, orgID, callID, false, now); err != nil {
			return nil, err
		}
		return &ratingdomain.ProcessResult{
			CallID:    callID,
			Qualified: false,
			Status:    calldomain.BillingStatusPending,
		}, nil
	}

	rules, err := s.ruleSvc.ListActive(ctx, orgID)
	if err != nil {
		return nil, err
	}
	rule := matchRule(attrs, rules, settings.Location())
	price := calculatePrice(attrs, rule, *settings)

	var ruleID *snowflake.ID
	if rule != nil {
		ruleID = &rule.ID
	}

	if trigger == ratingdomain.TriggerAuto && !settings.AutoBillEnabled {
		// Qualified but the tenant bills manually: record qualification,
		// leave the call pending.
		if err := s.callRepo.SetQualified(ctx, s.db, orgID, callID, true, now); err != nil {
			return nil, err
		}
		return &ratingdomain.ProcessResult{
			CallID:     callID,
			Qualified:  true,
			Status:     calldomain.BillingStatusPending,
			PriceCents: price,
			RuleID:     ruleID,
		}, nil
	}

	if force && call.BillingStatus == calldomain.BillingStatusBilled {
		return s.rebill(ctx, orgID, call, price, ruleID, now)
	}

	result := &ratingdomain.ProcessResult{
		CallID:     callID,
		Qualified:  true,
		Status:     calldomain.BillingStatusBilled,
		PriceCents: price,
		RuleID:     ruleID,
		BilledAt:   &now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.callRepo.TransitionToBilled(ctx, tx, orgID, callID, price, ruleID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			// A concurrent attempt won the pending -> billed race. The
			// stored decision is the answer.
			result = nil
			return nil
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: orgID,
			Type:  events.EventCallBilled,
			Payload: events.CallBilledPayload{
				CallID:     callID.String(),
				OrgID:      orgID.String(),
				PriceCents: price,
				RuleID:     ruleIDString(ruleID),
			}.ToMap(),
			DedupeKey: fmt.Sprintf("call_billed:%s", callID),
		})
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		current, err := s.callRepo.FindByID(ctx, s.db, orgID, callID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ratingdomain.ErrCallNotFound
		}
		return storedResult(current), nil
	}

	s.log.Info("call billed",
		zap.String("call_id", callID.String()),
		zap.Int64("price_cents", price),
		zap.String("trigger", string(trigger)),
	)
	return result, nil
}

// rebill recomputes price and rule for a call already billed. billed_at is
// preserved so the dispute window does not restart.
func (s *Service) rebill(ctx context.Context, orgID snowflake.ID, call *calldomain.CallRecord, price int64, ruleID *snowflake.ID, now time.Time) (*ratingdomain.ProcessResult, error) {
	affected, err := s.callRepo.UpdateBilledPrice(ctx, s.db, orgID, call.ID, price, ruleID, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// The call left billed state under us (dispute opened); return the
		// stored decision.
		current, err := s.callRepo.FindByID(ctx, s.db, orgID, call.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ratingdomain.ErrCallNotFound
		}
		return storedResult(current), nil
	}

	s.log.Info("call re-billed",
		zap.String("call_id", call.ID.String()),
		zap.Int64("old_price_cents", call.BillingPriceCents),
		zap.Int64("price_cents", price),
	)
	return &ratingdomain.ProcessResult{
		CallID:     call.ID,
		Qualified:  true,
		Status:     calldomain.BillingStatusBilled,
		PriceCents: price,
		RuleID:     ruleID,
		BilledAt:   call.BilledAt,
	}, nil
}

func (s *Service) PreviewPrice(ctx context.Context, orgID snowflake.ID, attrs ratingdomain.CallAttributes) (*ratingdomain.Quote, error) {
	if attrs.StartedAt.IsZero() {
		return nil, ratingdomain.ErrInvalidCall
	}

	settings, err := s.settingsSvc.Resolve(ctx, orgID, attrs.CompanyID)
	if err != nil {
		return nil, err
	}

	quote := &ratingdomain.Quote{
		Qualified: isQualified(attrs, *settings),
	}

	rules, err := s.ruleSvc.ListActive(ctx, orgID)
	if err != nil {
		return nil, err
	}
	rule := matchRule(attrs, rules, settings.Location())
	quote.PriceCents = calculatePrice(attrs, rule, *settings)
	if rule != nil {
		quote.RuleID = &rule.ID
		quote.RuleCode = rule.Code
	}
	return quote, nil
}

func storedResult(call *calldomain.CallRecord) *ratingdomain.ProcessResult {
	return &ratingdomain.ProcessResult{
		CallID:           call.ID,
		Qualified:        call.IsQualified,
		Status:           call.BillingStatus,
		PriceCents:       call.BillingPriceCents,
		RuleID:           call.RuleID,
		BilledAt:         call.BilledAt,
		AlreadyProcessed: true,
	}
}

func ruleIDString(id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
