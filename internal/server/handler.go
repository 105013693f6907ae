package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dashboarddomain "github.com/ringbill/ringbill/internal/billingdashboard/domain"
	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	disputedomain "github.com/ringbill/ringbill/internal/dispute/domain"
	"github.com/ringbill/ringbill/internal/orgcontext"
	ruledomain "github.com/ringbill/ringbill/internal/pricingrule/domain"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
)

// Handler serves the billing API.
type Handler struct {
	db  *gorm.DB
	log *zap.Logger

	callRepo     calldomain.Repository
	settingsSvc  settingsdomain.Service
	ruleSvc      ruledomain.Service
	ratingSvc    ratingdomain.Service
	disputeSvc   disputedomain.Service
	dashboardSvc dashboarddomain.Service
}

type HandlerParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	CallRepo     calldomain.Repository
	SettingsSvc  settingsdomain.Service
	RuleSvc      ruledomain.Service
	RatingSvc    ratingdomain.Service
	DisputeSvc   disputedomain.Service
	DashboardSvc dashboarddomain.Service
}

func NewHandler(p HandlerParam) *Handler {
	return &Handler{
		db:  p.DB,
		log: p.Log.Named("server"),

		callRepo:     p.CallRepo,
		settingsSvc:  p.SettingsSvc,
		ruleSvc:      p.RuleSvc,
		ratingSvc:    p.RatingSvc,
		disputeSvc:   p.DisputeSvc,
		dashboardSvc: p.DashboardSvc,
	}
}

// mustOrgID returns the authenticated org. Routes behind APIKeyAuth always
// carry one; the guard covers misconfigured route wiring.
func mustOrgID(c *gin.Context) (snowflake.ID, bool) {
	orgID, ok := orgcontext.FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "unauthorized",
			Message: "missing organization context",
		})
		return 0, false
	}
	return orgID, true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		invalidRequestError(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// parseOptionalID parses an optional snowflake query parameter.
func parseOptionalID(c *gin.Context, name string) (*snowflake.ID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		invalidRequestError(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}
