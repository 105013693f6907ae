package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	disputedomain "github.com/ringbill/ringbill/internal/dispute/domain"
	"github.com/ringbill/ringbill/internal/observability/logger"
	ruledomain "github.com/ringbill/ringbill/internal/pricingrule/domain"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiError struct {
	status  int
	code    string
	message string
}

// errorTable maps domain sentinel errors onto HTTP responses. Anything not
// listed is a 500 with a generic body; the cause goes to the log, not the
// client.
var errorTable = []struct {
	err error
	api apiError
}{
	{settingsdomain.ErrSettingsNotFound, apiError{http.StatusNotFound, "billing_settings_not_found", "no billing settings configured for this organization"}},
	{settingsdomain.ErrInvalidPriceBounds, apiError{http.StatusUnprocessableEntity, "invalid_price_bounds", "min price must not exceed max price and prices must not be negative"}},
	{settingsdomain.ErrInvalidMultiplier, apiError{http.StatusUnprocessableEntity, "invalid_multiplier", "multipliers must be positive"}},
	{settingsdomain.ErrInvalidDuration, apiError{http.StatusUnprocessableEntity, "invalid_min_duration", "minimum duration must not be negative"}},
	{settingsdomain.ErrInvalidWindow, apiError{http.StatusUnprocessableEntity, "invalid_dispute_window", "dispute window must be positive"}},
	{settingsdomain.ErrInvalidTimezone, apiError{http.StatusUnprocessableEntity, "invalid_timezone", "timezone is not a valid IANA zone name"}},
	{settingsdomain.ErrInvalidSurgeWindow, apiError{http.StatusUnprocessableEntity, "invalid_surge_window", "surge window minutes must be within 0..1439 and set together"}},

	{ruledomain.ErrRuleNotFound, apiError{http.StatusNotFound, "pricing_rule_not_found", "pricing rule not found"}},
	{ruledomain.ErrInvalidRuleName, apiError{http.StatusUnprocessableEntity, "invalid_rule_name", "rule name is required"}},
	{ruledomain.ErrInvalidPrice, apiError{http.StatusUnprocessableEntity, "invalid_base_price", "base price must not be negative"}},
	{ruledomain.ErrInvalidMultiplier, apiError{http.StatusUnprocessableEntity, "invalid_multiplier", "multiplier must be positive"}},
	{ruledomain.ErrInvalidWindow, apiError{http.StatusUnprocessableEntity, "invalid_time_window", "window minutes must be within 0..1439 and set together"}},
	{ruledomain.ErrInvalidDays, apiError{http.StatusUnprocessableEntity, "invalid_days_of_week", "days of week must be within 0..6"}},
	{ruledomain.ErrInvalidField, apiError{http.StatusUnprocessableEntity, "invalid_update_field", "update contains an unknown or immutable field"}},
	{ruledomain.ErrEmptyUpdate, apiError{http.StatusUnprocessableEntity, "empty_update", "update contains no fields"}},
	{ruledomain.ErrDuplicateCode, apiError{http.StatusConflict, "duplicate_rule_code", "a rule with this name already exists"}},

	{calldomain.ErrCallNotFound, apiError{http.StatusNotFound, "call_not_found", "call not found"}},
	{ratingdomain.ErrCallNotFound, apiError{http.StatusNotFound, "call_not_found", "call not found"}},
	{ratingdomain.ErrInvalidCall, apiError{http.StatusUnprocessableEntity, "invalid_call_attributes", "call attributes are incomplete"}},

	{disputedomain.ErrDisputeNotFound, apiError{http.StatusNotFound, "dispute_not_found", "dispute not found"}},
	{disputedomain.ErrMissingDisputeType, apiError{http.StatusUnprocessableEntity, "missing_dispute_type", "dispute_type is required"}},
	{disputedomain.ErrCallNotBilled, apiError{http.StatusConflict, "call_not_billed", "only billed calls can be disputed"}},
	{disputedomain.ErrDisputeWindowClosed, apiError{http.StatusConflict, "dispute_window_closed", "the dispute window for this call has closed"}},
	{disputedomain.ErrDisputeAlreadyOpen, apiError{http.StatusConflict, "dispute_already_open", "an open dispute already exists for this call"}},
	{disputedomain.ErrDisputeAlreadyResolved, apiError{http.StatusConflict, "dispute_already_resolved", "this dispute is already resolved"}},
	{disputedomain.ErrInvalidResolution, apiError{http.StatusUnprocessableEntity, "invalid_resolution", "resolution must be approved, rejected or partial_refund"}},
	{disputedomain.ErrInvalidRefundAmount, apiError{http.StatusUnprocessableEntity, "invalid_refund_amount", "partial refunds require an amount within (0, billed price]"}},
}

// AbortWithError writes the mapped error response and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			c.AbortWithStatusJSON(entry.api.status, ErrorResponse{
				Code:    entry.api.code,
				Message: entry.api.message,
			})
			return
		}
	}

	logger.FromContext(c.Request.Context()).Error("unhandled request error", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:    "internal_error",
		Message: "something went wrong",
	})
}

func invalidRequestError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    "invalid_request",
		Message: message,
	})
}
