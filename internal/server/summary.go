package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	dashboarddomain "github.com/ringbill/ringbill/internal/billingdashboard/domain"
)

// BillingSummary godoc
//
//	@Summary	Aggregate billing figures
//	@Tags		dashboard
//	@Produce	json
//	@Param		company_id	query		string	false	"company filter"
//	@Param		from		query		string	false	"RFC 3339 lower bound (inclusive)"
//	@Param		to			query		string	false	"RFC 3339 upper bound (exclusive)"
//	@Success	200			{object}	map[string]any
//	@Router		/api/billing/summary [get]
func (h *Handler) BillingSummary(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	var filter dashboarddomain.SummaryFilter
	companyID, ok := parseOptionalID(c, "company_id")
	if !ok {
		return
	}
	filter.CompanyID = companyID

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			invalidRequestError(c, "invalid from timestamp")
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			invalidRequestError(c, "invalid to timestamp")
			return
		}
		filter.To = &to
	}

	summary, err := h.dashboardSvc.Summary(c.Request.Context(), orgID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, summary)
}
