package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
	"github.com/ringbill/ringbill/pkg/db/pagination"
)

// ListCalls godoc
//
//	@Summary	List call records
//	@Tags		calls
//	@Produce	json
//	@Param		status		query		string	false	"billing status filter"
//	@Param		company_id	query		string	false	"company filter"
//	@Param		qualified	query		bool	false	"qualification filter"
//	@Param		page_token	query		string	false	"page token"
//	@Param		page_size	query		int		false	"page size"
//	@Success	200			{object}	map[string]any
//	@Router		/api/billing/calls [get]
func (h *Handler) ListCalls(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	var filter calldomain.ListFilter
	if raw := c.Query("status"); raw != "" {
		status := calldomain.BillingStatus(raw)
		switch status {
		case calldomain.BillingStatusPending, calldomain.BillingStatusBilled,
			calldomain.BillingStatusDisputed, calldomain.BillingStatusRefunded:
			filter.Status = &status
		default:
			invalidRequestError(c, "invalid status")
			return
		}
	}
	companyID, ok := parseOptionalID(c, "company_id")
	if !ok {
		return
	}
	filter.CompanyID = companyID
	if raw := c.Query("qualified"); raw != "" {
		qualified := raw == "true"
		filter.Qualified = &qualified
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		invalidRequestError(c, "invalid paging parameters")
		return
	}

	calls, err := h.callRepo.List(c.Request.Context(), h.db, orgID, filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	info := pagination.NewPageInfo(page, len(calls))
	respondList(c, calls, &info)
}

// GetCall godoc
//
//	@Summary	Fetch one call record
//	@Tags		calls
//	@Produce	json
//	@Param		id	path		string	true	"call id"
//	@Success	200	{object}	map[string]any
//	@Router		/api/billing/calls/{id} [get]
func (h *Handler) GetCall(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}
	callID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	call, err := h.callRepo.FindByID(c.Request.Context(), h.db, orgID, callID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if call == nil {
		AbortWithError(c, calldomain.ErrCallNotFound)
		return
	}
	respondData(c, http.StatusOK, call)
}

type processCallRequest struct {
	Force bool `json:"force"`
}

// ProcessCall godoc
//
//	@Summary	Qualify and bill one call
//	@Tags		calls
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"call id"
//	@Param		request	body		processCallRequest	false	"processing options"
//	@Success	200		{object}	map[string]any
//	@Router		/api/billing/calls/{id}/process [post]
func (h *Handler) ProcessCall(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}
	callID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req processCallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequestError(c, "invalid request body")
			return
		}
	}

	result, err := h.ratingSvc.ProcessCall(c.Request.Context(), orgID, callID, ratingdomain.TriggerManual, req.Force)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// PreviewPrice godoc
//
//	@Summary	Price a hypothetical call
//	@Tags		calls
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ratingdomain.CallAttributes	true	"call attributes"
//	@Success	200		{object}	map[string]any
//	@Router		/api/billing/calls/calculate-price [post]
func (h *Handler) PreviewPrice(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	var attrs ratingdomain.CallAttributes
	if err := c.ShouldBindJSON(&attrs); err != nil {
		invalidRequestError(c, "invalid request body")
		return
	}

	quote, err := h.ratingSvc.PreviewPrice(c.Request.Context(), orgID, attrs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, quote)
}
