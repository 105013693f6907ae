package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	disputedomain "github.com/ringbill/ringbill/internal/dispute/domain"
	obscontext "github.com/ringbill/ringbill/internal/observability/context"
	"github.com/ringbill/ringbill/pkg/db/pagination"
)

type createDisputeRequest struct {
	CallID      string `json:"call_id" binding:"required"`
	DisputeType string `json:"dispute_type" binding:"required"`
	Description string `json:"description"`
}

// CreateDispute godoc
//
//	@Summary	Open a dispute against a billed call
//	@Tags		disputes
//	@Accept		json
//	@Produce	json
//	@Param		Idempotency-Key	header		string					false	"Idempotency Key"
//	@Param		request			body		createDisputeRequest	true	"dispute details"
//	@Success	201				{object}	map[string]any
//	@Router		/api/billing/disputes [post]
func (h *Handler) CreateDispute(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	var req createDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequestError(c, "call_id and dispute_type are required")
		return
	}
	callID, err := snowflake.ParseString(req.CallID)
	if err != nil {
		invalidRequestError(c, "invalid call_id")
		return
	}

	dispute, err := h.disputeSvc.Create(c.Request.Context(), orgID, disputedomain.CreateRequest{
		CallID:         callID,
		DisputeType:    req.DisputeType,
		Description:    req.Description,
		IdempotencyKey: idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusCreated, dispute)
}

// ListDisputes godoc
//
//	@Summary	List disputes
//	@Tags		disputes
//	@Produce	json
//	@Param		status		query		string	false	"open or resolved"
//	@Param		company_id	query		string	false	"company filter"
//	@Param		page_token	query		string	false	"page token"
//	@Param		page_size	query		int		false	"page size"
//	@Success	200			{object}	map[string]any
//	@Router		/api/billing/disputes [get]
func (h *Handler) ListDisputes(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	var filter disputedomain.ListFilter
	if raw := c.Query("status"); raw != "" {
		status := disputedomain.Status(raw)
		if status != disputedomain.StatusOpen && status != disputedomain.StatusResolved {
			invalidRequestError(c, "invalid status")
			return
		}
		filter.Status = &status
	}
	companyID, ok := parseOptionalID(c, "company_id")
	if !ok {
		return
	}
	filter.CompanyID = companyID

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		invalidRequestError(c, "invalid paging parameters")
		return
	}

	disputes, info, err := h.disputeSvc.List(c.Request.Context(), orgID, filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, disputes, info)
}

// GetDispute godoc
//
//	@Summary	Fetch one dispute
//	@Tags		disputes
//	@Produce	json
//	@Param		id	path		string	true	"dispute id"
//	@Success	200	{object}	map[string]any
//	@Router		/api/billing/disputes/{id} [get]
func (h *Handler) GetDispute(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}
	disputeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputeSvc.Get(c.Request.Context(), orgID, disputeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, dispute)
}

type resolveDisputeRequest struct {
	Resolution        string `json:"resolution" binding:"required"`
	RefundAmountCents *int64 `json:"refund_amount_cents,omitempty"`
	Notes             string `json:"notes"`
}

// ResolveDispute godoc
//
//	@Summary	Resolve an open dispute
//	@Tags		disputes
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"dispute id"
//	@Param		request	body		resolveDisputeRequest	true	"resolution"
//	@Success	200		{object}	map[string]any
//	@Router		/api/billing/disputes/{id}/resolve [post]
func (h *Handler) ResolveDispute(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}
	disputeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequestError(c, "resolution is required")
		return
	}

	var resolvedBy snowflake.ID
	if _, actorID := obscontext.ActorFromContext(c.Request.Context()); actorID != "" {
		if id, err := snowflake.ParseString(actorID); err == nil {
			resolvedBy = id
		}
	}

	dispute, err := h.disputeSvc.Resolve(c.Request.Context(), orgID, disputeID, disputedomain.ResolveRequest{
		Resolution:        disputedomain.Resolution(req.Resolution),
		RefundAmountCents: req.RefundAmountCents,
		Notes:             req.Notes,
		ResolvedBy:        resolvedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, dispute)
}
