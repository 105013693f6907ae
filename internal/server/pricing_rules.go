package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ruledomain "github.com/ringbill/ringbill/internal/pricingrule/domain"
)

// ListPricingRules godoc
//
//	@Summary	List pricing rules
//	@Tags		pricing-rules
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/billing/pricing-rules [get]
func (h *Handler) ListPricingRules(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	rules, err := h.ruleSvc.List(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, rules, nil)
}

// CreatePricingRule godoc
//
//	@Summary	Create a pricing rule
//	@Tags		pricing-rules
//	@Accept		json
//	@Produce	json
//	@Param		Idempotency-Key	header		string						false	"Idempotency Key"
//	@Param		request			body		ruledomain.CreateRequest	true	"rule definition"
//	@Success	201				{object}	map[string]any
//	@Router		/api/billing/pricing-rules [post]
func (h *Handler) CreatePricingRule(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	var req ruledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequestError(c, "invalid request body")
		return
	}
	req.IdempotencyKey = idempotencyKeyFromHeader(c)

	rule, err := h.ruleSvc.Create(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusCreated, rule)
}

// UpdatePricingRule godoc
//
//	@Summary	Partially update a pricing rule
//	@Tags		pricing-rules
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"rule id"
//	@Param		request	body		map[string]any	true	"fields to change"
//	@Success	200		{object}	map[string]any
//	@Router		/api/billing/pricing-rules/{id} [patch]
func (h *Handler) UpdatePricingRule(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}
	ruleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		invalidRequestError(c, "invalid request body")
		return
	}

	rule, err := h.ruleSvc.Update(c.Request.Context(), orgID, ruleID, fields)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, rule)
}

// DeletePricingRule godoc
//
//	@Summary	Retire a pricing rule
//	@Tags		pricing-rules
//	@Param		id	path	string	true	"rule id"
//	@Success	204
//	@Router		/api/billing/pricing-rules/{id} [delete]
func (h *Handler) DeletePricingRule(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}
	ruleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.ruleSvc.Delete(c.Request.Context(), orgID, ruleID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
