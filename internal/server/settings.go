package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	settingsdomain "github.com/ringbill/ringbill/internal/billingsettings/domain"
)

// ListBillingSettings godoc
//
//	@Summary	List billing settings
//	@Tags		billing-settings
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/billing/settings [get]
func (h *Handler) ListBillingSettings(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	settings, err := h.settingsSvc.List(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, settings, nil)
}

// GetEffectiveSettings godoc
//
//	@Summary	Resolve effective billing settings
//	@Tags		billing-settings
//	@Produce	json
//	@Param		company_id	query		string	false	"company override to resolve"
//	@Success	200			{object}	map[string]any
//	@Router		/api/billing/settings/effective [get]
func (h *Handler) GetEffectiveSettings(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}
	companyID, ok := parseOptionalID(c, "company_id")
	if !ok {
		return
	}

	settings, err := h.settingsSvc.Resolve(c.Request.Context(), orgID, companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, settings)
}

// UpsertBillingSettings godoc
//
//	@Summary	Create or update billing settings
//	@Tags		billing-settings
//	@Accept		json
//	@Produce	json
//	@Param		request	body		settingsdomain.UpsertRequest	true	"fields to merge"
//	@Success	200		{object}	map[string]any
//	@Router		/api/billing/settings [put]
func (h *Handler) UpsertBillingSettings(c *gin.Context) {
	orgID, ok := mustOrgID(c)
	if !ok {
		return
	}

	var req settingsdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequestError(c, "invalid request body")
		return
	}

	settings, err := h.settingsSvc.Upsert(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, http.StatusOK, settings)
}
