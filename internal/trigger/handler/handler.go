// Package handler exposes the call trigger endpoint.
package handler

import (
	"net/http"

	"outreach_backend/internal/trigger/service"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// TriggerCallRequest is the request body for triggering an outbound call.
type TriggerCallRequest struct {
	FlowID         string `json:"flow_id" validate:"required"`
	ContactID      string `json:"contact_id" validate:"required"`
	OrganizationID string `json:"organization_id" validate:"required"`
	Test           bool   `json:"test"`
}

// Handler handles call trigger HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new trigger handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// TriggerCall starts an outbound call for a contact in a flow.
// POST /api/v1/calls/trigger
func (h *Handler) TriggerCall(c *gin.Context) {
	var req TriggerCallRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Trigger(c.Request.Context(), service.TriggerRequest{
		FlowID:         req.FlowID,
		ContactID:      req.ContactID,
		OrganizationID: req.OrganizationID,
		Test:           req.Test,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
