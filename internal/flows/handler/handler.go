// Package handler exposes the flow batch scheduling endpoints.
package handler

import (
	"net/http"
	"time"

	"outreach_backend/internal/flows/service"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// RescheduleFlowRequest is the request body for rescheduling a flow.
type RescheduleFlowRequest struct {
	FlowID           string    `json:"flow_id" validate:"required"`
	NewScheduledTime time.Time `json:"new_scheduled_time" validate:"required"`
}

// CancelFlowRequest is the request body for cancelling a flow.
type CancelFlowRequest struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// Handler handles flow scheduling HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new flows handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// Reschedule moves a flow's call batch to a new hour.
// POST /api/v1/flows/reschedule
func (h *Handler) Reschedule(c *gin.Context) {
	var req RescheduleFlowRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Reschedule(c.Request.Context(), service.RescheduleRequest{
		FlowID:           req.FlowID,
		NewScheduledTime: req.NewScheduledTime,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cancel removes a flow's queued calls.
// POST /api/v1/flows/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelFlowRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), req.FlowID)
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
