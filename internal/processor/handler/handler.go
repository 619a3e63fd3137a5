// Package handler exposes the call-completion webhook endpoint.
package handler

import (
	"net/http"

	"outreach_backend/internal/processor/service"
	"outreach_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const errInvalidRequest = "invalid request body"

// Handler handles provider webhook HTTP requests.
type Handler struct {
	service *service.Service
}

// New creates a new processor handler.
func New(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// CallWebhook receives the provider's call-completion report.
// POST /api/v1/calls/webhook
func (h *Handler) CallWebhook(c *gin.Context) {
	var req service.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if req.CallID == "" {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, "call_id is required")
		return
	}

	result, err := h.service.Process(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, result)
}
