// Package handler exposes the lead email intake endpoint.
package handler

import (
	"net/http"

	"outreach_backend/internal/leadintake/service"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// IngestLeadRequest is the request body for a forwarded lead email.
type IngestLeadRequest struct {
	EmailBody   string `json:"email_body" validate:"required"`
	ClientEmail string `json:"client_email" validate:"required,email"`
}

// Handler handles lead intake HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new lead intake handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// IngestEmail processes a forwarded lead email.
// POST /api/v1/leads/email
func (h *Handler) IngestEmail(c *gin.Context) {
	var req IngestLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), service.IngestRequest{
		EmailBody:   req.EmailBody,
		ClientEmail: req.ClientEmail,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
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
