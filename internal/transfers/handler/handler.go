// Package handler exposes the live transfer intake endpoint.
package handler

import (
	"net/http"

	"outreach_backend/internal/transfers/service"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// CreateTransferRequest is the request body for a live transfer.
type CreateTransferRequest struct {
	From           string `json:"from" validate:"required"`
	To             string `json:"to" validate:"required"`
	TransferNumber string `json:"transfer_number" validate:"required"`
	ReasonSay      string `json:"reason_say"`
	FromName       string `json:"from_name"`
	OrganizationID string `json:"organization_id"`
}

// Handler handles live transfer HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new transfers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// CreateTransfer records a live transfer, returning 201 for a new record
// and 200 when the delivery was a duplicate.
// POST /api/v1/transfers
func (h *Handler) CreateTransfer(c *gin.Context) {
	var req CreateTransferRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Create(c.Request.Context(), service.CreateRequest{
		From:           req.From,
		To:             req.To,
		TransferNumber: req.TransferNumber,
		ReasonSay:      req.ReasonSay,
		FromName:       req.FromName,
		OrganizationID: req.OrganizationID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
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
