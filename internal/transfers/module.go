// Package transfers provides the live transfer bounded context: intake
// of warm-transfer requests raised mid-call.
package transfers

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/transfers/handler"
	"outreach_backend/internal/transfers/service"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module is the transfers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the transfers module.
func NewModule(st service.Store, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(st, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "transfers"
}

// RegisterRoutes mounts the transfer routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/transfers", m.handler.CreateTransfer)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
