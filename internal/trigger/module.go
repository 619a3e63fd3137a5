// Package trigger provides the outbound call trigger bounded context.
// It resolves flow, organization and contact documents, builds the
// provider payload, and starts the call.
package trigger

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/trigger/handler"
	"outreach_backend/internal/trigger/service"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module is the trigger bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the trigger module.
func NewModule(st service.Store, factory service.PayloadFactory, dial service.Dialer, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(st, factory, dial, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "trigger"
}

// Service returns the service layer for external use (the queue worker).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the trigger routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/calls/trigger", m.handler.TriggerCall)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
