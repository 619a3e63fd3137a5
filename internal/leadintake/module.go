// Package leadintake provides the lead email bounded context: forwarded
// lead notification emails become contacts attached to a Convert flow.
package leadintake

import (
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/leadintake/extract"
	"outreach_backend/internal/leadintake/handler"
	"outreach_backend/internal/leadintake/service"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module is the lead intake bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the lead intake module.
func NewModule(st service.Store, ex extract.Extractor, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(st, ex, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leadintake"
}

// RegisterRoutes mounts the lead intake routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/leads/email", m.handler.IngestEmail)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
