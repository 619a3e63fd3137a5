// Package processor provides the call-completion bounded context. It
// receives the provider's webhook, classifies the outcome, extracts
// insights, and settles the contact's flow state.
package processor

import (
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/llm"
	"outreach_backend/internal/processor/handler"
	"outreach_backend/internal/processor/service"
	"outreach_backend/platform/logger"
)

// Module is the processor bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the processor module.
func NewModule(st service.Store, analyzer llm.Analyzer, bus events.Bus, log *logger.Logger) *Module {
	svc := service.New(st, analyzer, bus, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "processor"
}

// RegisterRoutes mounts the webhook route.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/calls/webhook", m.handler.CallWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
