// Package flows provides the batch scheduling bounded context: moving a
// flow's call window and cancelling queued batches.
package flows

import (
	"outreach_backend/internal/flows/handler"
	"outreach_backend/internal/flows/service"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/scheduler"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module is the flows bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the flows module.
func NewModule(st service.Store, sched scheduler.FlowCallScheduler, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(st, sched, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "flows"
}

// RegisterRoutes mounts the flow scheduling routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/flows/reschedule", m.handler.Reschedule)
	ctx.V1.POST("/flows/cancel", m.handler.Cancel)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
