package handler

import (
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/view"
)

// SessionService is the health service name that reports whether a user is logged in.
const SessionService = "zeitnachricht.Session"

// Health exposes the router state through the standard gRPC health service.
// The overall server status ("") is always SERVING; SessionService is SERVING
// only while the router is authenticated.
type Health struct {
	server *health.Server
	logger *logger.Logger
}

// NewHealth creates a Health handler with SessionService NOT_SERVING.
func NewHealth(logger *logger.Logger) *Health {
	h := &Health{server: health.NewServer(), logger: logger}
	h.server.SetServingStatus(SessionService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server returns the health service implementation to register.
func (h *Health) Server() healthpb.HealthServer {
	return h.server
}

// Report updates SessionService from a router state.
func (h *Health) Report(state view.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == view.StateAuthenticated {
		status = healthpb.HealthCheckResponse_SERVING
	}

	h.logger.Debug("Health handler: session status changed",
		"state", state.String(),
		"status", status.String())
	h.server.SetServingStatus(SessionService, status)
}

// Follow reports the current router state and every later change.
func (h *Health) Follow(r *view.Router) {
	r.OnChange(h.Report)
	h.Report(r.State())
}

// Shutdown sets every service to NOT_SERVING and ignores later updates.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}
