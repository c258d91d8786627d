package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/testutil"
	"github.com/dtroode/zeitnachricht/internal/view"
)

type sessionSource struct {
	snapshot model.Session
	observer func(model.Session)
}

func (s *sessionSource) Snapshot() model.Session { return s.snapshot }

func (s *sessionSource) Subscribe(fn func(model.Session)) func() {
	s.observer = fn
	return func() { s.observer = nil }
}

func (s *sessionSource) publish(snap model.Session) {
	s.snapshot = snap
	if s.observer != nil {
		s.observer(snap)
	}
}

func sessionStatus(t *testing.T, h *Health) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: SessionService})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_Report(t *testing.T) {
	t.Parallel()

	h := NewHealth(testutil.MakeNoopLogger())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, sessionStatus(t, h))

	tests := []struct {
		state view.State
		want  healthpb.HealthCheckResponse_ServingStatus
	}{
		{state: view.StateAuthenticated, want: healthpb.HealthCheckResponse_SERVING},
		{state: view.StateUnauthenticated, want: healthpb.HealthCheckResponse_NOT_SERVING},
		{state: view.StateRestoring, want: healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		h.Report(tt.state)
		assert.Equal(t, tt.want, sessionStatus(t, h), tt.state.String())
	}

	resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestHealth_Follow(t *testing.T) {
	t.Parallel()

	src := &sessionSource{snapshot: model.Session{Token: "t", User: &model.UserProfile{ID: "1"}}}
	router := view.NewRouter(src, testutil.MakeNoopLogger())
	defer router.Close()

	h := NewHealth(testutil.MakeNoopLogger())
	h.Follow(router)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, sessionStatus(t, h))

	src.publish(model.Session{})
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, sessionStatus(t, h))
}

func TestHealth_Shutdown(t *testing.T) {
	t.Parallel()

	h := NewHealth(testutil.MakeNoopLogger())
	h.Shutdown()
	h.Report(view.StateAuthenticated)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, sessionStatus(t, h))
}
