package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/zeitnachricht/internal/model"
)

// SessionGuard is a mock of service.SessionGuard.
type SessionGuard struct {
	mock.Mock
}

func (m *SessionGuard) User() *model.UserProfile {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*model.UserProfile)
}

func (m *SessionGuard) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *SessionGuard) Check(err error) error {
	args := m.Called(err)
	return args.Error(0)
}

// NewSessionGuard creates a SessionGuard mock that asserts its expectations on cleanup.
func NewSessionGuard(t interface {
	mock.TestingT
	Cleanup(func())
}) *SessionGuard {
	m := &SessionGuard{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
