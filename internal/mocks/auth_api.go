package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/zeitnachricht/internal/model"
)

// AuthAPI is a mock of service.AuthAPI.
type AuthAPI struct {
	mock.Mock
}

func (m *AuthAPI) Me(ctx context.Context) (model.UserProfile, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.UserProfile), args.Error(1)
}

func (m *AuthAPI) Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(model.AuthResult), args.Error(1)
}

func (m *AuthAPI) Register(ctx context.Context, reg model.Registration) (model.AuthResult, error) {
	args := m.Called(ctx, reg)
	return args.Get(0).(model.AuthResult), args.Error(1)
}

// NewAuthAPI creates an AuthAPI mock that asserts its expectations on cleanup.
func NewAuthAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *AuthAPI {
	m := &AuthAPI{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
