package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/zeitnachricht/internal/model"
)

// CheckoutAPI is a mock of service.CheckoutAPI.
type CheckoutAPI struct {
	mock.Mock
}

func (m *CheckoutAPI) CheckoutStatus(ctx context.Context, sessionID string) (model.CheckoutStatus, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(model.CheckoutStatus), args.Error(1)
}

// NewCheckoutAPI creates a CheckoutAPI mock that asserts its expectations on cleanup.
func NewCheckoutAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *CheckoutAPI {
	m := &CheckoutAPI{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
