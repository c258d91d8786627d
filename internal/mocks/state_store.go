package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// StateStore is a mock of model.StateStore.
type StateStore struct {
	mock.Mock
}

func (m *StateStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *StateStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *StateStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// NewStateStore creates a StateStore mock that asserts its expectations on cleanup.
func NewStateStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *StateStore {
	m := &StateStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
