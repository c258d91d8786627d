package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Requester is a mock of backend.Requester.
type Requester struct {
	mock.Mock
}

func (m *Requester) Get(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path, out)
	return args.Error(0)
}

func (m *Requester) Post(ctx context.Context, path string, body, out any) error {
	args := m.Called(ctx, path, body, out)
	return args.Error(0)
}

func (m *Requester) Put(ctx context.Context, path string, body, out any) error {
	args := m.Called(ctx, path, body, out)
	return args.Error(0)
}

func (m *Requester) Delete(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path, out)
	return args.Error(0)
}

// NewRequester creates a Requester mock that asserts its expectations on cleanup.
func NewRequester(t interface {
	mock.TestingT
	Cleanup(func())
}) *Requester {
	m := &Requester{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
