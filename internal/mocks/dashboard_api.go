package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/zeitnachricht/internal/model"
)

// DashboardAPI is a mock of service.DashboardAPI.
type DashboardAPI struct {
	mock.Mock
}

func (m *DashboardAPI) ListMessages(ctx context.Context) ([]model.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *DashboardAPI) CreateMessage(ctx context.Context, msg model.CreateMessage) (model.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(model.Message), args.Error(1)
}

func (m *DashboardAPI) CreateBulk(ctx context.Context, bulk model.BulkMessages) (model.BulkResult, error) {
	args := m.Called(ctx, bulk)
	return args.Get(0).(model.BulkResult), args.Error(1)
}

func (m *DashboardAPI) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DashboardAPI) Calendar(ctx context.Context, year, month int) (model.Calendar, error) {
	args := m.Called(ctx, year, month)
	return args.Get(0).(model.Calendar), args.Error(1)
}

func (m *DashboardAPI) Plans(ctx context.Context) (map[string]model.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.SubscriptionPlan), args.Error(1)
}

func (m *DashboardAPI) Subscribe(ctx context.Context, plan model.Plan) (model.Checkout, error) {
	args := m.Called(ctx, plan)
	return args.Get(0).(model.Checkout), args.Error(1)
}

func (m *DashboardAPI) AdminStats(ctx context.Context) (model.Aggregate, error) {
	return m.aggregate(m.Called(ctx))
}

func (m *DashboardAPI) AdminUsers(ctx context.Context) (model.Aggregate, error) {
	return m.aggregate(m.Called(ctx))
}

func (m *DashboardAPI) AdminTransactions(ctx context.Context) (model.Aggregate, error) {
	return m.aggregate(m.Called(ctx))
}

func (m *DashboardAPI) AdminPayouts(ctx context.Context) (model.Aggregate, error) {
	return m.aggregate(m.Called(ctx))
}

func (m *DashboardAPI) AdminAnalytics(ctx context.Context, report model.Analytics) (model.Aggregate, error) {
	return m.aggregate(m.Called(ctx, report))
}

func (m *DashboardAPI) ExportAnalytics(ctx context.Context, format model.ExportFormat) (model.Aggregate, error) {
	return m.aggregate(m.Called(ctx, format))
}

func (m *DashboardAPI) AdminMarketing(ctx context.Context, resource model.Marketing) (model.Aggregate, error) {
	return m.aggregate(m.Called(ctx, resource))
}

func (m *DashboardAPI) aggregate(args mock.Arguments) (model.Aggregate, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Aggregate), args.Error(1)
}

func (m *DashboardAPI) RequestPayout(ctx context.Context, req model.PayoutRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *DashboardAPI) UpdateUserRole(ctx context.Context, userID string, role model.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *DashboardAPI) ListTemplates(ctx context.Context) (model.TemplateList, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.TemplateList), args.Error(1)
}

func (m *DashboardAPI) CreateTemplate(ctx context.Context, tpl model.Template) (model.Template, error) {
	args := m.Called(ctx, tpl)
	return args.Get(0).(model.Template), args.Error(1)
}

func (m *DashboardAPI) UpdateTemplate(ctx context.Context, id string, tpl model.Template) (model.Template, error) {
	args := m.Called(ctx, id, tpl)
	return args.Get(0).(model.Template), args.Error(1)
}

func (m *DashboardAPI) DeleteTemplate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DashboardAPI) UseTemplate(ctx context.Context, id string) (model.Template, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Template), args.Error(1)
}

// NewDashboardAPI creates a DashboardAPI mock that asserts its expectations on cleanup.
func NewDashboardAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *DashboardAPI {
	m := &DashboardAPI{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
