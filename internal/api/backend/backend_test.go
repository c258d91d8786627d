package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/zeitnachricht/internal/mocks"
	"github.com/dtroode/zeitnachricht/internal/model"
)

func TestClient_Me(t *testing.T) {
	r := mocks.NewRequester(t)
	r.On("Get", mock.Anything, "/auth/me", mock.AnythingOfType("*model.UserProfile")).
		Run(func(args mock.Arguments) {
			u := args.Get(2).(*model.UserProfile)
			u.ID = "u1"
			u.SubscriptionPlan = model.PlanFree
		}).
		Return(nil)

	u, err := New(r).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, model.PlanFree, u.SubscriptionPlan)
}

func TestClient_Me_Error(t *testing.T) {
	r := mocks.NewRequester(t)
	r.On("Get", mock.Anything, "/auth/me", mock.Anything).Return(&model.APIError{StatusCode: 401})

	_, err := New(r).Me(context.Background())
	require.Error(t, err)
}

func TestClient_Register_PassesReferral(t *testing.T) {
	r := mocks.NewRequester(t)
	reg := model.Registration{Email: "a@x.com", Password: "pw", Name: "Ada", ReferralCode: "REF123"}
	r.On("Post", mock.Anything, "/auth/register", reg, mock.AnythingOfType("*model.AuthResult")).
		Run(func(args mock.Arguments) {
			res := args.Get(3).(*model.AuthResult)
			res.AccessToken = "tok"
		}).
		Return(nil)

	res, err := New(r).Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, "tok", res.AccessToken)
}

func TestClient_ListMessages_NilBecomesEmpty(t *testing.T) {
	r := mocks.NewRequester(t)
	r.On("Get", mock.Anything, "/messages", mock.Anything).Return(nil)

	msgs, err := New(r).ListMessages(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestClient_Paths(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRequester(t)
	c := New(r)

	r.On("Delete", mock.Anything, "/messages/a%2Fb", nil).Return(nil).Once()
	require.NoError(t, c.DeleteMessage(ctx, "a/b"))

	r.On("Get", mock.Anything, "/messages/calendar/2026/10", mock.Anything).Return(nil).Once()
	_, err := c.Calendar(ctx, 2026, 10)
	require.NoError(t, err)

	r.On("Get", mock.Anything, "/subscriptions/status/cs_1", mock.Anything).Return(nil).Once()
	_, err = c.CheckoutStatus(ctx, "cs_1")
	require.NoError(t, err)

	r.On("Post", mock.Anything, "/subscriptions/subscribe", map[string]model.Plan{"plan": model.PlanPremium}, mock.Anything).Return(nil).Once()
	_, err = c.Subscribe(ctx, model.PlanPremium)
	require.NoError(t, err)

	r.On("Put", mock.Anything, "/admin/users/u1/role", map[string]model.Role{"role": model.RoleAdmin}, nil).Return(nil).Once()
	require.NoError(t, c.UpdateUserRole(ctx, "u1", model.RoleAdmin))

	r.On("Post", mock.Anything, "/admin/payout", model.PayoutRequest{Amount: 10, Description: "x"}, nil).Return(nil).Once()
	require.NoError(t, c.RequestPayout(ctx, model.PayoutRequest{Amount: 10, Description: "x"}))

	r.On("Get", mock.Anything, "/templates", mock.Anything).Return(nil).Once()
	list, err := c.ListTemplates(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list.User)
	assert.NotNil(t, list.Public)

	r.On("Post", mock.Anything, "/templates/t1/use", nil, mock.Anything).Return(nil).Once()
	_, err = c.UseTemplate(ctx, "t1")
	require.NoError(t, err)

	bulk := model.BulkMessages{
		Messages:     []model.CreateMessage{{Title: "a", Content: "b", ScheduledTime: time.Now()}},
		TimeInterval: 5,
	}
	r.On("Post", mock.Anything, "/messages/bulk", bulk, mock.Anything).Return(nil).Once()
	_, err = c.CreateBulk(ctx, bulk)
	require.NoError(t, err)

	for _, p := range []string{"/admin/stats", "/admin/users", "/admin/transactions", "/admin/payouts"} {
		r.On("Get", mock.Anything, p, mock.Anything).Return(nil).Once()
	}
	_, err = c.AdminStats(ctx)
	require.NoError(t, err)
	_, err = c.AdminUsers(ctx)
	require.NoError(t, err)
	_, err = c.AdminTransactions(ctx)
	require.NoError(t, err)
	_, err = c.AdminPayouts(ctx)
	require.NoError(t, err)
}

func TestClient_AdminReports(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRequester(t)
	c := New(r)

	r.On("Get", mock.Anything, "/admin/analytics/revenue", mock.AnythingOfType("*model.Aggregate")).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*model.Aggregate) = model.Aggregate{"arpu": 9.99}
		}).
		Return(nil).Once()
	got, err := c.AdminAnalytics(ctx, model.AnalyticsRevenue)
	require.NoError(t, err)
	assert.Equal(t, 9.99, got["arpu"])

	r.On("Get", mock.Anything, "/admin/analytics/export?format=csv", mock.Anything).Return(nil).Once()
	_, err = c.ExportAnalytics(ctx, model.ExportCSV)
	require.NoError(t, err)

	r.On("Get", mock.Anything, "/admin/marketing/launch-checklist", mock.Anything).
		Return(&model.APIError{StatusCode: 403}).Once()
	_, err = c.AdminMarketing(ctx, model.MarketingLaunchChecklist)
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}
