package devbackend

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/testutil"
	"github.com/dtroode/zeitnachricht/internal/token"
)

const (
	adminEmail    = "admin@zeitgesteuerte.de"
	adminPassword = "admin123"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBackend(t *testing.T) (*Backend, *clock) {
	t.Helper()

	c := &clock{t: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
	b, err := New(token.NewJWT("test-secret"), testutil.MakeNoopLogger(),
		WithClock(c.now),
		WithAdmin(adminEmail, adminPassword))
	require.NoError(t, err)
	return b, c
}

func register(t *testing.T, b *Backend, email, referral string) model.AuthResult {
	t.Helper()

	res, err := b.Register(model.Registration{Email: email, Password: "secret", Name: "Test", ReferralCode: referral})
	require.NoError(t, err)
	return res
}

func adminID(t *testing.T, b *Backend) string {
	t.Helper()

	res, err := b.Login(model.Credentials{Email: adminEmail, Password: adminPassword})
	require.NoError(t, err)
	return res.User.ID
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()

	e, ok := AsError(err)
	require.True(t, ok, "expected backend error, got %v", err)
	assert.Equal(t, status, e.Status)
}

func TestBackend_RegisterAndLogin(t *testing.T) {
	b, _ := newTestBackend(t)

	res := register(t, b, "Anna@Example.com", "")
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, "anna@example.com", res.User.Email)
	assert.Equal(t, model.PlanFree, res.User.SubscriptionPlan)
	assert.Equal(t, FreeMonthlyMessages, res.User.MonthlyMessagesLimit)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.Len(t, res.User.ReferralCode, 8)

	userID, err := b.Authenticate(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	login, err := b.Login(model.Credentials{Email: "anna@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = b.Login(model.Credentials{Email: "anna@example.com", Password: "wrong"})
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = b.Login(model.Credentials{Email: "nobody@example.com", Password: "secret"})
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestBackend_RegisterValidation(t *testing.T) {
	b, _ := newTestBackend(t)
	register(t, b, "anna@example.com", "")

	_, err := b.Register(model.Registration{Email: "anna@example.com", Password: "x", Name: "Anna"})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = b.Register(model.Registration{Email: "bob@example.com", Password: "x"})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestBackend_Referral(t *testing.T) {
	b, _ := newTestBackend(t)

	referrer := register(t, b, "referrer@example.com", "")
	invited := register(t, b, "invited@example.com", " "+referrer.User.ReferralCode+" ")
	assert.Equal(t, FreeMonthlyMessages+ReferralBonus, invited.User.MonthlyMessagesLimit)

	me, err := b.Me(referrer.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, me.ReferredCount)

	unknown := register(t, b, "other@example.com", "REF123")
	assert.Equal(t, FreeMonthlyMessages, unknown.User.MonthlyMessagesLimit)
	assert.Equal(t, model.PlanFree, unknown.User.SubscriptionPlan)
}

func TestBackend_Authenticate(t *testing.T) {
	b, _ := newTestBackend(t)

	_, err := b.Authenticate("")
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = b.Authenticate("garbage")
	assertStatus(t, err, http.StatusUnauthorized)

	foreign, err := token.NewJWT("other-secret").GenerateAccessToken("someone")
	require.NoError(t, err)
	_, err = b.Authenticate(foreign)
	assertStatus(t, err, http.StatusUnauthorized)

	unknown, err := token.NewJWT("test-secret").GenerateAccessToken("deleted-user")
	require.NoError(t, err)
	_, err = b.Authenticate(unknown)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestBackend_CreateMessage(t *testing.T) {
	b, c := newTestBackend(t)
	user := register(t, b, "anna@example.com", "")
	future := c.t.Add(time.Hour)

	tests := []struct {
		name   string
		msg    model.CreateMessage
		status int
	}{
		{name: "empty title", msg: model.CreateMessage{Content: "c", ScheduledTime: future}, status: http.StatusBadRequest},
		{name: "in the past", msg: model.CreateMessage{Title: "t", Content: "c", ScheduledTime: c.t.Add(-time.Minute)}, status: http.StatusBadRequest},
		{name: "now", msg: model.CreateMessage{Title: "t", Content: "c", ScheduledTime: c.t}, status: http.StatusBadRequest},
		{name: "recurring on free plan", msg: model.CreateMessage{Title: "t", Content: "c", ScheduledTime: future, IsRecurring: true, RecurringPattern: model.RecurringDaily}, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CreateMessage(user.User.ID, tt.msg)
			assertStatus(t, err, tt.status)
		})
	}

	msg, err := b.CreateMessage(user.User.ID, model.CreateMessage{Title: "t", Content: "c", ScheduledTime: future})
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, msg.Status)
	assert.Equal(t, model.RecurringNone, msg.RecurringPattern)

	me, err := b.Me(user.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, me.MonthlyMessagesUsed)
}

func TestBackend_MessageLimit(t *testing.T) {
	b, c := newTestBackend(t)
	user := register(t, b, "anna@example.com", "")
	msg := model.CreateMessage{Title: "t", Content: "c", ScheduledTime: c.t.Add(time.Hour)}

	for i := 0; i < FreeMonthlyMessages; i++ {
		_, err := b.CreateMessage(user.User.ID, msg)
		require.NoError(t, err)
	}
	_, err := b.CreateMessage(user.User.ID, msg)
	assertStatus(t, err, http.StatusForbidden)

	// usage resets with the month
	c.t = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	msg.ScheduledTime = c.t.Add(time.Hour)
	_, err = b.CreateMessage(user.User.ID, msg)
	require.NoError(t, err)

	me, err := b.Me(user.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, me.MonthlyMessagesUsed)
}

func TestBackend_MessagesOrderAndDelivery(t *testing.T) {
	b, c := newTestBackend(t)
	user := register(t, b, "anna@example.com", "").User.ID

	for _, d := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		_, err := b.CreateMessage(user, model.CreateMessage{Title: d.String(), Content: "c", ScheduledTime: c.t.Add(d)})
		require.NoError(t, err)
	}

	all := b.Messages(user, "")
	require.Len(t, all, 3)
	assert.Equal(t, "1h0m0s", all[0].Title)
	assert.Equal(t, "3h0m0s", all[2].Title)

	assert.Equal(t, 1, b.DeliverDue(c.t.Add(90*time.Minute)))
	assert.Equal(t, 1, b.DeliverDue(c.t.Add(150*time.Minute)))
	assert.Zero(t, b.DeliverDue(c.t.Add(150*time.Minute)))

	delivered := b.Delivered(user)
	require.Len(t, delivered, 2)
	assert.Equal(t, "2h0m0s", delivered[0].Title)
	assert.Equal(t, "1h0m0s", delivered[1].Title)
	require.NotNil(t, delivered[0].DeliveredAt)

	scheduled := b.Messages(user, model.StatusScheduled)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "3h0m0s", scheduled[0].Title)

	assert.Empty(t, b.Messages("someone-else", ""))
}

func TestBackend_DeleteMessage(t *testing.T) {
	b, c := newTestBackend(t)
	anna := register(t, b, "anna@example.com", "").User.ID
	bob := register(t, b, "bob@example.com", "").User.ID

	msg, err := b.CreateMessage(anna, model.CreateMessage{Title: "t", Content: "c", ScheduledTime: c.t.Add(time.Hour)})
	require.NoError(t, err)

	err = b.DeleteMessage(bob, msg.ID)
	assertStatus(t, err, http.StatusNotFound)

	require.NoError(t, b.DeleteMessage(anna, msg.ID))
	err = b.DeleteMessage(anna, msg.ID)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Message not found", e.Detail)
}

func TestBackend_CreateBulk(t *testing.T) {
	b, c := newTestBackend(t)
	user := register(t, b, "anna@example.com", "").User.ID

	bulk := model.BulkMessages{
		TimeInterval: 30,
		Messages: []model.CreateMessage{
			{Title: "a", Content: "c", ScheduledTime: c.t.Add(time.Hour)},
			{Title: "b", Content: "c", ScheduledTime: c.t.Add(time.Hour)},
			{Title: "", Content: "c", ScheduledTime: c.t.Add(time.Hour)},
		},
	}

	_, err := b.CreateBulk(user, bulk)
	assertStatus(t, err, http.StatusForbidden)

	id, err := b.Subscribe(user, model.PlanPremium)
	require.NoError(t, err)
	require.NoError(t, b.PayCheckout(id))

	res, err := b.CreateBulk(user, bulk)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailedCount)
	require.Len(t, res.CreatedMessages, 2)

	msgs := b.Messages(user, model.StatusScheduled)
	require.Len(t, msgs, 2)
	assert.Equal(t, res.CreatedMessages[0], msgs[0].ID)
	assert.Equal(t, c.t.Add(time.Hour), msgs[0].ScheduledTime)
	assert.Equal(t, c.t.Add(90*time.Minute), msgs[1].ScheduledTime)

	_, err = b.CreateBulk(user, model.BulkMessages{})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestBackend_Calendar(t *testing.T) {
	b, _ := newTestBackend(t)
	user := register(t, b, "anna@example.com", "").User.ID

	for _, at := range []time.Time{
		time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	} {
		_, err := b.CreateMessage(user, model.CreateMessage{Title: "t", Content: "c", ScheduledTime: at})
		require.NoError(t, err)
	}

	cal, err := b.Calendar(user, 2026, 1)
	require.NoError(t, err)
	assert.Equal(t, 2026, cal.Year)
	assert.Equal(t, 1, cal.Month)
	assert.Len(t, cal.Days, 1)
	assert.Len(t, cal.Days["2026-01-20"], 2)

	_, err = b.Calendar(user, 2026, 13)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestBackend_Checkout(t *testing.T) {
	b, _ := newTestBackend(t)
	user := register(t, b, "anna@example.com", "").User.ID

	_, err := b.Subscribe(user, model.PlanFree)
	assertStatus(t, err, http.StatusBadRequest)

	id, err := b.Subscribe(user, model.PlanBusiness)
	require.NoError(t, err)
	assert.Contains(t, id, "cs_")

	st, err := b.CheckoutStatus(id)
	require.NoError(t, err)
	assert.Equal(t, "unpaid", st.PaymentStatus)

	require.NoError(t, b.PayCheckout(id))
	require.NoError(t, b.PayCheckout(id))

	st, err = b.CheckoutStatus(id)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, st.PaymentStatus)

	me, err := b.Me(user)
	require.NoError(t, err)
	assert.Equal(t, model.PlanBusiness, me.SubscriptionPlan)
	assert.Equal(t, model.UnlimitedMessages, me.MonthlyMessagesLimit)

	_, err = b.CheckoutStatus("cs_missing")
	assertStatus(t, err, http.StatusNotFound)
	assertStatus(t, b.PayCheckout("cs_missing"), http.StatusNotFound)
}

func TestBackend_AdminOnly(t *testing.T) {
	b, _ := newTestBackend(t)
	user := register(t, b, "anna@example.com", "").User.ID

	for name, fn := range map[string]func(string) (model.Aggregate, error){
		"stats":        b.Stats,
		"users":        b.Users,
		"transactions": b.Transactions,
		"payouts":      b.Payouts,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fn(user)
			assertStatus(t, err, http.StatusForbidden)
		})
	}

	_, err := b.RequestPayout(user, model.PayoutRequest{Amount: 1})
	assertStatus(t, err, http.StatusForbidden)
	assertStatus(t, b.UpdateRole(user, user, model.RoleAdmin), http.StatusForbidden)
}

func TestBackend_AdminFinance(t *testing.T) {
	b, _ := newTestBackend(t)
	admin := adminID(t, b)
	user := register(t, b, "anna@example.com", "").User.ID

	id, err := b.Subscribe(user, model.PlanPremium)
	require.NoError(t, err)
	require.NoError(t, b.PayCheckout(id))

	stats, err := b.Stats(admin)
	require.NoError(t, err)
	assert.Equal(t, 2, stats["total_users"])
	assert.Equal(t, 1, stats["premium_users"])
	assert.Equal(t, 1, stats["business_users"])
	assert.InDelta(t, 9.99, stats["total_revenue"], 0.001)
	assert.InDelta(t, 9.99, stats["monthly_revenue"], 0.001)
	assert.InDelta(t, 9.99, stats["available_balance"], 0.001)

	_, err = b.RequestPayout(admin, model.PayoutRequest{Amount: 100})
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Contains(t, e.Detail, "Nicht genügend Guthaben")

	_, err = b.RequestPayout(admin, model.PayoutRequest{Amount: 0})
	assertStatus(t, err, http.StatusBadRequest)

	res, err := b.RequestPayout(admin, model.PayoutRequest{Amount: 5, Description: "Auszahlung"})
	require.NoError(t, err)
	assert.Equal(t, "pending", res["status"])
	assert.NotEmpty(t, res["payout_id"])

	stats, err = b.Stats(admin)
	require.NoError(t, err)
	assert.InDelta(t, 4.99, stats["available_balance"], 0.001)
	assert.InDelta(t, 5.0, stats["pending_payouts"], 0.001)

	payouts, err := b.Payouts(admin)
	require.NoError(t, err)
	assert.Len(t, payouts["payouts"], 1)

	txs, err := b.Transactions(admin)
	require.NoError(t, err)
	assert.Len(t, txs["transactions"], 1)

	users, err := b.Users(admin)
	require.NoError(t, err)
	assert.Len(t, users["users"], 2)
}

func TestBackend_UpdateRole(t *testing.T) {
	b, _ := newTestBackend(t)
	admin := adminID(t, b)
	user := register(t, b, "anna@example.com", "").User.ID

	assertStatus(t, b.UpdateRole(admin, user, "owner"), http.StatusBadRequest)
	assertStatus(t, b.UpdateRole(admin, "missing", model.RoleAdmin), http.StatusNotFound)

	require.NoError(t, b.UpdateRole(admin, user, model.RoleAdmin))
	_, err := b.Stats(user)
	require.NoError(t, err)
}

func TestBackend_Templates(t *testing.T) {
	b, _ := newTestBackend(t)
	anna := register(t, b, "anna@example.com", "").User.ID
	bob := register(t, b, "bob@example.com", "").User.ID

	list := b.Templates(anna)
	assert.Empty(t, list.User)
	require.Len(t, list.Public, len(publicTemplates))

	_, err := b.CreateTemplate(anna, model.Template{Name: "x"})
	assertStatus(t, err, http.StatusBadRequest)

	tpl, err := b.CreateTemplate(anna, model.Template{Name: "Gruß", Title: "Hallo", Content: "Hallo Welt", Category: "personal"})
	require.NoError(t, err)
	assert.Equal(t, anna, tpl.OwnerID)

	assert.Len(t, b.Templates(anna).User, 1)
	assert.Empty(t, b.Templates(bob).User)

	_, err = b.UpdateTemplate(bob, tpl.ID, model.Template{Name: "n", Title: "t", Content: "c"})
	assertStatus(t, err, http.StatusNotFound)

	updated, err := b.UpdateTemplate(anna, tpl.ID, model.Template{Name: "Gruß", Title: "Servus", Content: "Servus Welt"})
	require.NoError(t, err)
	assert.Equal(t, "Servus", updated.Title)

	_, err = b.UseTemplate(bob, tpl.ID)
	assertStatus(t, err, http.StatusNotFound)

	used, err := b.UseTemplate(bob, list.Public[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, used.UsageCount)

	assertStatus(t, b.DeleteTemplate(bob, tpl.ID), http.StatusNotFound)
	require.NoError(t, b.DeleteTemplate(anna, tpl.ID))
	assert.Empty(t, b.Templates(anna).User)
}
