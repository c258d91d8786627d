package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
)

// DashboardAPI is the part of the backend used by the dashboard view.
type DashboardAPI interface {
	ListMessages(ctx context.Context) ([]model.Message, error)
	CreateMessage(ctx context.Context, msg model.CreateMessage) (model.Message, error)
	CreateBulk(ctx context.Context, bulk model.BulkMessages) (model.BulkResult, error)
	DeleteMessage(ctx context.Context, id string) error
	Calendar(ctx context.Context, year, month int) (model.Calendar, error)

	Plans(ctx context.Context) (map[string]model.SubscriptionPlan, error)
	Subscribe(ctx context.Context, plan model.Plan) (model.Checkout, error)

	AdminStats(ctx context.Context) (model.Aggregate, error)
	AdminUsers(ctx context.Context) (model.Aggregate, error)
	AdminTransactions(ctx context.Context) (model.Aggregate, error)
	AdminPayouts(ctx context.Context) (model.Aggregate, error)
	AdminAnalytics(ctx context.Context, report model.Analytics) (model.Aggregate, error)
	ExportAnalytics(ctx context.Context, format model.ExportFormat) (model.Aggregate, error)
	AdminMarketing(ctx context.Context, resource model.Marketing) (model.Aggregate, error)
	RequestPayout(ctx context.Context, req model.PayoutRequest) error
	UpdateUserRole(ctx context.Context, userID string, role model.Role) error

	ListTemplates(ctx context.Context) (model.TemplateList, error)
	CreateTemplate(ctx context.Context, tpl model.Template) (model.Template, error)
	UpdateTemplate(ctx context.Context, id string, tpl model.Template) (model.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	UseTemplate(ctx context.Context, id string) (model.Template, error)
}

// SessionGuard is what views need from the session store.
type SessionGuard interface {
	User() *model.UserProfile
	Refresh(ctx context.Context) error
	Check(err error) error
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithMessagesListener registers fn to receive every applied message list.
func WithMessagesListener(fn func([]model.Message)) DashboardOption {
	return func(d *Dashboard) {
		d.onMessages = fn
	}
}

// WithAdminStatsListener registers fn to receive every applied admin stats payload.
func WithAdminStatsListener(fn func(model.Aggregate)) DashboardOption {
	return func(d *Dashboard) {
		d.onStats = fn
	}
}

// WithClock replaces the time source used by the scheduling guards.
func WithClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) {
		d.now = now
	}
}

// Dashboard is the authenticated view. While mounted it keeps the message
// list and, for admins, the platform stats fresh. Mutations never update
// local state directly; they re-fetch after the server accepted them.
type Dashboard struct {
	api     DashboardAPI
	session SessionGuard
	logger  *logger.Logger
	now     func() time.Time

	onMessages func([]model.Message)
	onStats    func(model.Aggregate)

	messages *Poller[[]model.Message]
	stats    *Poller[model.Aggregate]

	mu    sync.RWMutex
	plans map[string]model.SubscriptionPlan
}

// NewDashboard creates an unmounted dashboard polling every interval.
func NewDashboard(api DashboardAPI, session SessionGuard, interval time.Duration, logger *logger.Logger, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		api:     api,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.messages = NewPoller("messages", interval, d.fetchMessages, logger,
		WithOnUpdate(func(msgs []model.Message) {
			if d.onMessages != nil {
				d.onMessages(msgs)
			}
		}))
	d.stats = NewPoller("admin-stats", interval, d.fetchStats, logger,
		WithGuard[model.Aggregate](func() bool { return session.User().IsAdmin() }),
		WithOnUpdate(func(stats model.Aggregate) {
			if d.onStats != nil {
				d.onStats(stats)
			}
		}))

	return d
}

func (d *Dashboard) fetchMessages(ctx context.Context) ([]model.Message, error) {
	msgs, err := d.api.ListMessages(ctx)
	if err != nil {
		return nil, d.session.Check(err)
	}
	return msgs, nil
}

func (d *Dashboard) fetchStats(ctx context.Context) (model.Aggregate, error) {
	stats, err := d.api.AdminStats(ctx)
	if err != nil {
		return nil, d.session.Check(err)
	}
	return stats, nil
}

// Mount starts polling and loads the plan table once.
func (d *Dashboard) Mount(ctx context.Context) {
	d.logger.Debug("Dashboard: mounting")

	d.messages.Start(ctx)
	d.stats.Start(ctx)

	plans, err := d.api.Plans(ctx)
	if err != nil {
		err = d.session.Check(err)
		d.logger.Warn("Dashboard: failed to load plans",
			"error", err.Error())
		return
	}

	d.mu.Lock()
	d.plans = plans
	d.mu.Unlock()
}

// Unmount stops polling. Results of requests still in flight are dropped.
func (d *Dashboard) Unmount() {
	d.messages.Stop()
	d.stats.Stop()

	d.logger.Debug("Dashboard: unmounted")
}

// Messages returns the last applied message list.
func (d *Dashboard) Messages() []model.Message {
	msgs, _ := d.messages.Latest()
	return msgs
}

// Scheduled returns the messages still awaiting delivery.
func (d *Dashboard) Scheduled() []model.Message {
	return model.FilterByStatus(d.Messages(), model.StatusScheduled)
}

// Delivered returns the messages already delivered.
func (d *Dashboard) Delivered() []model.Message {
	return model.FilterByStatus(d.Messages(), model.StatusDelivered)
}

// AdminStats returns the last applied admin stats, or nil for non-admins.
func (d *Dashboard) AdminStats() model.Aggregate {
	stats, _ := d.stats.Latest()
	return stats
}

// Plans returns the plan table loaded on mount.
func (d *Dashboard) Plans() map[string]model.SubscriptionPlan {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.plans
}

// RefreshMessages re-fetches the message list outside the timer.
func (d *Dashboard) RefreshMessages(ctx context.Context) error {
	return d.messages.Refetch(ctx)
}

// CreateMessage schedules one message and re-fetches the list and the quota.
func (d *Dashboard) CreateMessage(ctx context.Context, msg model.CreateMessage) (model.Message, error) {
	user := d.session.User()
	if user == nil {
		return model.Message{}, model.ErrNotAuthenticated
	}
	if err := d.validate(user, msg); err != nil {
		return model.Message{}, err
	}
	if user.AtMessageLimit() {
		return model.Message{}, model.ErrMessageLimitReached
	}

	created, err := d.api.CreateMessage(ctx, msg)
	if err != nil {
		d.logger.Info("Dashboard: message rejected",
			"error", err.Error())
		return model.Message{}, d.session.Check(err)
	}

	d.logger.Info("Dashboard: message scheduled",
		"message_id", created.ID,
		"scheduled_time", created.ScheduledTime)

	d.afterMessageMutation(ctx)
	return created, nil
}

// CreateBulk schedules several messages. Message i is delivered at its own
// scheduled time plus i times the interval in minutes.
func (d *Dashboard) CreateBulk(ctx context.Context, bulk model.BulkMessages) (model.BulkResult, error) {
	user := d.session.User()
	if user == nil {
		return model.BulkResult{}, model.ErrNotAuthenticated
	}
	if !user.CanUseRecurring() {
		return model.BulkResult{}, model.ErrBulkNotAllowed
	}
	if len(bulk.Messages) == 0 {
		return model.BulkResult{}, model.ErrEmptyBulk
	}
	for _, msg := range bulk.Messages {
		if err := d.validate(user, msg); err != nil {
			return model.BulkResult{}, err
		}
	}
	if user.AtMessageLimit() {
		return model.BulkResult{}, model.ErrMessageLimitReached
	}

	res, err := d.api.CreateBulk(ctx, bulk)
	if err != nil {
		d.logger.Info("Dashboard: bulk rejected",
			"error", err.Error())
		return model.BulkResult{}, d.session.Check(err)
	}

	d.logger.Info("Dashboard: bulk scheduled",
		"success_count", res.SuccessCount,
		"failed_count", res.FailedCount)

	d.afterMessageMutation(ctx)
	return res, nil
}

// DeleteMessage removes a message and re-fetches the list and the quota.
func (d *Dashboard) DeleteMessage(ctx context.Context, id string) error {
	if err := d.api.DeleteMessage(ctx, id); err != nil {
		d.logger.Info("Dashboard: delete rejected",
			"message_id", id,
			"error", err.Error())
		return d.session.Check(err)
	}

	d.afterMessageMutation(ctx)
	return nil
}

func (d *Dashboard) validate(user *model.UserProfile, msg model.CreateMessage) error {
	if strings.TrimSpace(msg.Title) == "" || strings.TrimSpace(msg.Content) == "" {
		return model.ErrEmptyMessage
	}
	if !msg.ScheduledTime.After(d.now()) {
		return model.ErrScheduledInPast
	}
	if msg.IsRecurring && !user.CanUseRecurring() {
		return model.ErrRecurringNotAllowed
	}
	return nil
}

// afterMessageMutation re-reads the server state. Its failures do not undo the mutation.
func (d *Dashboard) afterMessageMutation(ctx context.Context) {
	if err := d.messages.Refetch(ctx); err != nil {
		d.logger.Warn("Dashboard: failed to refetch messages",
			"error", err.Error())
	}
	if err := d.session.Refresh(ctx); err != nil {
		d.logger.Warn("Dashboard: failed to refresh profile",
			"error", err.Error())
	}
}

// Calendar returns the messages of one month grouped by day.
func (d *Dashboard) Calendar(ctx context.Context, year int, month time.Month) (model.Calendar, error) {
	cal, err := d.api.Calendar(ctx, year, int(month))
	if err != nil {
		return model.Calendar{}, d.session.Check(err)
	}
	return cal, nil
}

// Subscribe starts a checkout for a paid plan. The caller redirects to the returned URL.
func (d *Dashboard) Subscribe(ctx context.Context, plan model.Plan) (model.Checkout, error) {
	if plan != model.PlanPremium && plan != model.PlanBusiness {
		return model.Checkout{}, model.ErrInvalidPlan
	}

	checkout, err := d.api.Subscribe(ctx, plan)
	if err != nil {
		d.logger.Info("Dashboard: subscription rejected",
			"plan", plan,
			"error", err.Error())
		return model.Checkout{}, d.session.Check(err)
	}

	d.logger.Info("Dashboard: checkout started",
		"plan", plan,
		"session_id", checkout.SessionID)
	return checkout, nil
}

func (d *Dashboard) requireAdmin() error {
	if !d.session.User().IsAdmin() {
		return model.ErrAdminOnly
	}
	return nil
}

// AdminUsers lists all users. Admin only.
func (d *Dashboard) AdminUsers(ctx context.Context) (model.Aggregate, error) {
	return d.adminRead(ctx, d.api.AdminUsers)
}

// AdminTransactions lists payment transactions. Admin only.
func (d *Dashboard) AdminTransactions(ctx context.Context) (model.Aggregate, error) {
	return d.adminRead(ctx, d.api.AdminTransactions)
}

// AdminPayouts lists payouts. Admin only.
func (d *Dashboard) AdminPayouts(ctx context.Context) (model.Aggregate, error) {
	return d.adminRead(ctx, d.api.AdminPayouts)
}

// Analytics returns one analytics report. Admin only.
func (d *Dashboard) Analytics(ctx context.Context, report model.Analytics) (model.Aggregate, error) {
	if !report.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidReport, report)
	}
	return d.adminRead(ctx, func(ctx context.Context) (model.Aggregate, error) {
		return d.api.AdminAnalytics(ctx, report)
	})
}

// ExportAnalytics exports all analytics in format. Admin only.
func (d *Dashboard) ExportAnalytics(ctx context.Context, format model.ExportFormat) (model.Aggregate, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: export format %q", model.ErrInvalidReport, format)
	}
	return d.adminRead(ctx, func(ctx context.Context) (model.Aggregate, error) {
		return d.api.ExportAnalytics(ctx, format)
	})
}

// Marketing returns a marketing resource. Admin only.
func (d *Dashboard) Marketing(ctx context.Context, resource model.Marketing) (model.Aggregate, error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidReport, resource)
	}
	return d.adminRead(ctx, func(ctx context.Context) (model.Aggregate, error) {
		return d.api.AdminMarketing(ctx, resource)
	})
}

func (d *Dashboard) adminRead(ctx context.Context, fetch func(context.Context) (model.Aggregate, error)) (model.Aggregate, error) {
	if err := d.requireAdmin(); err != nil {
		return nil, err
	}
	agg, err := fetch(ctx)
	if err != nil {
		return nil, d.session.Check(err)
	}
	return agg, nil
}

// RequestPayout requests a payout and re-fetches the admin stats.
func (d *Dashboard) RequestPayout(ctx context.Context, amount float64, description string) error {
	if err := d.requireAdmin(); err != nil {
		return err
	}
	if amount <= 0 {
		return model.ErrInvalidAmount
	}

	if err := d.api.RequestPayout(ctx, model.PayoutRequest{Amount: amount, Description: description}); err != nil {
		d.logger.Info("Dashboard: payout rejected",
			"error", err.Error())
		return d.session.Check(err)
	}

	d.logger.Info("Dashboard: payout requested",
		"amount", amount)

	if err := d.stats.Refetch(ctx); err != nil {
		d.logger.Warn("Dashboard: failed to refetch admin stats",
			"error", err.Error())
	}
	return nil
}

// UpdateUserRole changes the role of another user and re-fetches the admin stats.
func (d *Dashboard) UpdateUserRole(ctx context.Context, userID string, role model.Role) error {
	if err := d.requireAdmin(); err != nil {
		return err
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}

	if err := d.api.UpdateUserRole(ctx, userID, role); err != nil {
		return d.session.Check(err)
	}

	if err := d.stats.Refetch(ctx); err != nil {
		d.logger.Warn("Dashboard: failed to refetch admin stats",
			"error", err.Error())
	}
	return nil
}

// Templates returns the user's own and the public templates.
func (d *Dashboard) Templates(ctx context.Context) (model.TemplateList, error) {
	list, err := d.api.ListTemplates(ctx)
	if err != nil {
		return model.TemplateList{}, d.session.Check(err)
	}
	return list, nil
}

// CreateTemplate stores a new template.
func (d *Dashboard) CreateTemplate(ctx context.Context, tpl model.Template) (model.Template, error) {
	created, err := d.api.CreateTemplate(ctx, tpl)
	if err != nil {
		return model.Template{}, d.session.Check(err)
	}
	return created, nil
}

// UpdateTemplate replaces a template owned by the user.
func (d *Dashboard) UpdateTemplate(ctx context.Context, id string, tpl model.Template) (model.Template, error) {
	updated, err := d.api.UpdateTemplate(ctx, id, tpl)
	if err != nil {
		return model.Template{}, d.session.Check(err)
	}
	return updated, nil
}

// DeleteTemplate removes a template owned by the user.
func (d *Dashboard) DeleteTemplate(ctx context.Context, id string) error {
	if err := d.api.DeleteTemplate(ctx, id); err != nil {
		return d.session.Check(err)
	}
	return nil
}

// UseTemplate records a template use and returns a message draft scheduled at when.
func (d *Dashboard) UseTemplate(ctx context.Context, id string, when time.Time) (model.CreateMessage, error) {
	tpl, err := d.api.UseTemplate(ctx, id)
	if err != nil {
		return model.CreateMessage{}, d.session.Check(err)
	}
	return model.CreateMessage{
		Title:         tpl.Title,
		Content:       tpl.Content,
		ScheduledTime: when,
	}, nil
}
