// Package backend binds the logical operations of the scheduled-messaging REST API
// to typed Go methods. Requests go through the rest facade.
package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dtroode/zeitnachricht/internal/model"
)

// Requester is the subset of the rest facade used by Client.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Client exposes one method per backend operation.
type Client struct {
	r Requester
}

// New creates Client over r.
func New(r Requester) *Client {
	return &Client{r: r}
}

// Me fetches the current user profile.
func (c *Client) Me(ctx context.Context) (model.UserProfile, error) {
	var u model.UserProfile
	if err := c.r.Get(ctx, "/auth/me", &u); err != nil {
		return model.UserProfile{}, err
	}
	return u, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error) {
	var res model.AuthResult
	if err := c.r.Post(ctx, "/auth/login", creds, &res); err != nil {
		return model.AuthResult{}, err
	}
	return res, nil
}

// Register creates an account. An empty referral code is omitted from the payload.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.AuthResult, error) {
	var res model.AuthResult
	if err := c.r.Post(ctx, "/auth/register", reg, &res); err != nil {
		return model.AuthResult{}, err
	}
	return res, nil
}

// ListMessages returns all messages of the current user.
func (c *Client) ListMessages(ctx context.Context) ([]model.Message, error) {
	return c.listMessages(ctx, "/messages")
}

// ListScheduled returns messages still waiting for delivery.
func (c *Client) ListScheduled(ctx context.Context) ([]model.Message, error) {
	return c.listMessages(ctx, "/messages/scheduled")
}

// ListDelivered returns delivered messages, most recent first.
func (c *Client) ListDelivered(ctx context.Context) ([]model.Message, error) {
	return c.listMessages(ctx, "/messages/delivered")
}

func (c *Client) listMessages(ctx context.Context, path string) ([]model.Message, error) {
	var msgs []model.Message
	if err := c.r.Get(ctx, path, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// CreateMessage schedules a single message.
func (c *Client) CreateMessage(ctx context.Context, msg model.CreateMessage) (model.Message, error) {
	var created model.Message
	if err := c.r.Post(ctx, "/messages", msg, &created); err != nil {
		return model.Message{}, err
	}
	return created, nil
}

// CreateBulk schedules several messages separated by TimeInterval minutes.
func (c *Client) CreateBulk(ctx context.Context, bulk model.BulkMessages) (model.BulkResult, error) {
	var res model.BulkResult
	if err := c.r.Post(ctx, "/messages/bulk", bulk, &res); err != nil {
		return model.BulkResult{}, err
	}
	return res, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.r.Delete(ctx, "/messages/"+url.PathEscape(id), nil)
}

// Calendar returns the messages of one month grouped by day.
func (c *Client) Calendar(ctx context.Context, year, month int) (model.Calendar, error) {
	var cal model.Calendar
	if err := c.r.Get(ctx, fmt.Sprintf("/messages/calendar/%d/%d", year, month), &cal); err != nil {
		return model.Calendar{}, err
	}
	return cal, nil
}

// Plans returns the subscription plans keyed by plan name.
func (c *Client) Plans(ctx context.Context) (map[string]model.SubscriptionPlan, error) {
	var plans map[string]model.SubscriptionPlan
	if err := c.r.Get(ctx, "/subscriptions/plans", &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Subscribe starts a checkout for plan.
func (c *Client) Subscribe(ctx context.Context, plan model.Plan) (model.Checkout, error) {
	var co model.Checkout
	if err := c.r.Post(ctx, "/subscriptions/subscribe", map[string]model.Plan{"plan": plan}, &co); err != nil {
		return model.Checkout{}, err
	}
	return co, nil
}

// CheckoutStatus returns the payment status of a checkout session.
func (c *Client) CheckoutStatus(ctx context.Context, sessionID string) (model.CheckoutStatus, error) {
	var st model.CheckoutStatus
	if err := c.r.Get(ctx, "/subscriptions/status/"+url.PathEscape(sessionID), &st); err != nil {
		return model.CheckoutStatus{}, err
	}
	return st, nil
}

// AdminStats returns the admin dashboard statistics.
func (c *Client) AdminStats(ctx context.Context) (model.Aggregate, error) {
	return c.aggregate(ctx, "/admin/stats")
}

// AdminUsers returns the admin user listing.
func (c *Client) AdminUsers(ctx context.Context) (model.Aggregate, error) {
	return c.aggregate(ctx, "/admin/users")
}

// AdminTransactions returns the admin transaction listing.
func (c *Client) AdminTransactions(ctx context.Context) (model.Aggregate, error) {
	return c.aggregate(ctx, "/admin/transactions")
}

// AdminPayouts returns the admin payout listing.
func (c *Client) AdminPayouts(ctx context.Context) (model.Aggregate, error) {
	return c.aggregate(ctx, "/admin/payouts")
}

// AdminAnalytics returns one analytics report.
func (c *Client) AdminAnalytics(ctx context.Context, report model.Analytics) (model.Aggregate, error) {
	return c.aggregate(ctx, "/admin/analytics/"+url.PathEscape(string(report)))
}

// ExportAnalytics returns the analytics export in format. JSON exports carry
// the data inline, CSV exports a download link.
func (c *Client) ExportAnalytics(ctx context.Context, format model.ExportFormat) (model.Aggregate, error) {
	return c.aggregate(ctx, "/admin/analytics/export?format="+url.QueryEscape(string(format)))
}

// AdminMarketing returns a marketing resource listing.
func (c *Client) AdminMarketing(ctx context.Context, resource model.Marketing) (model.Aggregate, error) {
	return c.aggregate(ctx, "/admin/marketing/"+url.PathEscape(string(resource)))
}

func (c *Client) aggregate(ctx context.Context, path string) (model.Aggregate, error) {
	var agg model.Aggregate
	if err := c.r.Get(ctx, path, &agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// RequestPayout asks for a payout of admin revenue.
func (c *Client) RequestPayout(ctx context.Context, req model.PayoutRequest) error {
	return c.r.Post(ctx, "/admin/payout", req, nil)
}

// UpdateUserRole changes the role of a user.
func (c *Client) UpdateUserRole(ctx context.Context, userID string, role model.Role) error {
	return c.r.Put(ctx, "/admin/users/"+url.PathEscape(userID)+"/role", map[string]model.Role{"role": role}, nil)
}

// ListTemplates returns own and public templates.
func (c *Client) ListTemplates(ctx context.Context) (model.TemplateList, error) {
	var list model.TemplateList
	if err := c.r.Get(ctx, "/templates", &list); err != nil {
		return model.TemplateList{}, err
	}
	if list.User == nil {
		list.User = []model.Template{}
	}
	if list.Public == nil {
		list.Public = []model.Template{}
	}
	return list, nil
}

// CreateTemplate stores a new template.
func (c *Client) CreateTemplate(ctx context.Context, tpl model.Template) (model.Template, error) {
	var created model.Template
	if err := c.r.Post(ctx, "/templates", tpl, &created); err != nil {
		return model.Template{}, err
	}
	return created, nil
}

// UpdateTemplate replaces an owned template.
func (c *Client) UpdateTemplate(ctx context.Context, id string, tpl model.Template) (model.Template, error) {
	var updated model.Template
	if err := c.r.Put(ctx, "/templates/"+url.PathEscape(id), tpl, &updated); err != nil {
		return model.Template{}, err
	}
	return updated, nil
}

// DeleteTemplate removes an owned template.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.r.Delete(ctx, "/templates/"+url.PathEscape(id), nil)
}

// UseTemplate returns the template and bumps its usage count.
func (c *Client) UseTemplate(ctx context.Context, id string) (model.Template, error) {
	var tpl model.Template
	if err := c.r.Post(ctx, "/templates/"+url.PathEscape(id)+"/use", nil, &tpl); err != nil {
		return model.Template{}, err
	}
	return tpl, nil
}
