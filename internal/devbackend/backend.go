// Package devbackend is an in-memory stand-in for the scheduled-messaging REST
// backend. It implements the endpoints the client uses so the client can be
// run and tested end to end without the hosted service.
package devbackend

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
)

// ReferralBonus is the number of extra monthly messages granted to a referred user.
const ReferralBonus = 5

// FreeMonthlyMessages is the monthly quota of the free plan.
const FreeMonthlyMessages = 5

// Plans is the plan catalogue served by /subscriptions/plans.
var Plans = map[model.Plan]model.SubscriptionPlan{
	model.PlanFree: {
		Name:            "Kostenlos",
		Price:           0,
		MonthlyMessages: FreeMonthlyMessages,
		Features:        []string{"basic_scheduling"},
	},
	model.PlanPremium: {
		Name:            "Premium",
		Price:           9.99,
		MonthlyMessages: model.UnlimitedMessages,
		Features:        []string{"basic_scheduling", "recurring_messages", "bulk_messages", "templates"},
	},
	model.PlanBusiness: {
		Name:            "Business",
		Price:           29.99,
		MonthlyMessages: model.UnlimitedMessages,
		Features:        []string{"basic_scheduling", "recurring_messages", "bulk_messages", "templates", "priority_delivery"},
	},
}

// Error is a request failure reported to the client as {"detail": ...}.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Detail)
}

func newError(status int, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

var (
	errInvalidCredentials = newError(http.StatusUnauthorized, "Invalid credentials")
	errInvalidToken       = newError(http.StatusUnauthorized, "Could not validate credentials")
	errAdminOnly          = newError(http.StatusForbidden, "Admin access required")
	errMessageNotFound    = newError(http.StatusNotFound, "Message not found")
	errTemplateNotFound   = newError(http.StatusNotFound, "Template not found")
	errUserNotFound       = newError(http.StatusNotFound, "User not found")
	errSessionNotFound    = newError(http.StatusNotFound, "Session not found")
	errLimitReached       = newError(http.StatusForbidden, "Monthly message limit reached. Upgrade your plan for unlimited messages.")
	errRecurringPaidOnly  = newError(http.StatusForbidden, "Recurring messages require a premium or business plan")
	errBulkPaidOnly       = newError(http.StatusForbidden, "Bulk messages require a premium or business plan")
	errInsufficientFunds  = newError(http.StatusBadRequest, "Nicht genügend Guthaben verfügbar")
)

type user struct {
	profile      model.UserProfile
	passwordHash []byte
	usageMonth   string
	createdAt    time.Time
}

type message struct {
	model.Message
	ownerID string
}

type checkout struct {
	id     string
	userID string
	plan   model.Plan
	paid   bool
}

type transaction struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	UserEmail string     `json:"user_email"`
	Plan      model.Plan `json:"plan"`
	Amount    float64    `json:"amount"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type payout struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	AdminEmail  string    `json:"admin_email"`
	CreatedAt   time.Time `json:"created_at"`
}

// Option configures Backend.
type Option func(*Backend)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// WithAdmin seeds an admin account.
func WithAdmin(email, password string) Option {
	return func(b *Backend) {
		b.adminEmail = email
		b.adminPassword = password
	}
}

// Backend holds all backend state in memory.
type Backend struct {
	tokens model.TokenManager
	logger *logger.Logger
	now    func() time.Time

	adminEmail    string
	adminPassword string

	mu           sync.Mutex
	users        map[string]*user
	emails       map[string]string
	referrals    map[string]string
	messages     map[string]*message
	checkouts    map[string]*checkout
	templates    map[string]*model.Template
	transactions []transaction
	payouts      []payout
	balance      float64
}

// New creates an empty backend issuing tokens with tokens.
func New(tokens model.TokenManager, logger *logger.Logger, opts ...Option) (*Backend, error) {
	b := &Backend{
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
		users:     make(map[string]*user),
		emails:    make(map[string]string),
		referrals: make(map[string]string),
		messages:  make(map[string]*message),
		checkouts: make(map[string]*checkout),
		templates: make(map[string]*model.Template),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, tpl := range publicTemplates {
		tpl.ID = uuid.NewString()
		tpl.IsPublic = true
		b.templates[tpl.ID] = &tpl
	}

	if b.adminEmail != "" {
		u, err := b.createUser(b.adminEmail, b.adminPassword, "Administrator")
		if err != nil {
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
		u.profile.Role = model.RoleAdmin
		b.setPlan(u, model.PlanBusiness)
	}

	return b, nil
}

var publicTemplates = []model.Template{
	{Name: "Geburtstag", Title: "Alles Gute zum Geburtstag!", Content: "Liebe Grüße und alles Gute zu deinem Geburtstag!", Category: "personal"},
	{Name: "Termin", Title: "Erinnerung an deinen Termin", Content: "Denk an deinen Termin heute.", Category: "business"},
	{Name: "Follow-up", Title: "Kurze Nachfrage", Content: "Ich wollte kurz nachfragen, ob du meine letzte Nachricht gesehen hast.", Category: "business"},
}

// Authenticate resolves a bearer token to a user id.
func (b *Backend) Authenticate(token string) (string, error) {
	if token == "" {
		return "", errInvalidToken
	}
	userID, err := b.tokens.ParseAccessToken(token)
	if err != nil {
		return "", errInvalidToken
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[userID]; !ok {
		return "", errInvalidToken
	}
	return userID, nil
}

// Register creates a free account and returns a token for it.
func (b *Backend) Register(reg model.Registration) (model.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" || reg.Password == "" || strings.TrimSpace(reg.Name) == "" {
		return model.AuthResult{}, newError(http.StatusBadRequest, "Email, password and name are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.emails[email]; ok {
		return model.AuthResult{}, newError(http.StatusBadRequest, "Email already registered")
	}

	u, err := b.createUser(email, reg.Password, strings.TrimSpace(reg.Name))
	if err != nil {
		return model.AuthResult{}, err
	}

	if code := strings.ToUpper(strings.TrimSpace(reg.ReferralCode)); code != "" {
		if referrerID, ok := b.referrals[code]; ok && referrerID != u.profile.ID {
			b.users[referrerID].profile.ReferredCount++
			u.profile.MonthlyMessagesLimit += ReferralBonus
			b.logger.Info("Dev backend: referral applied",
				"user_id", u.profile.ID,
				"referrer_id", referrerID)
		}
	}

	b.logger.Info("Dev backend: user registered",
		"user_id", u.profile.ID,
		"email", email)

	return b.authResult(u)
}

// Login checks the password and returns a fresh token.
func (b *Backend) Login(creds model.Credentials) (model.AuthResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.emails[strings.ToLower(strings.TrimSpace(creds.Email))]
	if !ok {
		return model.AuthResult{}, errInvalidCredentials
	}
	u := b.users[id]
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(creds.Password)); err != nil {
		return model.AuthResult{}, errInvalidCredentials
	}

	return b.authResult(u)
}

// Me returns the profile of userID.
func (b *Backend) Me(userID string) (model.UserProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[userID]
	if !ok {
		return model.UserProfile{}, errUserNotFound
	}
	b.rollUsage(u)
	return *u.profile.Clone(), nil
}

func (b *Backend) createUser(email, password, name string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.NewString()
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	u := &user{
		profile: model.UserProfile{
			ID:           id,
			Name:         name,
			Email:        email,
			Role:         model.RoleUser,
			ReferralCode: code,
		},
		passwordHash: hash,
		usageMonth:   monthKey(b.now()),
		createdAt:    b.now().UTC(),
	}
	b.setPlan(u, model.PlanFree)

	b.users[id] = u
	b.emails[email] = id
	b.referrals[code] = id
	return u, nil
}

func (b *Backend) authResult(u *user) (model.AuthResult, error) {
	token, err := b.tokens.GenerateAccessToken(u.profile.ID)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return model.AuthResult{
		AccessToken: token,
		TokenType:   "bearer",
		User:        *u.profile.Clone(),
	}, nil
}

// setPlan keeps a referral bonus on the free plan when switching back to it.
func (b *Backend) setPlan(u *user, plan model.Plan) {
	p := Plans[plan]
	bonus := 0
	if u.profile.SubscriptionPlan == model.PlanFree && u.profile.MonthlyMessagesLimit > FreeMonthlyMessages {
		bonus = u.profile.MonthlyMessagesLimit - FreeMonthlyMessages
	}
	u.profile.SubscriptionPlan = plan
	u.profile.Features = append([]string(nil), p.Features...)
	u.profile.MonthlyMessagesLimit = p.MonthlyMessages
	if plan == model.PlanFree {
		u.profile.MonthlyMessagesLimit += bonus
	}
}

// rollUsage resets the monthly counter when a new month started.
func (b *Backend) rollUsage(u *user) {
	if m := monthKey(b.now()); m != u.usageMonth {
		u.usageMonth = m
		u.profile.MonthlyMessagesUsed = 0
	}
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CreateMessage schedules a message for userID.
func (b *Backend) CreateMessage(userID string, req model.CreateMessage) (model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[userID]
	if !ok {
		return model.Message{}, errInvalidToken
	}
	b.rollUsage(u)

	if err := b.checkMessage(u, req); err != nil {
		return model.Message{}, err
	}
	if u.profile.AtMessageLimit() {
		return model.Message{}, errLimitReached
	}

	return b.storeMessage(u, req), nil
}

func (b *Backend) checkMessage(u *user, req model.CreateMessage) error {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return newError(http.StatusBadRequest, "Title and content are required")
	}
	if !req.ScheduledTime.After(b.now()) {
		return newError(http.StatusBadRequest, "Scheduled time must be in the future")
	}
	if req.IsRecurring && !u.profile.CanUseRecurring() {
		return errRecurringPaidOnly
	}
	return nil
}

func (b *Backend) storeMessage(u *user, req model.CreateMessage) model.Message {
	m := &message{
		Message: model.Message{
			ID:            uuid.NewString(),
			Title:         req.Title,
			Content:       req.Content,
			ScheduledTime: req.ScheduledTime.UTC(),
			Status:        model.StatusScheduled,
			IsRecurring:   req.IsRecurring,
			CreatedAt:     b.now().UTC(),
		},
		ownerID: u.profile.ID,
	}
	if req.IsRecurring {
		m.RecurringPattern = req.RecurringPattern
	}
	b.messages[m.ID] = m
	u.profile.MonthlyMessagesUsed++
	return m.Message
}

// CreateBulk schedules several messages. Message i is shifted by i*TimeInterval minutes.
func (b *Backend) CreateBulk(userID string, req model.BulkMessages) (model.BulkResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[userID]
	if !ok {
		return model.BulkResult{}, errInvalidToken
	}
	if !u.profile.CanUseRecurring() {
		return model.BulkResult{}, errBulkPaidOnly
	}
	if len(req.Messages) == 0 {
		return model.BulkResult{}, newError(http.StatusBadRequest, "No messages provided")
	}
	if req.TimeInterval < 0 {
		return model.BulkResult{}, newError(http.StatusBadRequest, "Time interval must not be negative")
	}
	b.rollUsage(u)

	res := model.BulkResult{CreatedMessages: []string{}}
	for i, msg := range req.Messages {
		msg.ScheduledTime = msg.ScheduledTime.Add(time.Duration(i*req.TimeInterval) * time.Minute)
		if err := b.checkMessage(u, msg); err != nil || u.profile.AtMessageLimit() {
			res.FailedCount++
			continue
		}
		res.CreatedMessages = append(res.CreatedMessages, b.storeMessage(u, msg).ID)
		res.SuccessCount++
	}
	return res, nil
}

// Messages returns the messages of userID sorted by scheduled time.
func (b *Backend) Messages(userID string, status model.MessageStatus) []model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := []model.Message{}
	for _, m := range b.messages {
		if m.ownerID == userID && (status == "" || m.Status == status) {
			out = append(out, m.Message)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out
}

// Delivered returns the delivered messages of userID, most recent first.
func (b *Backend) Delivered(userID string) []model.Message {
	out := b.Messages(userID, model.StatusDelivered)
	sort.SliceStable(out, func(i, j int) bool {
		return deliveredAt(out[i]).After(deliveredAt(out[j]))
	})
	return out
}

func deliveredAt(m model.Message) time.Time {
	if m.DeliveredAt == nil {
		return time.Time{}
	}
	return *m.DeliveredAt
}

// DeleteMessage removes a message owned by userID.
func (b *Backend) DeleteMessage(userID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.messages[id]
	if !ok || m.ownerID != userID {
		return errMessageNotFound
	}
	delete(b.messages, id)
	return nil
}

// Calendar groups the messages of one month by UTC day.
func (b *Backend) Calendar(userID string, year, month int) (model.Calendar, error) {
	if month < 1 || month > 12 {
		return model.Calendar{}, newError(http.StatusBadRequest, "Invalid month")
	}

	cal := model.Calendar{Year: year, Month: month, Days: map[string][]model.Message{}}
	for _, m := range b.Messages(userID, "") {
		t := m.ScheduledTime.UTC()
		if t.Year() != year || int(t.Month()) != month {
			continue
		}
		day := t.Format(time.DateOnly)
		cal.Days[day] = append(cal.Days[day], m)
	}
	return cal, nil
}

// DeliverDue marks every scheduled message due at now as delivered and returns how many were.
func (b *Backend) DeliverDue(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, m := range b.messages {
		if m.Status != model.StatusScheduled || m.ScheduledTime.After(now) {
			continue
		}
		at := now.UTC()
		m.Status = model.StatusDelivered
		m.DeliveredAt = &at
		n++
	}
	if n > 0 {
		b.logger.Info("Dev backend: messages delivered",
			"count", n)
	}
	return n
}

// Subscribe opens a checkout session for a paid plan.
func (b *Backend) Subscribe(userID string, plan model.Plan) (string, error) {
	if plan != model.PlanPremium && plan != model.PlanBusiness {
		return "", newError(http.StatusBadRequest, "Invalid plan")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	b.checkouts[id] = &checkout{id: id, userID: userID, plan: plan}
	b.logger.Info("Dev backend: checkout created",
		"user_id", userID,
		"session_id", id,
		"plan", plan)
	return id, nil
}

// CheckoutStatus reports whether a checkout session was paid.
func (b *Backend) CheckoutStatus(id string) (model.CheckoutStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	co, ok := b.checkouts[id]
	if !ok {
		return model.CheckoutStatus{}, errSessionNotFound
	}
	if co.paid {
		return model.CheckoutStatus{PaymentStatus: model.PaymentPaid, Status: "complete"}, nil
	}
	return model.CheckoutStatus{PaymentStatus: "unpaid", Status: "open"}, nil
}

// PayCheckout completes a checkout session and upgrades its user. Paying twice is a no-op.
func (b *Backend) PayCheckout(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	co, ok := b.checkouts[id]
	if !ok {
		return errSessionNotFound
	}
	if co.paid {
		return nil
	}
	u, ok := b.users[co.userID]
	if !ok {
		return errUserNotFound
	}

	co.paid = true
	b.setPlan(u, co.plan)
	price := Plans[co.plan].Price
	b.balance += price
	b.transactions = append(b.transactions, transaction{
		ID:        uuid.NewString(),
		UserID:    u.profile.ID,
		UserEmail: u.profile.Email,
		Plan:      co.plan,
		Amount:    price,
		Status:    "completed",
		CreatedAt: b.now().UTC(),
	})

	b.logger.Info("Dev backend: checkout paid",
		"session_id", id,
		"user_id", u.profile.ID,
		"plan", co.plan)
	return nil
}

func (b *Backend) requireAdmin(userID string) error {
	u, ok := b.users[userID]
	if !ok || u.profile.Role != model.RoleAdmin {
		return errAdminOnly
	}
	return nil
}

// Stats returns the admin dashboard statistics.
func (b *Backend) Stats(userID string) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}

	now := b.now().UTC()
	var premium, business int
	for _, u := range b.users {
		switch u.profile.SubscriptionPlan {
		case model.PlanPremium:
			premium++
		case model.PlanBusiness:
			business++
		}
	}

	var total, monthly float64
	for _, tx := range b.transactions {
		total += tx.Amount
		if monthKey(tx.CreatedAt) == monthKey(now) {
			monthly += tx.Amount
		}
	}

	var pending float64
	for _, p := range b.payouts {
		if p.Status == "pending" {
			pending += p.Amount
		}
	}

	var today, month int
	for _, m := range b.messages {
		if m.DeliveredAt == nil {
			continue
		}
		if m.DeliveredAt.Format(time.DateOnly) == now.Format(time.DateOnly) {
			today++
		}
		if monthKey(*m.DeliveredAt) == monthKey(now) {
			month++
		}
	}

	return model.Aggregate{
		"total_users":         len(b.users),
		"premium_users":       premium,
		"business_users":      business,
		"total_revenue":       total,
		"monthly_revenue":     monthly,
		"available_balance":   b.balance,
		"pending_payouts":     pending,
		"messages_sent_today": today,
		"messages_sent_month": month,
	}, nil
}

// Users lists all accounts.
func (b *Backend) Users(userID string) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}

	users := make([]map[string]any, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, map[string]any{
			"id":                     u.profile.ID,
			"name":                   u.profile.Name,
			"email":                  u.profile.Email,
			"role":                   u.profile.Role,
			"subscription_plan":      u.profile.SubscriptionPlan,
			"monthly_messages_used":  u.profile.MonthlyMessagesUsed,
			"monthly_messages_limit": u.profile.MonthlyMessagesLimit,
			"created_at":             u.createdAt,
		})
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i]["created_at"].(time.Time).After(users[j]["created_at"].(time.Time))
	})
	return model.Aggregate{"users": users}, nil
}

// Transactions lists completed payments.
func (b *Backend) Transactions(userID string) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}
	return model.Aggregate{"transactions": append([]transaction{}, b.transactions...)}, nil
}

// Payouts lists payout requests.
func (b *Backend) Payouts(userID string) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}
	return model.Aggregate{"payouts": append([]payout{}, b.payouts...)}, nil
}

// RequestPayout books a pending payout against the available balance.
func (b *Backend) RequestPayout(userID string, req model.PayoutRequest) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, newError(http.StatusBadRequest, "Amount must be greater than zero")
	}
	if req.Amount > b.balance {
		return nil, errInsufficientFunds
	}

	p := payout{
		ID:          uuid.NewString(),
		Amount:      req.Amount,
		Description: req.Description,
		Status:      "pending",
		AdminEmail:  b.users[userID].profile.Email,
		CreatedAt:   b.now().UTC(),
	}
	b.balance -= req.Amount
	b.payouts = append(b.payouts, p)

	return model.Aggregate{"payout_id": p.ID, "amount": p.Amount, "status": p.Status}, nil
}

// UpdateRole changes the role of target.
func (b *Backend) UpdateRole(userID, target string, role model.Role) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return err
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return newError(http.StatusBadRequest, "Invalid role")
	}
	u, ok := b.users[target]
	if !ok {
		return errUserNotFound
	}
	u.profile.Role = role
	return nil
}

// Templates returns the templates of userID and all public templates of others.
func (b *Backend) Templates(userID string) model.TemplateList {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := model.TemplateList{User: []model.Template{}, Public: []model.Template{}}
	for _, tpl := range b.templates {
		switch {
		case tpl.OwnerID == userID:
			list.User = append(list.User, *tpl)
		case tpl.IsPublic:
			list.Public = append(list.Public, *tpl)
		}
	}
	byName := func(s []model.Template) func(i, j int) bool {
		return func(i, j int) bool { return s[i].Name < s[j].Name }
	}
	sort.Slice(list.User, byName(list.User))
	sort.Slice(list.Public, byName(list.Public))
	return list
}

// CreateTemplate stores a template owned by userID.
func (b *Backend) CreateTemplate(userID string, tpl model.Template) (model.Template, error) {
	if err := checkTemplate(tpl); err != nil {
		return model.Template{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tpl.ID = uuid.NewString()
	tpl.OwnerID = userID
	tpl.UsageCount = 0
	b.templates[tpl.ID] = &tpl
	return tpl, nil
}

// UpdateTemplate replaces a template owned by userID.
func (b *Backend) UpdateTemplate(userID, id string, tpl model.Template) (model.Template, error) {
	if err := checkTemplate(tpl); err != nil {
		return model.Template{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.templates[id]
	if !ok || cur.OwnerID != userID {
		return model.Template{}, errTemplateNotFound
	}
	tpl.ID = id
	tpl.OwnerID = userID
	tpl.UsageCount = cur.UsageCount
	*cur = tpl
	return tpl, nil
}

// DeleteTemplate removes a template owned by userID.
func (b *Backend) DeleteTemplate(userID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.templates[id]
	if !ok || cur.OwnerID != userID {
		return errTemplateNotFound
	}
	delete(b.templates, id)
	return nil
}

// UseTemplate returns a visible template and counts the use.
func (b *Backend) UseTemplate(userID, id string) (model.Template, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tpl, ok := b.templates[id]
	if !ok || (tpl.OwnerID != userID && !tpl.IsPublic) {
		return model.Template{}, errTemplateNotFound
	}
	tpl.UsageCount++
	return *tpl, nil
}

func checkTemplate(tpl model.Template) error {
	if strings.TrimSpace(tpl.Name) == "" || strings.TrimSpace(tpl.Title) == "" || strings.TrimSpace(tpl.Content) == "" {
		return newError(http.StatusBadRequest, "Name, title and content are required")
	}
	return nil
}

// AsError extracts the client-facing error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
