package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/service"
	"github.com/dtroode/zeitnachricht/internal/view"
)

// command runs one subcommand with its arguments.
type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "login -email E -password P", runLogin},
	{"register", "register -email E -password P -name N [-referral CODE]", runRegister},
	{"logout", "logout", runLogout},
	{"whoami", "whoami", runWhoami},
	{"messages", "messages [-status scheduled|delivered]", runMessages},
	{"create", "create -title T -content C (-at TIME | -in DURATION) [-recurring daily|weekly|monthly]", runCreate},
	{"bulk", "bulk -m 'title|content' [-m ...] (-at TIME | -in DURATION) [-interval MINUTES]", runBulk},
	{"delete", "delete ID", runDelete},
	{"calendar", "calendar [-year Y] [-month M]", runCalendar},
	{"plans", "plans", runPlans},
	{"subscribe", "subscribe -plan premium|business", runSubscribe},
	{"checkout", "checkout (-session ID | -url /subscription-success?session_id=ID)", runCheckout},
	{"templates", "templates [list | create -name N -title T -content C [-category C] [-public] | delete ID | use -id ID (-at TIME | -in DURATION)]", runTemplates},
	{"admin", "admin [stats | users | transactions | payouts | analytics [users|messages|revenue|ai|complete] | analytics export [json|csv] | marketing campaigns|templates|social-posts|launch-metrics|launch-checklist]", runAdmin},
	{"payout", "payout -amount A [-description D]", runPayout},
	{"role", "role -user ID -role user|admin", runRole},
	{"lang", "lang [CODE]", runLang},
	{"referral", "referral", runReferral},
	{"sync", "sync", runSync},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: client COMMAND [FLAGS]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

const timeLayout = "02.01.2006 15:04"

// parseWhen resolves -at (RFC 3339 or "2006-01-02 15:04" local time) or -in (a duration from now).
func parseWhen(at string, in time.Duration, now time.Time) (time.Time, error) {
	switch {
	case at != "" && in != 0:
		return time.Time{}, errors.New("use either -at or -in")
	case in != 0:
		return now.Add(in), nil
	case at == "":
		return time.Time{}, errors.New("-at or -in is required")
	}

	if t, err := time.Parse(time.RFC3339, at); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", at, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", at, err)
	}
	return t, nil
}

// messageList collects repeated -m "title|content" flags.
type messageList []model.CreateMessage

func (l *messageList) String() string {
	return fmt.Sprintf("%d messages", len(*l))
}

func (l *messageList) Set(v string) error {
	title, content, ok := strings.Cut(v, "|")
	if !ok {
		return fmt.Errorf("expected title|content, got %q", v)
	}
	*l = append(*l, model.CreateMessage{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)})
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	a.println(a.tr.T("session.welcome", map[string]any{"name": user.Name}))
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	referral := fs.String("referral", "", "referral code of the inviting user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.session.Register(ctx, *email, *password, *name, *referral)
	if err != nil {
		return err
	}
	a.println(a.tr.T("session.welcome", map[string]any{"name": user.Name}))
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	a.println(a.tr.T("auth.logout", nil))
	return nil
}

func (a *app) quota(u *model.UserProfile) string {
	if u.Unlimited() {
		return fmt.Sprintf("%d / %s", u.MonthlyMessagesUsed, a.tr.T("plans.unlimited", nil))
	}
	return fmt.Sprintf("%d / %d", u.MonthlyMessagesUsed, u.MonthlyMessagesLimit)
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	u := a.session.User()

	a.printf("%s <%s>\n", u.Name, u.Email)
	a.printf("%s: %s\n", a.tr.T("plans.current", nil), a.tr.T("plans."+string(u.SubscriptionPlan), nil))
	a.printf("%s %s\n", a.tr.T("plans.messagesUsed", nil), a.quota(u))
	if len(u.Features) > 0 {
		a.printf("%s %s\n", a.tr.T("plans.features", nil), strings.Join(u.Features, ", "))
	}
	if u.IsAdmin() {
		a.println(a.tr.T("admin.title", nil))
	}
	return nil
}

func (a *app) printMessages(msgs []model.Message, emptyKey string) {
	if len(msgs) == 0 {
		a.println(a.tr.T(emptyKey, nil))
		return
	}

	now := a.now()
	for _, m := range msgs {
		status := a.tr.T("time."+string(m.Status), nil)
		a.printf("%s  %s  [%s]  %s\n", m.ID, m.ScheduledTime.Local().Format(timeLayout), status, m.Title)
		if m.IsRecurring && m.RecurringPattern != model.RecurringNone {
			a.printf("    %s\n", a.tr.T("time."+string(m.RecurringPattern), nil))
		}
		if m.DeliveredAt != nil {
			a.printf("    %s %s\n", a.tr.T("delivered.deliveredAt", nil), m.DeliveredAt.Local().Format(timeLayout))
		}
		if m.DueSoon(now) {
			a.printf("    %s\n", a.tr.T("scheduled.dueSoon", nil))
		}
	}
}

func runMessages(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("messages")
	status := fs.String("status", "", "scheduled or delivered")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	dash := a.dashboard()
	if err := dash.RefreshMessages(ctx); err != nil {
		return err
	}

	switch model.MessageStatus(*status) {
	case model.StatusScheduled:
		a.printMessages(dash.Scheduled(), "scheduled.empty")
	case model.StatusDelivered:
		a.printMessages(dash.Delivered(), "delivered.empty")
	case "":
		a.printMessages(dash.Messages(), "scheduled.empty")
	default:
		return fmt.Errorf("unknown status %q", *status)
	}
	return nil
}

func runCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create")
	title := fs.String("title", "", "message title")
	content := fs.String("content", "", "message text")
	at := fs.String("at", "", "delivery time")
	in := fs.Duration("in", 0, "delivery delay from now")
	recurring := fs.String("recurring", "", "daily, weekly or monthly")
	if err := fs.Parse(args); err != nil {
		return err
	}
	when, err := parseWhen(*at, *in, a.now())
	if err != nil {
		return err
	}

	msg, err := a.dashboard().CreateMessage(ctx, model.CreateMessage{
		Title:            *title,
		Content:          *content,
		ScheduledTime:    when,
		IsRecurring:      *recurring != "",
		RecurringPattern: model.RecurringPattern(*recurring),
	})
	if err != nil {
		return err
	}
	a.printf("%s (%s)\n", a.tr.T("message.createSuccess", nil), msg.ID)
	return nil
}

func runBulk(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("bulk")
	var msgs messageList
	fs.Var(&msgs, "m", "title|content, repeatable")
	at := fs.String("at", "", "delivery time of the first message")
	in := fs.Duration("in", 0, "delivery delay of the first message")
	interval := fs.Int("interval", 0, "minutes between messages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	when, err := parseWhen(*at, *in, a.now())
	if err != nil {
		return err
	}
	for i := range msgs {
		msgs[i].ScheduledTime = when
	}

	res, err := a.dashboard().CreateBulk(ctx, model.BulkMessages{Messages: msgs, TimeInterval: *interval})
	if err != nil {
		return err
	}
	a.println(a.tr.T("bulk.result", map[string]any{"success": res.SuccessCount, "failed": res.FailedCount}))
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("delete takes exactly one message id")
	}
	if err := a.requireAuth(); err != nil {
		return err
	}
	if err := a.dashboard().DeleteMessage(ctx, args[0]); err != nil {
		return err
	}
	a.println(a.tr.T("message.deleteSuccess", nil))
	return nil
}

func runCalendar(ctx context.Context, a *app, args []string) error {
	now := a.now()
	fs := newFlagSet("calendar")
	year := fs.Int("year", now.Year(), "year")
	month := fs.Int("month", int(now.Month()), "month 1-12")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	cal, err := a.dashboard().Calendar(ctx, *year, time.Month(*month))
	if err != nil {
		return err
	}

	days := make([]string, 0, len(cal.Days))
	for day := range cal.Days {
		days = append(days, day)
	}
	sort.Strings(days)

	a.printf("%04d-%02d\n", cal.Year, cal.Month)
	for _, day := range days {
		a.printf("%s\n", day)
		for _, m := range cal.Days[day] {
			a.printf("  %s  %s\n", m.ScheduledTime.Local().Format("15:04"), m.Title)
		}
	}
	return nil
}

func runPlans(ctx context.Context, a *app, _ []string) error {
	plans, err := a.api.Plans(ctx)
	if err != nil {
		return err
	}

	current := model.Plan("")
	if u := a.session.User(); u != nil {
		current = u.SubscriptionPlan
	}

	for _, key := range []model.Plan{model.PlanFree, model.PlanPremium, model.PlanBusiness} {
		p, ok := plans[string(key)]
		if !ok {
			continue
		}
		limit := a.tr.T("plans.unlimited", nil)
		if p.MonthlyMessages != model.UnlimitedMessages {
			limit = fmt.Sprint(p.MonthlyMessages)
		}
		marker := ""
		if key == current {
			marker = "  (" + a.tr.T("plans.current", nil) + ")"
		}
		a.printf("%s  %.2f €%s  %s%s\n", a.tr.T("plans."+string(key), nil), p.Price, a.tr.T("plans.month", nil), limit, marker)
	}
	return nil
}

func runSubscribe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("subscribe")
	plan := fs.String("plan", "", "premium or business")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	co, err := a.dashboard().Subscribe(ctx, model.Plan(*plan))
	if err != nil {
		return err
	}
	a.println(a.tr.T("plans.upgrade", map[string]any{"plan": a.tr.T("plans."+*plan, nil)}))
	a.println(co.CheckoutURL)
	if co.SessionID != "" {
		a.printf("client checkout -session %s\n", co.SessionID)
	}
	return nil
}

// checkoutSession extracts the checkout id from a return URL, applying the
// router so only an authenticated visit to the success page is accepted.
func (a *app) checkoutSession(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	route := a.router.Resolve(u.Path)
	if route.View != view.ViewSubscriptionSuccess {
		if a.router.State() != view.StateAuthenticated {
			return "", model.ErrNotAuthenticated
		}
		return "", fmt.Errorf("%s is not the subscription success page", u.Path)
	}
	return u.Query().Get("session_id"), nil
}

func runCheckout(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("checkout")
	session := fs.String("session", "", "checkout session id")
	returnURL := fs.String("url", "", "return URL of the payment provider")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	id := *session
	if *returnURL != "" {
		var err error
		if id, err = a.checkoutSession(*returnURL); err != nil {
			return err
		}
	}

	a.println(a.tr.T("checkout.pending", nil))
	checkout := service.NewCheckout(a.api, a.session, a.cfg.Sync.CheckoutInterval, a.logger)
	if err := checkout.Confirm(ctx, id); err != nil {
		if checkout.State() == service.CheckoutFailed {
			a.println(a.tr.T("checkout.failed", nil))
		}
		return err
	}

	a.println(a.tr.T("checkout.confirmed", nil))
	if u := a.session.User(); u != nil && u.SubscriptionPlan != model.PlanFree {
		a.println(a.tr.T("plans.welcomePremium", nil))
	}
	return nil
}

func runTemplates(ctx context.Context, a *app, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	dash := a.dashboard()

	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		list, err := dash.Templates(ctx)
		if err != nil {
			return err
		}
		for _, group := range [][]model.Template{list.User, list.Public} {
			for _, t := range group {
				public := ""
				if t.IsPublic {
					public = " *"
				}
				a.printf("%s  %s  [%s]%s  %s\n", t.ID, t.Name, t.Category, public, t.Title)
			}
		}
		return nil

	case "create":
		fs := newFlagSet("templates create")
		name := fs.String("name", "", "template name")
		title := fs.String("title", "", "message title")
		content := fs.String("content", "", "message text")
		category := fs.String("category", "personal", "category")
		public := fs.Bool("public", false, "share with all users")
		if err := fs.Parse(args); err != nil {
			return err
		}
		tpl, err := dash.CreateTemplate(ctx, model.Template{Name: *name, Title: *title, Content: *content, Category: *category, IsPublic: *public})
		if err != nil {
			return err
		}
		a.println(tpl.ID)
		return nil

	case "delete":
		if len(args) != 1 {
			return errors.New("templates delete takes exactly one template id")
		}
		return dash.DeleteTemplate(ctx, args[0])

	case "use":
		fs := newFlagSet("templates use")
		id := fs.String("id", "", "template id")
		at := fs.String("at", "", "delivery time")
		in := fs.Duration("in", 0, "delivery delay from now")
		if err := fs.Parse(args); err != nil {
			return err
		}
		when, err := parseWhen(*at, *in, a.now())
		if err != nil {
			return err
		}
		draft, err := dash.UseTemplate(ctx, *id, when)
		if err != nil {
			return err
		}
		msg, err := dash.CreateMessage(ctx, draft)
		if err != nil {
			return err
		}
		a.printf("%s (%s)\n", a.tr.T("message.createSuccess", nil), msg.ID)
		return nil

	default:
		return fmt.Errorf("unknown templates command %q", sub)
	}
}

var statsLabels = []struct {
	field string
	key   string
}{
	{"total_users", "admin.totalUsers"},
	{"premium_users", "admin.premiumUsers"},
	{"monthly_revenue", "admin.monthlyRevenue"},
	{"total_revenue", "payout.totalRevenue"},
	{"available_balance", "admin.availableBalance"},
	{"pending_payouts", "payout.pendingPayouts"},
}

func runAdmin(ctx context.Context, a *app, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if !a.session.User().IsAdmin() {
		return model.ErrAdminOnly
	}
	dash := a.dashboard()

	sub := "stats"
	if len(args) > 0 {
		sub = args[0]
	}

	var (
		agg model.Aggregate
		err error
	)
	switch sub {
	case "stats":
		agg, err = a.api.AdminStats(ctx)
		if err != nil {
			return a.session.Check(err)
		}
		a.println(a.tr.T("admin.stats", nil))
		for _, l := range statsLabels {
			if v, ok := agg[l.field]; ok {
				a.printf("  %s: %v\n", a.tr.T(l.key, nil), v)
			}
		}
		return nil
	case "users":
		agg, err = dash.AdminUsers(ctx)
	case "transactions":
		agg, err = dash.AdminTransactions(ctx)
	case "payouts":
		agg, err = dash.AdminPayouts(ctx)
	case "analytics":
		agg, err = adminAnalytics(ctx, dash, args[1:])
	case "marketing":
		if len(args) < 2 {
			return fmt.Errorf("%w: marketing needs a resource", model.ErrInvalidReport)
		}
		agg, err = dash.Marketing(ctx, model.Marketing(args[1]))
	default:
		return fmt.Errorf("unknown admin command %q", sub)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format %s: %w", sub, err)
	}
	a.println(string(out))
	return nil
}

func adminAnalytics(ctx context.Context, dash *service.Dashboard, args []string) (model.Aggregate, error) {
	report := model.AnalyticsComplete
	if len(args) > 0 {
		report = model.Analytics(args[0])
	}
	if report != "export" {
		return dash.Analytics(ctx, report)
	}

	format := model.ExportJSON
	if len(args) > 1 {
		format = model.ExportFormat(args[1])
	}
	return dash.ExportAnalytics(ctx, format)
}

func runPayout(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("payout")
	amount := fs.Float64("amount", 0, "amount in EUR")
	description := fs.String("description", "", "booking text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	if err := a.dashboard().RequestPayout(ctx, *amount, *description); err != nil {
		return err
	}
	a.println(a.tr.T("payout.processing", nil))
	return nil
}

func runRole(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("role")
	userID := fs.String("user", "", "user id")
	role := fs.String("role", "", "user or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	return a.dashboard().UpdateUserRole(ctx, *userID, model.Role(*role))
}

func runLang(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		if err := a.tr.SetLanguage(ctx, args[0]); err != nil {
			return err
		}
	}

	for _, code := range a.tr.Languages() {
		marker := " "
		if code == a.tr.Language() {
			marker = "*"
		}
		name := code
		switch code {
		case "de":
			name = a.tr.T("lang.german", nil)
		case "en":
			name = a.tr.T("lang.english", nil)
		}
		a.printf("%s %s  %s\n", marker, code, name)
	}
	return nil
}

func runReferral(_ context.Context, a *app, _ []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	u := a.session.User()

	a.println(a.tr.T("referral.title", nil))
	a.printf("%s: %s\n", a.tr.T("referral.yourCode", nil), u.ReferralCode)
	a.printf("%s: %d\n", a.tr.T("referral.invitedFriends", nil), u.ReferredCount)
	a.printf("%s: %d\n", a.tr.T("referral.bonusMessages", nil), u.ReferredCount*5)
	if u.ReferralCode != "" {
		a.println(strings.TrimRight(a.cfg.API.FrontendURL, "/") + "/?ref=" + url.QueryEscape(u.ReferralCode))
	}
	a.println(a.tr.T("referral.howItWorks", nil))
	for _, step := range []string{"referral.step1", "referral.step2", "referral.step3"} {
		a.printf("  - %s\n", a.tr.T(step, nil))
	}
	return nil
}
