package devbackend

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/dtroode/zeitnachricht/internal/model"
)

var (
	errUnknownReport = newError(http.StatusNotFound, "Analytics report not found")
	errUnknownExport = newError(http.StatusBadRequest, "Invalid export format. Use 'json' or 'csv'")
	errUnknownMarket = newError(http.StatusNotFound, "Marketing resource not found")
)

// count is one bucket of a trend series, keyed like the hosted backend's
// aggregation output.
type count struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}

type marketingTemplate struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Subject   string   `json:"subject,omitempty"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
	Category  string   `json:"category"`
}

type socialPost struct {
	Platform string   `json:"platform"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

type checklistItem struct {
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

type checklistCategory struct {
	Category string          `json:"category"`
	Items    []checklistItem `json:"items"`
}

var predefinedTemplates = []marketingTemplate{
	{
		ID:        "welcome_email",
		Name:      "Willkommens-E-Mail",
		Type:      "email",
		Subject:   "Willkommen bei Zeitgesteuerte Nachrichten, {{first_name}}!",
		Content:   "Hallo {{first_name}},\n\nplane deine erste Nachricht und teile deinen Empfehlungscode {{referral_code}}.",
		Variables: []string{"first_name", "referral_code"},
		Category:  "welcome",
	},
	{
		ID:        "premium_upgrade",
		Name:      "Premium-Upgrade",
		Type:      "email",
		Subject:   "Unbegrenzte Nachrichten für {{price}}",
		Content:   "Du hast {{messages_used}} von {{messages_limit}} Nachrichten genutzt. Mit Premium planst du ohne Limit.",
		Variables: []string{"price", "messages_used", "messages_limit"},
		Category:  "conversion",
	},
	{
		ID:        "launch_post",
		Name:      "Launch-Post",
		Type:      "social_post",
		Content:   "{{app_name}} ist live! {{feature_highlight}} #Deutschland #Innovation",
		Variables: []string{"app_name", "feature_highlight"},
		Category:  "social_media",
	},
}

var readyToUsePosts = []socialPost{
	{Platform: "twitter", Content: "Zeitgesteuerte Nachrichten ist live! Plane heute, was morgen ankommen soll.", Hashtags: []string{"#Deutschland", "#Innovation"}},
	{Platform: "linkedin", Content: "Geplante Zustellung für Teams: Erinnerungen und Ankündigungen genau zur richtigen Zeit.", Hashtags: []string{"#Produktivität", "#BusinessEffizienz"}},
	{Platform: "facebook", Content: "Neu: Nachrichten für die Zukunft schreiben. Jetzt kostenlos testen!", Hashtags: []string{"#Kostenlos", "#Deutschland"}},
	{Platform: "instagram", Content: "Heute schreiben, später zustellen. So einfach war Planung noch nie.", Hashtags: []string{"#App", "#Innovation"}},
}

// Analytics returns one analytics report.
func (b *Backend) Analytics(userID string, report model.Analytics) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}

	now := b.now().UTC()
	switch report {
	case model.AnalyticsUsers:
		return b.userAnalytics(), nil
	case model.AnalyticsMessages:
		return b.messageAnalytics(), nil
	case model.AnalyticsRevenue:
		return b.revenueAnalytics(now), nil
	case model.AnalyticsAI:
		return aiAnalytics(), nil
	case model.AnalyticsComplete:
		return b.completeAnalytics(now), nil
	}
	return nil, errUnknownReport
}

// ExportAnalytics exports the complete analytics. JSON carries the data
// inline, CSV only a download link.
func (b *Backend) ExportAnalytics(userID string, format model.ExportFormat) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}

	now := b.now().UTC()
	switch format {
	case model.ExportJSON:
		return model.Aggregate{
			"format":      format,
			"data":        b.completeAnalytics(now),
			"exported_at": now,
		}, nil
	case model.ExportCSV:
		return model.Aggregate{
			"format":       format,
			"message":      "CSV export generated",
			"download_url": APIPrefix + "/admin/analytics/export/analytics-" + now.Format(time.DateOnly) + ".csv",
			"exported_at":  now,
		}, nil
	}
	return nil, errUnknownExport
}

// Marketing returns a read-only marketing resource.
func (b *Backend) Marketing(userID string, resource model.Marketing) (model.Aggregate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireAdmin(userID); err != nil {
		return nil, err
	}

	switch resource {
	case model.MarketingCampaigns:
		return model.Aggregate{"campaigns": []any{}}, nil
	case model.MarketingTemplates:
		return model.Aggregate{
			"predefined_templates": predefinedTemplates,
			"custom_templates":     []marketingTemplate{},
		}, nil
	case model.MarketingSocialPosts:
		return model.Aggregate{
			"ready_to_use_posts": readyToUsePosts,
			"custom_posts":       []socialPost{},
		}, nil
	case model.MarketingLaunchMetrics:
		return b.launchMetrics(b.now().UTC()), nil
	case model.MarketingLaunchChecklist:
		return model.Aggregate{"checklist": b.launchChecklist()}, nil
	}
	return nil, errUnknownMarket
}

func (b *Backend) completeAnalytics(now time.Time) model.Aggregate {
	return model.Aggregate{
		"user_analytics":    b.userAnalytics(),
		"message_analytics": b.messageAnalytics(),
		"revenue_analytics": b.revenueAnalytics(now),
		"ai_analytics":      aiAnalytics(),
		"generated_at":      now,
	}
}

func (b *Backend) userAnalytics() model.Aggregate {
	registrations := make(map[string]int)
	var paid int
	referrers := make([]count, 0)
	for _, u := range b.users {
		registrations[u.createdAt.UTC().Format(time.DateOnly)]++
		if u.profile.SubscriptionPlan != model.PlanFree {
			paid++
		}
		if u.profile.ReferredCount > 0 {
			referrers = append(referrers, count{Key: u.profile.ReferralCode, Count: u.profile.ReferredCount})
		}
	}
	sort.Slice(referrers, func(i, j int) bool {
		if referrers[i].Count != referrers[j].Count {
			return referrers[i].Count > referrers[j].Count
		}
		return referrers[i].Key < referrers[j].Key
	})
	if len(referrers) > 10 {
		referrers = referrers[:10]
	}

	active := make(map[string]bool)
	hours := make(map[string]int)
	for _, m := range b.messages {
		active[m.ownerID] = true
		hours[m.CreatedAt.UTC().Format("15")]++
	}

	return model.Aggregate{
		"registration_trends":          series(registrations),
		"subscription_conversion_rate": percent(paid, len(b.users)),
		"user_retention_rate":          percent(len(active), len(b.users)),
		"top_referrers":                referrers,
		"user_activity_heatmap":        series(hours),
	}
}

func (b *Backend) messageAnalytics() model.Aggregate {
	created := make(map[string]int)
	popular := make(map[string]int)
	types := make(map[string]int)
	var delivered, failed, recurring int
	for _, m := range b.messages {
		created[m.CreatedAt.UTC().Format(time.DateOnly)]++
		popular[m.ScheduledTime.UTC().Format("15")]++
		switch m.Status {
		case model.StatusDelivered:
			delivered++
		case model.StatusFailed:
			failed++
		}
		if m.IsRecurring {
			recurring++
			types[string(m.RecurringPattern)]++
		} else {
			types["one_time"]++
		}
	}

	times := series(popular)
	sort.SliceStable(times, func(i, j int) bool { return times[i].Count > times[j].Count })
	if len(times) > 5 {
		times = times[:5]
	}

	return model.Aggregate{
		"creation_patterns":         series(created),
		"delivery_success_rate":     percent(delivered, delivered+failed),
		"popular_times":             times,
		"message_type_distribution": types,
		"recurring_vs_oneshot": map[string]int{
			"recurring": recurring,
			"oneshot":   len(b.messages) - recurring,
		},
	}
}

func (b *Backend) revenueAnalytics(now time.Time) model.Aggregate {
	monthly := make(map[string]float64)
	byPlan := make(map[model.Plan]float64)
	payers := make(map[string]bool)
	var total float64
	for _, tx := range b.transactions {
		monthly[monthKey(tx.CreatedAt)] += tx.Amount
		byPlan[tx.Plan] += tx.Amount
		payers[tx.UserID] = true
		total += tx.Amount
	}

	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)
	trend := make([]map[string]any, 0, len(months))
	for _, m := range months {
		trend = append(trend, map[string]any{"_id": m, "revenue": round2(monthly[m])})
	}

	var arpu float64
	if len(payers) > 0 {
		arpu = round2(total / float64(len(payers)))
	}

	this := monthly[monthKey(now)]
	last := monthly[monthKey(now.AddDate(0, -1, 0))]
	var growth float64
	switch {
	case last > 0:
		growth = round2((this - last) / last * 100)
	case this > 0:
		growth = 100
	}

	return model.Aggregate{
		"mrr_trend": trend,
		"arpu":      arpu,
		// plans are never cancelled here
		"churn_rate":               0.0,
		"subscription_growth_rate": growth,
		"revenue_by_plan":          byPlan,
	}
}

// aiAnalytics reports the AI section with empty usage; message generation
// is not served by this backend.
func aiAnalytics() model.Aggregate {
	return model.Aggregate{
		"feature_usage":           map[string]int{},
		"generation_success_rate": 0.0,
		"popular_prompts":         []count{},
		"enhancement_types":       map[string]int{},
		"ai_adoption_rate":        0.0,
	}
}

func (b *Backend) launchMetrics(now time.Time) model.Aggregate {
	today := now.Format(time.DateOnly)
	var registrations, referrals int
	for _, u := range b.users {
		if u.createdAt.UTC().Format(time.DateOnly) == today {
			registrations++
		}
		referrals += u.profile.ReferredCount
	}

	active := make(map[string]bool)
	for _, m := range b.messages {
		if m.CreatedAt.UTC().Format(time.DateOnly) == today {
			active[m.ownerID] = true
		}
	}

	return model.Aggregate{
		"new_registrations":   registrations,
		"premium_conversions": len(b.transactions),
		"referral_signups":    referrals,
		"daily_active_users":  len(active),
		"social_engagement":   0,
		"email_opens":         0,
		"campaign_clicks":     0,
	}
}

func (b *Backend) launchChecklist() []checklistCategory {
	var revenue float64
	for _, tx := range b.transactions {
		revenue += tx.Amount
	}

	return []checklistCategory{
		{Category: "TECHNIK", Items: []checklistItem{
			{Task: "Admin-Konto eingerichtet", Completed: b.adminEmail != ""},
			{Task: "Erste Nachricht zugestellt", Completed: b.anyDelivered()},
		}},
		{Category: "MARKETING", Items: []checklistItem{
			{Task: "Erste Nutzer registriert", Completed: len(b.users) > 1},
			{Task: "Erste Empfehlung eingelöst", Completed: b.anyReferred()},
		}},
		{Category: "BUSINESS", Items: []checklistItem{
			{Task: "Erste Zahlung erhalten", Completed: revenue > 0},
			{Task: "Erste Auszahlung angefordert", Completed: len(b.payouts) > 0},
		}},
	}
}

func (b *Backend) anyDelivered() bool {
	for _, m := range b.messages {
		if m.Status == model.StatusDelivered {
			return true
		}
	}
	return false
}

func (b *Backend) anyReferred() bool {
	for _, u := range b.users {
		if u.profile.ReferredCount > 0 {
			return true
		}
	}
	return false
}

// series returns buckets sorted by key.
func series(buckets map[string]int) []count {
	out := make([]count, 0, len(buckets))
	for k, n := range buckets {
		out = append(out, count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
