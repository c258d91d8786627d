package model

// Analytics names an admin analytics report.
type Analytics string

const (
	AnalyticsUsers    Analytics = "users"
	AnalyticsMessages Analytics = "messages"
	AnalyticsRevenue  Analytics = "revenue"
	AnalyticsAI       Analytics = "ai"
	// AnalyticsComplete combines the four reports above.
	AnalyticsComplete Analytics = "complete"
)

// AnalyticsReports lists every analytics report in display order.
var AnalyticsReports = []Analytics{AnalyticsUsers, AnalyticsMessages, AnalyticsRevenue, AnalyticsAI, AnalyticsComplete}

// Valid reports whether a names a known report.
func (a Analytics) Valid() bool {
	for _, r := range AnalyticsReports {
		if a == r {
			return true
		}
	}
	return false
}

// ExportFormat is the encoding of an analytics export.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// Valid reports whether f is a supported export format.
func (f ExportFormat) Valid() bool {
	return f == ExportJSON || f == ExportCSV
}

// Marketing names a read-only admin marketing resource.
type Marketing string

const (
	MarketingCampaigns       Marketing = "campaigns"
	MarketingTemplates       Marketing = "templates"
	MarketingSocialPosts     Marketing = "social-posts"
	MarketingLaunchMetrics   Marketing = "launch-metrics"
	MarketingLaunchChecklist Marketing = "launch-checklist"
)

// MarketingResources lists every marketing resource.
var MarketingResources = []Marketing{
	MarketingCampaigns,
	MarketingTemplates,
	MarketingSocialPosts,
	MarketingLaunchMetrics,
	MarketingLaunchChecklist,
}

// Valid reports whether m names a known resource.
func (m Marketing) Valid() bool {
	for _, r := range MarketingResources {
		if m == r {
			return true
		}
	}
	return false
}
