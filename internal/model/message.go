package model

import "time"

// MessageStatus is the delivery state of a scheduled message.
type MessageStatus string

const (
	StatusScheduled MessageStatus = "scheduled"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// RecurringPattern describes how a recurring message repeats.
type RecurringPattern string

const (
	RecurringNone    RecurringPattern = ""
	RecurringDaily   RecurringPattern = "daily"
	RecurringWeekly  RecurringPattern = "weekly"
	RecurringMonthly RecurringPattern = "monthly"
)

// DueSoonWindow is how close to delivery a message is flagged as due soon.
const DueSoonWindow = 2 * time.Minute

// Message is the client's cached copy of a server-owned message.
type Message struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	ScheduledTime    time.Time        `json:"scheduled_time"`
	Status           MessageStatus    `json:"status"`
	IsRecurring      bool             `json:"is_recurring"`
	RecurringPattern RecurringPattern `json:"recurring_pattern"`
	CreatedAt        time.Time        `json:"created_at"`
	DeliveredAt      *time.Time       `json:"delivered_at,omitempty"`
}

// DueSoon reports whether a scheduled message is delivered within DueSoonWindow of now.
func (m Message) DueSoon(now time.Time) bool {
	if m.Status != StatusScheduled {
		return false
	}
	d := m.ScheduledTime.Sub(now)
	return d > 0 && d <= DueSoonWindow
}

// CreateMessage is the payload of a single message creation.
type CreateMessage struct {
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	ScheduledTime    time.Time        `json:"scheduled_time"`
	IsRecurring      bool             `json:"is_recurring"`
	RecurringPattern RecurringPattern `json:"recurring_pattern"`
}

// BulkMessages schedules several messages at once. TimeInterval is in minutes.
type BulkMessages struct {
	Messages     []CreateMessage `json:"messages"`
	TimeInterval int             `json:"time_interval"`
}

// BulkResult is returned by the bulk endpoint. CreatedMessages holds message ids.
type BulkResult struct {
	SuccessCount    int      `json:"success_count"`
	FailedCount     int      `json:"failed_count"`
	CreatedMessages []string `json:"created_messages"`
}

// Calendar groups messages of one month by day (YYYY-MM-DD).
type Calendar struct {
	Year  int                  `json:"year"`
	Month int                  `json:"month"`
	Days  map[string][]Message `json:"calendar_data"`
}

// FilterByStatus returns the messages with the given status, keeping order.
func FilterByStatus(messages []Message, status MessageStatus) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}
