package model

// PaymentPaid is the checkout payment status reported once payment succeeded.
const PaymentPaid = "paid"

// SubscriptionPlan describes a plan in the comparison table.
// MonthlyMessages is UnlimitedMessages for paid plans.
type SubscriptionPlan struct {
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	MonthlyMessages int      `json:"monthly_messages"`
	Features        []string `json:"features"`
}

// Checkout is returned when a subscription is started; the client redirects to CheckoutURL.
type Checkout struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id,omitempty"`
}

// CheckoutStatus is the payment state of a checkout session.
type CheckoutStatus struct {
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status,omitempty"`
}

// Template is a reusable message template.
type Template struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Category   string `json:"category"`
	IsPublic   bool   `json:"is_public"`
	UsageCount int    `json:"usage_count,omitempty"`
	OwnerID    string `json:"user_id,omitempty"`
}

// TemplateList separates the user's own templates from the public ones.
type TemplateList struct {
	User   []Template `json:"user_templates"`
	Public []Template `json:"public_templates"`
}

// Aggregate is an admin payload consumed opaquely.
type Aggregate map[string]any

// PayoutRequest asks the backend to pay out admin revenue.
type PayoutRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}
