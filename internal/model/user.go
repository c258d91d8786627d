package model

// Role is a user role as reported by the backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Plan is a subscription plan identifier.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanPremium  Plan = "premium"
	PlanBusiness Plan = "business"
)

// UnlimitedMessages is the monthly limit value meaning "no limit".
const UnlimitedMessages = -1

// UserProfile is the current user as returned by the backend.
// It is owned by the session store and replaced only by re-fetching.
type UserProfile struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Email                string   `json:"email"`
	Role                 Role     `json:"role"`
	SubscriptionPlan     Plan     `json:"subscription_plan"`
	MonthlyMessagesUsed  int      `json:"monthly_messages_used"`
	MonthlyMessagesLimit int      `json:"monthly_messages_limit"`
	Features             []string `json:"features"`
	ReferredCount        int      `json:"referred_count"`
	ReferralCode         string   `json:"referral_code,omitempty"`
}

// IsAdmin reports whether the profile has the admin role. Safe on nil.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Unlimited reports whether the monthly message quota is unlimited.
func (u *UserProfile) Unlimited() bool {
	return u.MonthlyMessagesLimit == UnlimitedMessages
}

// AtMessageLimit reports whether no more messages can be created this month.
func (u *UserProfile) AtMessageLimit() bool {
	return !u.Unlimited() && u.MonthlyMessagesUsed >= u.MonthlyMessagesLimit
}

// CanUseRecurring reports whether the plan allows recurring and bulk messages.
func (u *UserProfile) CanUseRecurring() bool {
	return u.SubscriptionPlan != PlanFree
}

// Clone returns a deep copy so callers cannot mutate the session's profile.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	c.Features = append([]string(nil), u.Features...)
	return &c
}

// Credentials are sent to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is sent to the register endpoint.
type Registration struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type,omitempty"`
	User        UserProfile `json:"user"`
}
