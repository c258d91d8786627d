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

// DefaultCheckoutInterval is the payment status polling period.
const DefaultCheckoutInterval = 3 * time.Second

// CheckoutAPI reads the payment status of a checkout session.
type CheckoutAPI interface {
	CheckoutStatus(ctx context.Context, sessionID string) (model.CheckoutStatus, error)
}

// CheckoutState is the state of the subscription-success view.
type CheckoutState int

const (
	CheckoutPending CheckoutState = iota
	CheckoutConfirmed
	CheckoutFailed
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutPending:
		return "pending"
	case CheckoutConfirmed:
		return "confirmed"
	case CheckoutFailed:
		return "failed"
	default:
		return fmt.Sprintf("CheckoutState(%d)", int(s))
	}
}

// Checkout confirms a payment after the user returns from the payment provider.
type Checkout struct {
	api      CheckoutAPI
	session  SessionGuard
	interval time.Duration
	logger   *logger.Logger

	mu    sync.RWMutex
	state CheckoutState
}

// NewCheckout creates a checkout confirmation polling every interval.
func NewCheckout(api CheckoutAPI, session SessionGuard, interval time.Duration, logger *logger.Logger) *Checkout {
	if interval <= 0 {
		interval = DefaultCheckoutInterval
	}
	return &Checkout{
		api:      api,
		session:  session,
		interval: interval,
		logger:   logger,
	}
}

// State returns the current confirmation state.
func (c *Checkout) State() CheckoutState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Checkout) setState(state CheckoutState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// Confirm polls the checkout session until it is paid and then refreshes the
// profile so the new plan is visible. It returns when the payment is
// confirmed, a request fails or ctx is done.
func (c *Checkout) Confirm(ctx context.Context, sessionID string) error {
	c.setState(CheckoutPending)

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		c.setState(CheckoutFailed)
		return model.ErrEmptyCheckout
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		status, err := c.api.CheckoutStatus(ctx, sessionID)
		if err != nil {
			c.setState(CheckoutFailed)
			c.logger.Warn("Checkout: failed to read payment status",
				"session_id", sessionID,
				"error", err.Error())
			return c.session.Check(err)
		}

		if status.PaymentStatus == model.PaymentPaid {
			c.logger.Info("Checkout: payment confirmed",
				"session_id", sessionID)
			if err := c.session.Refresh(ctx); err != nil {
				c.setState(CheckoutFailed)
				return fmt.Errorf("failed to refresh profile: %w", err)
			}
			c.setState(CheckoutConfirmed)
			return nil
		}

		c.logger.Debug("Checkout: payment pending",
			"session_id", sessionID,
			"payment_status", status.PaymentStatus)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
