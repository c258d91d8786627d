package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/zeitnachricht/internal/api/grpc/handler"
	"github.com/dtroode/zeitnachricht/internal/api/grpc/router"
	grpcServer "github.com/dtroode/zeitnachricht/internal/api/grpc/server"
	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/server"
	"github.com/dtroode/zeitnachricht/internal/service"
	"github.com/dtroode/zeitnachricht/internal/view"
)

// startStatus serves the gRPC health service reflecting the router state.
// The returned function stops it.
func (a *app) startStatus(wg *sync.WaitGroup) func() {
	health := handler.NewHealth(a.logger)
	health.Follow(a.router)

	s := grpcServer.NewGRPCServer(router.New(health, a.logger).Register(), fmt.Sprintf(":%s", a.cfg.Status.Port))
	sl := server.NewSecurityLayer(a.cfg.Status)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.logger.Info("Starting status server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			a.logger.Error("failed to start status server", "error", err)
		}
	}()

	return func() {
		health.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("error during status server shutdown", "error", err, "address", s.Address())
		}
	}
}

// runSync keeps the dashboard mounted, printing every change, until ctx ends
// or the session is lost.
func runSync(ctx context.Context, a *app, _ []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.router.OnChange(func(s view.State) {
		if s != view.StateAuthenticated {
			cancel()
		}
	})

	var wg sync.WaitGroup
	if a.cfg.Status.Port != "" {
		stopStatus := a.startStatus(&wg)
		defer func() {
			stopStatus()
			wg.Wait()
		}()
	}

	changes := newChangeReporter(a)
	dash := a.dashboard(
		service.WithMessagesListener(changes.report),
		service.WithAdminStatsListener(func(agg model.Aggregate) {
			a.printf("%s: %v %s, %v %s\n",
				a.tr.T("admin.stats", nil),
				agg["total_users"], a.tr.T("admin.totalUsers", nil),
				agg["premium_users"], a.tr.T("admin.premiumUsers", nil))
		}),
	)
	dash.Mount(ctx)
	defer dash.Unmount()

	<-ctx.Done()
	if a.router.State() != view.StateAuthenticated {
		return model.ErrNotAuthenticated
	}
	return nil
}

// changeReporter prints new messages, deliveries and due-soon warnings
// between consecutive message lists.
type changeReporter struct {
	a *app

	mu     sync.Mutex
	seen   map[string]model.MessageStatus
	warned map[string]bool
}

func newChangeReporter(a *app) *changeReporter {
	return &changeReporter{
		a:      a,
		seen:   make(map[string]model.MessageStatus),
		warned: make(map[string]bool),
	}
}

func (r *changeReporter) report(msgs []model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.a
	now := a.now()
	seen := make(map[string]model.MessageStatus, len(msgs))
	for _, m := range msgs {
		seen[m.ID] = m.Status
		prev, ok := r.seen[m.ID]
		switch {
		case !ok:
			a.printf("+ %s  %s  %s\n", m.ScheduledTime.Local().Format(timeLayout), a.tr.T("time."+string(m.Status), nil), m.Title)
		case prev != m.Status && m.Status == model.StatusDelivered:
			a.printf("✓ %s  %s\n", a.tr.T("time.delivered", nil), m.Title)
		}
		if m.DueSoon(now) && !r.warned[m.ID] {
			r.warned[m.ID] = true
			a.printf("! %s  %s\n", a.tr.T("scheduled.dueSoon", nil), m.Title)
		}
	}
	for id := range r.seen {
		if _, ok := seen[id]; !ok {
			a.printf("- %s\n", id)
		}
	}
	r.seen = seen
}
