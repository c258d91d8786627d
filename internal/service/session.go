package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/token"
)

// AuthAPI is the part of the backend the session store talks to.
type AuthAPI interface {
	Me(ctx context.Context) (model.UserProfile, error)
	Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (model.AuthResult, error)
}

// TokenHolder is the bearer credential owner of the API facade.
type TokenHolder interface {
	AttachToken(token string) uint64
	DetachToken() uint64
	Generation() uint64
}

// Session is the single source of truth for who is logged in and the only
// writer of the persisted token.
//
// Transitions (Initialize, Login, Register, Logout and forced logouts) are
// serialized. The persisted token and the facade header always change inside
// the same critical section. Responses tied to a replaced credentials
// generation are discarded.
type Session struct {
	api    AuthAPI
	creds  TokenHolder
	store  model.StateStore
	logger *logger.Logger

	transition  sync.Mutex
	restoreOnce sync.Once

	mu         sync.RWMutex
	token      string
	user       *model.UserProfile
	generation uint64
	restoring  bool
	version    uint64

	notifyMu  sync.Mutex
	delivered uint64
	observers map[int]func(model.Session)
	nextID    int
}

// NewSession creates a session store in the restoring state.
func NewSession(api AuthAPI, creds TokenHolder, store model.StateStore, logger *logger.Logger) *Session {
	return &Session{
		api:        api,
		creds:      creds,
		store:      store,
		logger:     logger,
		restoring:  true,
		generation: creds.Generation(),
		observers:  make(map[int]func(model.Session)),
	}
}

// Subscribe registers fn to receive every session snapshot after a change.
// Observers must not call Subscribe or transition methods synchronously.
// The returned function removes the observer.
func (s *Session) Subscribe(fn func(model.Session)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// User returns a copy of the current profile or nil.
func (s *Session) User() *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Initialize restores the session from the persisted token. Only the first
// call does any work; restoration always ends with Restoring set to false.
func (s *Session) Initialize(ctx context.Context) {
	s.restoreOnce.Do(func() {
		s.transition.Lock()
		defer s.transition.Unlock()

		s.restore(ctx)

		s.mu.Lock()
		s.restoring = false
		snap, version := s.commitLocked()
		s.mu.Unlock()

		s.publish(snap, version)
	})
}

func (s *Session) restore(ctx context.Context) {
	persisted, err := s.store.Get(ctx, model.TokenKey)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Error("Session: failed to read persisted token",
				"error", err.Error())
		}
		return
	}
	if persisted == "" {
		return
	}

	if token.Expired(persisted, time.Now()) {
		s.logger.Info("Session: persisted token expired, discarding")
		s.clear(ctx)
		return
	}

	gen := s.creds.AttachToken(persisted)
	s.mu.Lock()
	s.token = persisted
	s.generation = gen
	s.mu.Unlock()

	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Info("Session: failed to restore session, logging out",
			"error", err.Error())
		s.clear(ctx)
		return
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.logger.Info("Session: session restored",
		"user_id", user.ID)
}

// Login authenticates and adopts the returned token and profile.
// On failure the session state is left untouched.
func (s *Session) Login(ctx context.Context, email, password string) (*model.UserProfile, error) {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.logger.Debug("Session: logging in",
		"email", email)

	res, err := s.api.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		s.logger.Info("Session: login rejected",
			"email", email,
			"error", err.Error())
		return nil, authError(err)
	}

	return s.adopt(ctx, res)
}

// Register creates an account and adopts the returned token and profile.
// An empty referral code is treated as no referral.
func (s *Session) Register(ctx context.Context, email, password, name, referralCode string) (*model.UserProfile, error) {
	s.transition.Lock()
	defer s.transition.Unlock()

	reg := model.Registration{
		Email:        email,
		Password:     password,
		Name:         name,
		ReferralCode: strings.TrimSpace(referralCode),
	}

	s.logger.Debug("Session: registering",
		"email", email,
		"referred", reg.ReferralCode != "")

	res, err := s.api.Register(ctx, reg)
	if err != nil {
		s.logger.Info("Session: registration rejected",
			"email", email,
			"error", err.Error())
		return nil, authError(err)
	}

	return s.adopt(ctx, res)
}

func (s *Session) adopt(ctx context.Context, res model.AuthResult) (*model.UserProfile, error) {
	if res.AccessToken == "" {
		return nil, &model.AuthError{Message: "no access token in response"}
	}

	if err := s.store.Set(ctx, model.TokenKey, res.AccessToken); err != nil {
		s.logger.Error("Session: failed to persist token",
			"error", err.Error())
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	gen := s.creds.AttachToken(res.AccessToken)
	user := res.User

	s.mu.Lock()
	s.token = res.AccessToken
	s.generation = gen
	s.user = &user
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.publish(snap, version)

	s.logger.Info("Session: authenticated",
		"user_id", user.ID)

	return user.Clone(), nil
}

// Logout clears the persisted token, the facade header and the profile. It never fails.
func (s *Session) Logout(ctx context.Context) {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.clear(ctx)

	s.mu.Lock()
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.publish(snap, version)

	s.logger.Info("Session: logged out")
}

// clear must be called with the transition lock held.
func (s *Session) clear(ctx context.Context) {
	if err := s.store.Delete(ctx, model.TokenKey); err != nil {
		s.logger.Error("Session: failed to delete persisted token",
			"error", err.Error())
	}
	gen := s.creds.DetachToken()

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.generation = gen
	s.mu.Unlock()
}

// Refresh re-fetches the profile with the current token. A rejected token
// forces a logout and yields *model.SessionExpiredError.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	current, gen := s.token, s.generation
	s.mu.RUnlock()

	if current == "" {
		return model.ErrNotAuthenticated
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Debug("Session: refresh failed",
			"error", err.Error())
		return s.Check(err)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("Session: discarding profile fetched with replaced token")
		return nil
	}
	s.user = &user
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.publish(snap, version)
	return nil
}

// Check inspects an error returned by an authorized call. A 401 issued under
// the current credentials forces a logout and is returned as
// *model.SessionExpiredError; any other error is returned unchanged.
func (s *Session) Check(err error) error {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return err
	}

	s.transition.Lock()
	defer s.transition.Unlock()

	s.mu.RLock()
	stale := s.token == "" || s.generation != apiErr.Generation
	s.mu.RUnlock()
	if stale {
		return err
	}

	s.logger.Info("Session: token rejected, forcing logout")

	s.clear(context.Background())

	s.mu.Lock()
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.publish(snap, version)

	return &model.SessionExpiredError{Err: err}
}

func (s *Session) snapshotLocked() model.Session {
	return model.Session{
		Token:     s.token,
		User:      s.user.Clone(),
		Restoring: s.restoring,
	}
}

// commitLocked must be called with mu held for writing.
func (s *Session) commitLocked() (model.Session, uint64) {
	s.version++
	return s.snapshotLocked(), s.version
}

// publish delivers snap to observers unless a newer snapshot was already delivered.
func (s *Session) publish(snap model.Session, version uint64) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if version <= s.delivered {
		return
	}
	s.delivered = version

	for _, fn := range s.observers {
		fn(snap)
	}
}

func authError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return &model.AuthError{Message: apiErr.Detail, Err: err}
	}
	return err
}
