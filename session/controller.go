package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zlnvch/drawguess/credentials"
	"github.com/zlnvch/drawguess/models"
	"github.com/zlnvch/drawguess/store"
	"github.com/zlnvch/drawguess/transport"
	"golang.org/x/text/message"
)

var (
	ErrConnectionFailed = errors.New("cannot connect to server")
	ErrDispatchFailed   = errors.New("request was not dispatched")
	ErrClosed           = errors.New("session controller is closed")
)

// storeTimeout bounds the credential writes made from event handlers.
const storeTimeout = 5 * time.Second

// State is what views render. Message holds the latest error or status text
// and is overwritten by each new event.
type State struct {
	Phase   Phase
	Loading bool
	User    *models.UserProfile
	Message string
}

func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

func (s State) clone() State {
	if s.User != nil {
		user := *s.User
		s.User = &user
	}
	return s
}

// Controller is the single source of truth for connection and authentication
// status. One controller is shared by every view; closing it detaches it from
// the transport but leaves the transport running.
type Controller struct {
	transport transport.Transport
	creds     *credentials.CredentialStore
	printer   *message.Printer
	log       zerolog.Logger

	// notifyMu orders state changes with their delivery to watchers
	notifyMu sync.Mutex

	mu                 sync.Mutex
	state              State
	live               bool
	started            bool
	autoLoginAttempted bool
	subs               []transport.Subscription
	nextWatcherId      uint64
	watchers           map[uint64]func(State)
}

func New(t transport.Transport, creds *credentials.CredentialStore, log zerolog.Logger, lang string) *Controller {
	return &Controller{
		transport: t,
		creds:     creds,
		printer:   NewPrinter(lang),
		log:       log.With().Str("component", "session").Logger(),
		live:      true,
		watchers:  make(map[uint64]func(State)),
	}
}

// Start polls the transport once for its current state, restores the cached
// profile and subscribes to the session events. Calling it again is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	user := c.creds.CurrentUser(ctx)
	phase := phaseFor(c.transport.ConnectionState())
	c.update(func(s *State) bool {
		s.Phase = phase
		s.Loading = phase == PhaseConnecting
		s.User = user
		s.Message = ""
		return true
	})

	subs := []transport.Subscription{
		c.transport.Subscribe(transport.EventLoginResponse, c.guard(c.handleLoginResponse)),
		c.transport.Subscribe(transport.EventRegisterResponse, c.guard(c.handleRegisterResponse)),
		c.transport.Subscribe(transport.EventError, c.guard(c.handleError)),
		c.transport.Subscribe(transport.EventConnectionFailed, c.guard(c.handleConnectionFailed)),
		c.transport.Subscribe(transport.EventServerShutdown, c.guard(c.forcedLogout(msgServerShutdown))),
		c.transport.Subscribe(transport.EventAccountLoggedInElsewhere, c.guard(c.forcedLogout(msgLoggedInElsewhere))),
	}

	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		c.unsubscribe(subs)
		return ErrClosed
	}
	c.subs = subs
	c.mu.Unlock()

	c.log.Debug().Str("phase", phase.String()).Msg("Session started")
	return nil
}

// Close deregisters every subscription and watcher. Events that are already
// being delivered no longer change the state.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return
	}
	c.live = false
	subs := c.subs
	c.subs = nil
	watchers := len(c.watchers)
	c.watchers = make(map[uint64]func(State))
	c.mu.Unlock()

	c.unsubscribe(subs)
	c.log.Debug().Int("subscriptions", len(subs)).Int("watchers", watchers).Msg("Session closed")
}

func (c *Controller) unsubscribe(subs []transport.Subscription) {
	for _, sub := range subs {
		c.transport.Unsubscribe(sub)
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Watch calls fn with the current state and then after every change, until
// the returned cancel function is called. fn must not call methods that change
// the state.
func (c *Controller) Watch(fn func(State)) (cancel func()) {
	c.notifyMu.Lock()
	c.mu.Lock()
	c.nextWatcherId++
	id := c.nextWatcherId
	if c.live {
		c.watchers[id] = fn
	}
	count := len(c.watchers)
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.log.Debug().Int("watchers", count).Msg("Watcher added")
	fn(snapshot)
	c.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			count := len(c.watchers)
			c.mu.Unlock()
			c.log.Debug().Int("watchers", count).Msg("Watcher removed")
		})
	}
}

func (c *Controller) isLive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// update applies a change while the controller is live and hands the result
// to the watchers. apply returns false to leave the state untouched. apply runs
// under the lock, so it must only touch s. update reports whether the change
// was applied.
func (c *Controller) update(apply func(s *State) bool) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return false
	}
	next := c.state.clone()
	if !apply(&next) {
		c.mu.Unlock()
		return false
	}
	c.state = next
	snapshot := next.clone()
	watchers := make([]func(State), 0, len(c.watchers))
	for id := uint64(1); id <= c.nextWatcherId; id++ {
		if fn, ok := c.watchers[id]; ok {
			watchers = append(watchers, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range watchers {
		fn(snapshot)
	}
	return true
}

// advance moves s along path and reports whether every step was allowed. On
// failure s is left unchanged.
func advance(s *State, path ...Phase) bool {
	phase := s.Phase
	for _, next := range path {
		if !canTransition(phase, next) {
			return false
		}
		phase = next
	}
	s.Phase = phase
	return true
}

// connect brings the session to the connected phase, dialing the transport
// when it is not connected yet.
func (c *Controller) connect(ctx context.Context) error {
	if c.transport.ConnectionState() == models.StateConnected {
		c.update(func(s *State) bool {
			if s.Phase == PhaseConnected || s.Phase == PhaseAuthenticated {
				return false
			}
			return advance(s, PhaseConnecting, PhaseConnected)
		})
		return nil
	}

	c.update(func(s *State) bool {
		s.Loading = true
		s.Message = ""
		if s.Phase != PhaseConnecting {
			advance(s, PhaseDisconnected, PhaseConnecting)
		}
		return true
	})

	if err := c.transport.Connect(ctx); err != nil {
		c.log.Error().Err(err).Msg("Connection failed")
		c.update(func(s *State) bool {
			advance(s, PhaseDisconnected)
			s.Loading = false
			s.Message = c.printer.Sprintf(msgCannotConnect)
			return true
		})
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Another caller may have failed or finished this dial first
	c.update(func(s *State) bool {
		switch s.Phase {
		case PhaseConnected, PhaseAuthenticated:
			return false
		case PhaseDisconnected:
			advance(s, PhaseConnecting)
		}
		advance(s, PhaseConnected)
		s.Loading = false
		s.Message = ""
		return true
	})
	return nil
}

// Connect brings the session online without authenticating.
func (c *Controller) Connect(ctx context.Context) error {
	if !c.isLive() {
		return ErrClosed
	}
	return c.connect(ctx)
}

// Login connects when needed, stores the password and dispatches a login
// request. Authentication completes when the login response arrives.
func (c *Controller) Login(ctx context.Context, username string, password string) error {
	if !c.isLive() {
		return ErrClosed
	}
	if err := c.connect(ctx); err != nil {
		return err
	}

	c.update(func(s *State) bool {
		s.Loading = true
		s.Message = ""
		return true
	})

	if err := c.creds.SavePassword(ctx, password); err != nil {
		c.log.Warn().Err(err).Msg("Error saving password")
	}

	if !c.transport.Login(username, password, c.creds.Avatar(ctx)) {
		if err := c.creds.ClearPassword(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Error clearing password")
		}
		c.update(func(s *State) bool {
			s.Loading = false
			s.Message = c.printer.Sprintf(msgLoginNotSent)
			return true
		})
		return ErrDispatchFailed
	}
	return nil
}

// Register connects when needed and dispatches a registration request. It
// never touches stored credentials.
func (c *Controller) Register(ctx context.Context, username string, password string) error {
	if !c.isLive() {
		return ErrClosed
	}
	if err := c.connect(ctx); err != nil {
		return err
	}

	c.update(func(s *State) bool {
		s.Loading = true
		s.Message = ""
		return true
	})

	if !c.transport.Register(username, password) {
		c.update(func(s *State) bool {
			s.Loading = false
			s.Message = c.printer.Sprintf(msgRegisterNotSent)
			return true
		})
		return ErrDispatchFailed
	}
	return nil
}

// Logout forgets the cached profile and password. The transport stays open.
func (c *Controller) Logout(ctx context.Context) error {
	if !c.isLive() {
		return ErrClosed
	}

	c.transport.Logout()
	err := errors.Join(
		c.creds.ClearUserProfile(ctx),
		c.creds.ClearPassword(ctx),
		c.creds.SetAutoLoginEnabled(ctx, false),
	)

	c.update(func(s *State) bool {
		if s.Phase == PhaseAuthenticated {
			advance(s, PhaseConnected)
		}
		s.User = nil
		s.Loading = false
		s.Message = ""
		return true
	})
	return err
}

// AutoLogin logs in again with the cached credentials. It runs at most once
// per controller and only when a cached profile exists, auto-login is enabled,
// a password is stored and the transport is neither connected nor connecting.
// It reports whether an attempt was made.
func (c *Controller) AutoLogin(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if c.autoLoginAttempted {
		c.mu.Unlock()
		return false, nil
	}
	c.autoLoginAttempted = true
	c.mu.Unlock()

	profile := c.creds.CurrentUser(ctx)
	if profile == nil || profile.Username == "" {
		return false, nil
	}
	if !c.creds.IsAutoLoginEnabled(ctx) {
		return false, nil
	}
	password, err := c.creds.GetPassword(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrItemNotFound) {
			c.log.Error().Err(err).Msg("Error reading password")
		}
		return false, nil
	}
	switch c.transport.ConnectionState() {
	case models.StateConnected, models.StateConnecting:
		return false, nil
	}

	c.log.Info().Str("username", profile.Username).Msg("Logging in again automatically")

	if err := c.connect(ctx); err != nil {
		c.forgetPassword(ctx)
		return true, err
	}

	c.update(func(s *State) bool {
		s.Loading = true
		s.Message = ""
		return true
	})

	if !c.transport.Login(profile.Username, password, profile.Avatar) {
		c.forgetPassword(ctx)
		c.update(func(s *State) bool {
			s.Loading = false
			s.Message = c.printer.Sprintf(msgAutoLoginFailed)
			return true
		})
		return true, ErrDispatchFailed
	}
	return true, nil
}

// UpdateAvatar stores the avatar and applies it to the cached profile.
func (c *Controller) UpdateAvatar(ctx context.Context, avatar string) error {
	if !c.isLive() {
		return ErrClosed
	}
	if err := c.creds.SaveAvatar(ctx, avatar); err != nil {
		return err
	}

	var profile models.UserProfile
	if !c.update(func(s *State) bool {
		if s.User == nil {
			return false
		}
		user := *s.User
		user.Avatar = avatar
		s.User = &user
		profile = user
		return true
	}) {
		return nil
	}
	return c.creds.SaveUserProfile(ctx, profile)
}

func (c *Controller) ClearMessage() {
	c.update(func(s *State) bool {
		if s.Message == "" {
			return false
		}
		s.Message = ""
		return true
	})
}

// forgetPassword is the cleanup after an authentication failure.
func (c *Controller) forgetPassword(ctx context.Context) {
	if err := c.creds.ClearPassword(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Error clearing password")
	}
	if err := c.creds.SetAutoLoginEnabled(ctx, false); err != nil {
		c.log.Warn().Err(err).Msg("Error disabling auto login")
	}
}

// Event handlers

func (c *Controller) guard(handle func(payload json.RawMessage)) transport.Handler {
	return func(payload json.RawMessage) {
		if !c.isLive() {
			return
		}
		handle(payload)
	}
}

func decodeNotice(payload json.RawMessage) models.Notice {
	var notice models.Notice
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &notice)
	}
	return notice
}

func (c *Controller) handleLoginResponse(payload json.RawMessage) {
	var resp models.LoginResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.log.Error().Err(err).Msg("Error decoding login response")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if resp.Status != models.StatusSuccess {
		rejected := c.update(func(s *State) bool {
			// A response that outlived its connection is stale
			if s.Phase == PhaseDisconnected {
				c.log.Debug().Str("status", resp.Status).Msg("Dropping stale login response")
				return false
			}
			if s.Phase == PhaseAuthenticated {
				advance(s, PhaseConnected)
			}
			s.Loading = false
			s.User = nil
			s.Message = c.printer.Sprintf(msgInvalidCredentials)
			return true
		})
		if rejected {
			c.forgetPassword(ctx)
		}
		return
	}

	profile := models.UserProfile{
		Id:       resp.UserId,
		Username: resp.Username,
		Avatar:   resp.Avatar,
	}
	if profile.Avatar == "" {
		profile.Avatar = c.creds.Avatar(ctx)
	}

	accepted := c.update(func(s *State) bool {
		if s.Phase == PhaseDisconnected {
			c.log.Debug().Str("status", resp.Status).Msg("Dropping stale login response")
			return false
		}
		if !advance(s, PhaseAuthenticated) {
			c.log.Debug().Str("phase", s.Phase.String()).Msg("Dropping login response")
			return false
		}
		user := profile
		s.Loading = false
		s.User = &user
		s.Message = ""
		return true
	})
	if !accepted {
		return
	}

	if err := c.creds.SaveUserProfile(ctx, profile); err != nil {
		c.log.Error().Err(err).Msg("Error saving user profile")
	}
	if err := c.creds.SetAutoLoginEnabled(ctx, true); err != nil {
		c.log.Error().Err(err).Msg("Error enabling auto login")
	}
	c.log.Info().Int("userId", profile.Id).Str("username", profile.Username).Msg("Logged in")
}

func (c *Controller) handleRegisterResponse(payload json.RawMessage) {
	var resp models.RegisterResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.log.Error().Err(err).Msg("Error decoding register response")
		return
	}

	c.update(func(s *State) bool {
		if s.Phase == PhaseDisconnected {
			return false
		}
		s.Loading = false
		switch {
		case resp.Status == models.StatusSuccess:
			s.Message = c.printer.Sprintf(msgRegistered)
		case resp.Message != "":
			s.Message = resp.Message
		default:
			s.Message = c.printer.Sprintf(msgRegisterFailed)
		}
		return true
	})
}

func (c *Controller) handleError(payload json.RawMessage) {
	notice := decodeNotice(payload)
	c.update(func(s *State) bool {
		s.Loading = false
		s.Message = notice.Message
		if s.Message == "" {
			s.Message = c.printer.Sprintf(msgGenericError)
		}
		return true
	})
}

func (c *Controller) handleConnectionFailed(json.RawMessage) {
	c.update(func(s *State) bool {
		advance(s, PhaseDisconnected)
		s.Loading = false
		s.Message = c.printer.Sprintf(msgConnectionLost)
		return true
	})
}

// forcedLogout handles a server-initiated logout. The server's reason wins
// over fallback when it sends one.
func (c *Controller) forcedLogout(fallback string) func(payload json.RawMessage) {
	return func(payload json.RawMessage) {
		notice := decodeNotice(payload)

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if !c.update(func(s *State) bool {
			advance(s, PhaseDisconnected)
			s.Loading = false
			s.User = nil
			s.Message = notice.Message
			if s.Message == "" {
				s.Message = c.printer.Sprintf(fallback)
			}
			return true
		}) {
			return
		}

		c.forgetPassword(ctx)
		if err := c.creds.ClearUserProfile(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Error clearing user profile")
		}
		c.log.Warn().Str("reason", notice.Message).Msg("Logged out by server")
	}
}
