package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zlnvch/drawguess/models"
	"github.com/zlnvch/drawguess/store"
)

const (
	userDataKey  = "user_data"
	avatarKey    = "user_avatar"
	autoLoginKey = "auto_login_enabled"
	passwordKey  = "user_password"

	DefaultAvatar = "avt1.jpg"
)

// CredentialStore decides where the password lives. With auto-login enabled
// it is kept in the durable region, otherwise in the session region, and it
// is never present in both. The profile, avatar and flag are always durable.
//
// Both regions are shared by the whole client; the methods here are the only
// place that writes the password key.
type CredentialStore struct {
	mu      sync.Mutex
	durable store.Region
	session store.Region
	log     zerolog.Logger
}

func NewCredentialStore(durable store.Region, session store.Region, log zerolog.Logger) *CredentialStore {
	return &CredentialStore{
		durable: durable,
		session: session,
		log:     log.With().Str("component", "credentials").Logger(),
	}
}

func (c *CredentialStore) regionFor(autoLogin bool) store.Region {
	if autoLogin {
		return c.durable
	}
	return c.session
}

// IsAutoLoginEnabled reports false when the flag cannot be read.
func (c *CredentialStore) IsAutoLoginEnabled(ctx context.Context) bool {
	val, err := c.durable.Get(ctx, autoLoginKey)
	if err != nil {
		if !errors.Is(err, store.ErrItemNotFound) {
			c.log.Error().Err(err).Msg("Error checking auto login")
		}
		return false
	}
	return val == "true"
}

// SavePassword writes into the region chosen by the flag at write time.
func (c *CredentialStore) SavePassword(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	autoLogin := c.IsAutoLoginEnabled(ctx)
	if err := c.regionFor(autoLogin).Set(ctx, passwordKey, password); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	// Keep the other region empty even if a previous run left a copy there
	if err := c.regionFor(!autoLogin).Delete(ctx, passwordKey); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	return nil
}

// GetPassword prefers the durable region and falls back to the session
// region. It returns store.ErrItemNotFound when neither holds a password.
func (c *CredentialStore) GetPassword(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, region := range []store.Region{c.durable, c.session} {
		val, err := region.Get(ctx, passwordKey)
		if err == nil && val != "" {
			return val, nil
		}
		if err != nil && !errors.Is(err, store.ErrItemNotFound) {
			return "", fmt.Errorf("get password: %w", err)
		}
	}
	return "", store.ErrItemNotFound
}

// ClearPassword removes the password from both regions regardless of the flag.
func (c *CredentialStore) ClearPassword(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := errors.Join(
		c.durable.Delete(ctx, passwordKey),
		c.session.Delete(ctx, passwordKey),
	)
	if err != nil {
		return fmt.Errorf("clear password: %w", err)
	}
	return nil
}

// SetAutoLoginEnabled stores the flag and then moves any password into the
// region that matches it.
func (c *CredentialStore) SetAutoLoginEnabled(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if enabled {
		err = c.durable.Set(ctx, autoLoginKey, "true")
	} else {
		err = c.durable.Delete(ctx, autoLoginKey)
	}
	if err != nil {
		return fmt.Errorf("set auto login: %w", err)
	}

	if err := migrate(ctx, c.regionFor(!enabled), c.regionFor(enabled)); err != nil {
		return fmt.Errorf("set auto login: %w", err)
	}
	return nil
}

// migrate copies the password from one region to the other and deletes the
// source only once the copy is written.
func migrate(ctx context.Context, from store.Region, to store.Region) error {
	val, err := from.Get(ctx, passwordKey)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return nil
		}
		return err
	}
	if val == "" {
		return from.Delete(ctx, passwordKey)
	}
	if err := to.Set(ctx, passwordKey, val); err != nil {
		return err
	}
	return from.Delete(ctx, passwordKey)
}

// User profile

func (c *CredentialStore) SaveUserProfile(ctx context.Context, profile models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	if err := c.durable.Set(ctx, userDataKey, string(data)); err != nil {
		return fmt.Errorf("save user profile: %w", err)
	}
	return nil
}

// UserProfile returns the cached profile, or nil when there is none or it
// cannot be decoded.
func (c *CredentialStore) UserProfile(ctx context.Context) *models.UserProfile {
	val, err := c.durable.Get(ctx, userDataKey)
	if err != nil {
		if !errors.Is(err, store.ErrItemNotFound) {
			c.log.Error().Err(err).Msg("Error getting user data")
		}
		return nil
	}
	var profile models.UserProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		c.log.Warn().Err(err).Msg("Discarding unreadable user data")
		return nil
	}
	return &profile
}

// CurrentUser is the cached profile with the cached avatar filled in when the
// profile has none.
func (c *CredentialStore) CurrentUser(ctx context.Context) *models.UserProfile {
	profile := c.UserProfile(ctx)
	if profile == nil {
		return nil
	}
	if profile.Avatar == "" {
		profile.Avatar = c.Avatar(ctx)
	}
	return profile
}

// ClearUserProfile keeps the avatar so the next login reuses it.
func (c *CredentialStore) ClearUserProfile(ctx context.Context) error {
	if err := c.durable.Delete(ctx, userDataKey); err != nil {
		return fmt.Errorf("clear user profile: %w", err)
	}
	return nil
}

func (c *CredentialStore) SaveAvatar(ctx context.Context, avatar string) error {
	if err := c.durable.Set(ctx, avatarKey, avatar); err != nil {
		return fmt.Errorf("save avatar: %w", err)
	}
	return nil
}

func (c *CredentialStore) Avatar(ctx context.Context) string {
	val, err := c.durable.Get(ctx, avatarKey)
	if err != nil || val == "" {
		return DefaultAvatar
	}
	return val
}
