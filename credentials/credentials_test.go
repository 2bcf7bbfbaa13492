package credentials_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/drawguess/credentials"
	"github.com/zlnvch/drawguess/models"
	"github.com/zlnvch/drawguess/store"
	"github.com/zlnvch/drawguess/store/memory"
)

const passwordKey = "user_password"

func setupStore() (*credentials.CredentialStore, *memory.MemoryRegion, *memory.MemoryRegion) {
	durable := memory.NewMemoryRegion()
	session := memory.NewMemoryRegion()
	return credentials.NewCredentialStore(durable, session, zerolog.Nop()), durable, session
}

// holds reports which regions contain the password.
func holds(t *testing.T, durable, session store.Region) (bool, bool) {
	ctx := context.Background()
	_, errD := durable.Get(ctx, passwordKey)
	_, errS := session.Get(ctx, passwordKey)
	if errD != nil {
		require.ErrorIs(t, errD, store.ErrItemNotFound)
	}
	if errS != nil {
		require.ErrorIs(t, errS, store.ErrItemNotFound)
	}
	return errD == nil, errS == nil
}

func TestSavePassword_DestinationFollowsFlag(t *testing.T) {
	ctx := context.Background()
	creds, durable, session := setupStore()

	require.NoError(t, creds.SavePassword(ctx, "pw1"))
	inDurable, inSession := holds(t, durable, session)
	assert.False(t, inDurable)
	assert.True(t, inSession)

	require.NoError(t, creds.SetAutoLoginEnabled(ctx, true))
	require.NoError(t, creds.SavePassword(ctx, "pw2"))
	inDurable, inSession = holds(t, durable, session)
	assert.True(t, inDurable)
	assert.False(t, inSession)

	pw, err := creds.GetPassword(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "pw2", pw)
}

func TestGetPassword_PrefersDurable(t *testing.T) {
	ctx := context.Background()
	creds, durable, session := setupStore()

	// Both regions populated by something outside the store
	require.NoError(t, durable.Set(ctx, passwordKey, "durable"))
	require.NoError(t, session.Set(ctx, passwordKey, "session"))

	pw, err := creds.GetPassword(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "durable", pw)

	require.NoError(t, durable.Delete(ctx, passwordKey))
	pw, err = creds.GetPassword(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "session", pw)
}

func TestGetPassword_NotFound(t *testing.T) {
	creds, _, _ := setupStore()

	_, err := creds.GetPassword(context.Background())
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestSetAutoLoginEnabled_MigrationIsLosslessAndExclusive(t *testing.T) {
	ctx := context.Background()
	creds, durable, session := setupStore()

	require.NoError(t, creds.SavePassword(ctx, "secret"))

	require.NoError(t, creds.SetAutoLoginEnabled(ctx, true))
	assert.True(t, creds.IsAutoLoginEnabled(ctx))
	inDurable, inSession := holds(t, durable, session)
	assert.True(t, inDurable)
	assert.False(t, inSession)

	require.NoError(t, creds.SetAutoLoginEnabled(ctx, false))
	assert.False(t, creds.IsAutoLoginEnabled(ctx))
	inDurable, inSession = holds(t, durable, session)
	assert.False(t, inDurable)
	assert.True(t, inSession)

	pw, err := creds.GetPassword(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "secret", pw)

	// Repeating the same flag value is a no-op
	require.NoError(t, creds.SetAutoLoginEnabled(ctx, false))
	pw, err = creds.GetPassword(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "secret", pw)
}

func TestSetAutoLoginEnabled_WithoutPassword(t *testing.T) {
	ctx := context.Background()
	creds, durable, session := setupStore()

	require.NoError(t, creds.SetAutoLoginEnabled(ctx, true))
	require.NoError(t, creds.SetAutoLoginEnabled(ctx, false))

	inDurable, inSession := holds(t, durable, session)
	assert.False(t, inDurable)
	assert.False(t, inSession)
}

func TestSavePassword_RemovesStaleCopy(t *testing.T) {
	ctx := context.Background()
	creds, durable, session := setupStore()

	require.NoError(t, durable.Set(ctx, passwordKey, "stale"))
	require.NoError(t, creds.SavePassword(ctx, "fresh"))

	inDurable, inSession := holds(t, durable, session)
	assert.False(t, inDurable)
	assert.True(t, inSession)
}

func TestClearPassword_RemovesFromBothRegions(t *testing.T) {
	ctx := context.Background()
	creds, durable, session := setupStore()

	require.NoError(t, durable.Set(ctx, passwordKey, "a"))
	require.NoError(t, session.Set(ctx, passwordKey, "b"))
	require.NoError(t, creds.SetAutoLoginEnabled(ctx, true))

	require.NoError(t, creds.ClearPassword(ctx))
	inDurable, inSession := holds(t, durable, session)
	assert.False(t, inDurable)
	assert.False(t, inSession)

	// The flag is untouched
	assert.True(t, creds.IsAutoLoginEnabled(ctx))
}

type failingRegion struct {
	*memory.MemoryRegion
	setErr error
}

func (f *failingRegion) Set(ctx context.Context, key string, value string) error {
	if f.setErr != nil && key == passwordKey {
		return f.setErr
	}
	return f.MemoryRegion.Set(ctx, key, value)
}

func TestSetAutoLoginEnabled_FailedCopyKeepsSource(t *testing.T) {
	ctx := context.Background()
	durable := &failingRegion{MemoryRegion: memory.NewMemoryRegion(), setErr: errors.New("redis down")}
	session := memory.NewMemoryRegion()
	creds := credentials.NewCredentialStore(durable, session, zerolog.Nop())

	require.NoError(t, creds.SavePassword(ctx, "secret"))

	err := creds.SetAutoLoginEnabled(ctx, true)
	assert.ErrorContains(t, err, "redis down")

	inDurable, inSession := holds(t, durable, session)
	assert.False(t, inDurable)
	assert.True(t, inSession)

	pw, err := creds.GetPassword(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "secret", pw)
}

func TestUserProfile_RoundTripAndAvatar(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := setupStore()

	assert.Nil(t, creds.UserProfile(ctx))
	assert.Nil(t, creds.CurrentUser(ctx))
	assert.Equal(t, credentials.DefaultAvatar, creds.Avatar(ctx))

	require.NoError(t, creds.SaveUserProfile(ctx, models.UserProfile{Id: 1, Username: "alice"}))
	require.NoError(t, creds.SaveAvatar(ctx, "avt3.jpg"))

	profile := creds.UserProfile(ctx)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Empty(t, profile.Avatar)

	current := creds.CurrentUser(ctx)
	require.NotNil(t, current)
	assert.Equal(t, "avt3.jpg", current.Avatar)

	require.NoError(t, creds.ClearUserProfile(ctx))
	assert.Nil(t, creds.UserProfile(ctx))
	assert.Equal(t, "avt3.jpg", creds.Avatar(ctx))
}

func TestUserProfile_SurvivesDisabledAutoLogin(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := setupStore()

	require.NoError(t, creds.SaveUserProfile(ctx, models.UserProfile{Id: 2, Username: "bob", Avatar: "avt2.jpg"}))
	require.NoError(t, creds.SetAutoLoginEnabled(ctx, false))

	profile := creds.CurrentUser(ctx)
	require.NotNil(t, profile)
	assert.Equal(t, models.UserProfile{Id: 2, Username: "bob", Avatar: "avt2.jpg"}, *profile)
}

func TestUserProfile_Corrupt(t *testing.T) {
	ctx := context.Background()
	creds, durable, _ := setupStore()

	require.NoError(t, durable.Set(ctx, "user_data", "{not json"))
	assert.Nil(t, creds.UserProfile(ctx))
}
