package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kyz7/warranty/internal/database"
	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Str0ng@Pass"

func newTestService(t *testing.T, resetTTL time.Duration) (*Service, *gorm.DB) {
	utils.PasswordCost = bcrypt.MinCost

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	svc := NewService(NewGormUserStore(db), utils.NewTestTokenIssuer(), resetTTL)
	t.Cleanup(func() {
		svc.Close()
		_ = sqlDB.Close()
	})
	return svc, db
}

func signUp(t *testing.T, svc *Service, username, email string) *models.User {
	u, err := svc.SignUp(context.Background(), username, email, testPassword)
	require.NoError(t, err)
	return u
}

func reload(t *testing.T, db *gorm.DB, id uint) models.User {
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return u
}

func TestSignUp(t *testing.T) {
	svc, db := newTestService(t, time.Minute)
	ctx := context.Background()

	u := signUp(t, svc, "alice", "alice@example.com")
	stored := reload(t, db, u.ID)
	assert.Equal(t, []string{models.RoleUser}, []string(stored.Roles))
	assert.Equal(t, models.DefaultWelcomeMessage, stored.Bio.WelcomeMessage)
	assert.NotEqual(t, testPassword, stored.Password)
	assert.True(t, utils.CheckPasswordHash(testPassword, stored.Password))

	t.Run("Duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, "alice2", "alice@example.com", testPassword)
		var dup *database.DuplicateKeyError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "Email already exists", dup.Message())
	})

	t.Run("Duplicate username", func(t *testing.T) {
		_, err := svc.SignUp(ctx, "alice", "other@example.com", testPassword)
		var dup *database.DuplicateKeyError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "Username already exists", dup.Message())
	})
}

func TestSignIn(t *testing.T) {
	svc, db := newTestService(t, time.Minute)
	ctx := context.Background()
	u := signUp(t, svc, "alice", "alice@example.com")

	session, err := svc.SignIn(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEqual(t, session.AccessToken, session.RefreshToken)

	stored := reload(t, db, u.ID)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, session.RefreshToken, *stored.RefreshToken)

	claims, err := svc.Tokens().ParseAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, []string{models.RoleUser}, claims.Roles)

	_, err = svc.Tokens().ParseAccess(session.RefreshToken)
	assert.ErrorIs(t, err, utils.ErrTokenInvalid, "refresh token must not pass as access token")

	_, err = svc.SignIn(ctx, "alice@example.com", "Wr0ng@Pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignInAdmin(ctx, "alice@example.com", testPassword)
	assert.ErrorIs(t, err, ErrNotAdmin)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).
		Update("roles", `["user","admin"]`).Error)
	_, err = svc.SignInAdmin(ctx, "alice@example.com", testPassword)
	assert.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	svc, db := newTestService(t, time.Minute)
	ctx := context.Background()
	alice := signUp(t, svc, "alice", "alice@example.com")
	bob := signUp(t, svc, "bobby", "bob@example.com")

	aliceSession, err := svc.SignIn(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	t.Run("Success returns a new access token only", func(t *testing.T) {
		access, err := svc.Refresh(ctx, aliceSession.RefreshToken)
		require.NoError(t, err)
		claims, err := svc.Tokens().ParseAccess(access)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)

		stored := reload(t, db, alice.ID)
		assert.Equal(t, aliceSession.RefreshToken, *stored.RefreshToken, "refresh token is not rotated")
	})

	t.Run("Missing token", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "")
		assert.ErrorIs(t, err, ErrRefreshMissing)
	})

	t.Run("Token not stored for any user", func(t *testing.T) {
		_, refresh, err := svc.Tokens().GeneratePair(payloadFor(alice))
		require.NoError(t, err)
		_, err = svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, ErrRefreshForbidden)
	})

	t.Run("Token belonging to another user", func(t *testing.T) {
		bobSession, err := svc.SignIn(ctx, "bob@example.com", testPassword)
		require.NoError(t, err)
		require.NoError(t, svc.store.SetRefreshToken(ctx, bob.ID, nil))
		require.NoError(t, svc.store.SetRefreshToken(ctx, alice.ID, &bobSession.RefreshToken))

		_, err = svc.Refresh(ctx, bobSession.RefreshToken)
		assert.ErrorIs(t, err, ErrRefreshForbidden)
	})

	t.Run("Access token presented as refresh", func(t *testing.T) {
		access, _, err := svc.Tokens().GeneratePair(payloadFor(alice))
		require.NoError(t, err)
		require.NoError(t, svc.store.SetRefreshToken(ctx, alice.ID, &access))

		_, err = svc.Refresh(ctx, access)
		assert.ErrorIs(t, err, ErrRefreshForbidden)
	})

	t.Run("Expired token", func(t *testing.T) {
		past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
		_, expired, err := utils.NewTestTokenIssuer().WithClock(past).GeneratePair(payloadFor(alice))
		require.NoError(t, err)
		require.NoError(t, svc.store.SetRefreshToken(ctx, alice.ID, &expired))

		_, err = svc.Refresh(ctx, expired)
		assert.ErrorIs(t, err, ErrRefreshExpired)
	})
}

func TestLogout(t *testing.T) {
	svc, db := newTestService(t, time.Minute)
	ctx := context.Background()
	u := signUp(t, svc, "alice", "alice@example.com")

	session, err := svc.SignIn(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	ok, err := svc.Logout(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, reload(t, db, u.ID).RefreshToken)

	ok, err = svc.Logout(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.False(t, ok, "second logout with the same token")

	ok, err = svc.Logout(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshForbidden)
}

func TestResetPassword(t *testing.T) {
	svc, db := newTestService(t, time.Minute)
	ctx := context.Background()
	u := signUp(t, svc, "alice", "alice@example.com")

	_, err := svc.ForgotPassword(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	token, err := svc.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, svc.pendingResets())

	stored := reload(t, db, u.ID)
	require.NotNil(t, stored.ResetPassword.TokenHash)
	assert.Equal(t, utils.HashToken(token), *stored.ResetPassword.TokenHash, "only the hash is persisted")
	assert.WithinDuration(t, time.Now().Add(time.Minute), *stored.ResetPassword.ExpiresAt, 5*time.Second)

	require.NoError(t, svc.ResetPassword(ctx, token, "N3w@Password"))
	assert.Equal(t, 0, svc.pendingResets())

	stored = reload(t, db, u.ID)
	assert.Nil(t, stored.ResetPassword.TokenHash)
	assert.Nil(t, stored.ResetPassword.ExpiresAt)
	assert.True(t, utils.CheckPasswordHash("N3w@Password", stored.Password))

	err = svc.ResetPassword(ctx, token, "An0ther@Pass")
	assert.ErrorIs(t, err, ErrInvalidResetToken, "reset tokens are single use")

	err = svc.ResetPassword(ctx, "made-up", "An0ther@Pass")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	_, err = svc.SignIn(ctx, "alice@example.com", "N3w@Password")
	assert.NoError(t, err)
}

func TestResetPasswordExpired(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	ctx := context.Background()
	signUp(t, svc, "alice", "alice@example.com")

	token, err := svc.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	err = svc.ResetPassword(ctx, token, "N3w@Password")
	assert.ErrorIs(t, err, ErrResetTokenExpired)
}

func TestResetTimerClearsToken(t *testing.T) {
	svc, db := newTestService(t, 50*time.Millisecond)
	ctx := context.Background()
	u := signUp(t, svc, "alice", "alice@example.com")

	token, err := svc.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		var stored models.User
		if err := db.First(&stored, u.ID).Error; err != nil {
			return false
		}
		return stored.ResetPassword.TokenHash == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, svc.pendingResets())

	err = svc.ResetPassword(ctx, token, "N3w@Password")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestForgotPasswordReplacesPendingReset(t *testing.T) {
	svc, db := newTestService(t, time.Minute)
	ctx := context.Background()
	u := signUp(t, svc, "alice", "alice@example.com")

	first, err := svc.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	second, err := svc.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, svc.pendingResets())

	// A stale timer for the first token must not clear the second one.
	svc.expireReset(u.ID, &resetTimer{hash: utils.HashToken(first)})
	stored := reload(t, db, u.ID)
	require.NotNil(t, stored.ResetPassword.TokenHash)
	assert.Equal(t, utils.HashToken(second), *stored.ResetPassword.TokenHash)

	assert.ErrorIs(t, svc.ResetPassword(ctx, first, "N3w@Password"), ErrInvalidResetToken)
	assert.NoError(t, svc.ResetPassword(ctx, second, "N3w@Password"))
}

func TestCloseStopsTimers(t *testing.T) {
	svc, db := newTestService(t, 50*time.Millisecond)
	ctx := context.Background()
	u := signUp(t, svc, "alice", "alice@example.com")

	_, err := svc.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)

	svc.Close()
	assert.Equal(t, 0, svc.pendingResets())

	time.Sleep(150 * time.Millisecond)
	assert.NotNil(t, reload(t, db, u.ID).ResetPassword.TokenHash)
}
