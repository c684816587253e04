package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Kyz7/warranty/internal/database"
	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAdmin           = errors.New("admin role required")
	ErrUserNotFound       = errors.New("user not found")
	ErrRefreshMissing     = errors.New("no refresh token")
	ErrRefreshForbidden   = errors.New("invalid refresh token")
	ErrRefreshExpired     = errors.New("refresh token expired")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrResetTokenExpired  = errors.New("reset token has expired")
)

// Session is what a successful sign-in hands back.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

type resetTimer struct {
	hash  string
	timer *time.Timer
}

// Service owns the token lifecycle and the per-user reset expiry timers.
// Call Close on shutdown to stop pending timers.
type Service struct {
	store    UserStore
	tokens   *utils.TokenIssuer
	resetTTL time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[uint]*resetTimer
}

func NewService(store UserStore, tokens *utils.TokenIssuer, resetTTL time.Duration) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		resetTTL: resetTTL,
		now:      time.Now,
		timers:   make(map[uint]*resetTimer),
	}
}

func (s *Service) Tokens() *utils.TokenIssuer {
	return s.tokens
}

func (s *Service) Store() UserStore {
	return s.store
}

// SignUp creates a user with the default role. A unique violation comes back
// as *database.DuplicateKeyError.
func (s *Service) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Roles:    []string{models.RoleUser},
		Bio:      models.DefaultBio(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		if dup := database.AsDuplicateKey(err); dup != nil {
			return nil, dup
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return s.signIn(ctx, email, password, false)
}

// SignInAdmin is SignIn restricted to users holding the admin role.
func (s *Service) SignInAdmin(ctx context.Context, email, password string) (*Session, error) {
	return s.signIn(ctx, email, password, true)
}

func (s *Service) signIn(ctx context.Context, email, password string, adminOnly bool) (*Session, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, ErrInvalidCredentials
	}
	if adminOnly && !u.IsAdmin() {
		return nil, ErrNotAdmin
	}

	access, refresh, err := s.tokens.GeneratePair(payloadFor(u))
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	if err := s.store.SetRefreshToken(ctx, u.ID, &refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	u.RefreshToken = &refresh

	return &Session{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Refresh trades a stored, valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrRefreshMissing
	}

	u, err := s.store.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrRefreshForbidden
	}
	if err != nil {
		return "", err
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if errors.Is(err, utils.ErrTokenExpired) {
		return "", ErrRefreshExpired
	}
	if err != nil {
		return "", ErrRefreshForbidden
	}
	if claims.Username != u.Username {
		return "", ErrRefreshForbidden
	}

	access, err := s.tokens.GenerateAccess(payloadFor(u))
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return access, nil
}

// Logout clears the stored refresh token. Unknown or empty tokens report false.
func (s *Service) Logout(ctx context.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, nil
	}

	u, err := s.store.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.store.SetRefreshToken(ctx, u.ID, nil); err != nil {
		return false, err
	}
	return true, nil
}

// ForgotPassword stores a fresh reset token hash and returns the plain token.
// Any reset already pending for the user is replaced.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	plain, hash := utils.GenerateResetToken()
	if err := s.store.SetResetToken(ctx, u.ID, hash, s.now().Add(s.resetTTL)); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	s.scheduleReset(u.ID, hash)

	return plain, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	u, err := s.store.FindByResetHash(ctx, utils.HashToken(token))
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	if !u.ResetPassword.Pending() {
		return ErrInvalidResetToken
	}
	if u.ResetPassword.Expired(s.now()) {
		return ErrResetTokenExpired
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.cancelReset(u.ID)
	return nil
}

func (s *Service) scheduleReset(userID uint, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[userID]; ok {
		old.timer.Stop()
	}
	entry := &resetTimer{hash: hash}
	entry.timer = time.AfterFunc(s.resetTTL, func() { s.expireReset(userID, entry) })
	s.timers[userID] = entry
}

func (s *Service) expireReset(userID uint, entry *resetTimer) {
	s.mu.Lock()
	if s.timers[userID] == entry {
		delete(s.timers, userID)
	}
	s.mu.Unlock()

	cleared, err := s.store.ClearResetToken(context.Background(), userID, entry.hash)
	if err != nil {
		log.Printf("⚠️  Failed to clear expired reset token for user %d: %v", userID, err)
		return
	}
	if cleared {
		log.Printf("🧹 Expired reset token cleared for user %d", userID)
	}
}

func (s *Service) cancelReset(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.timers[userID]; ok {
		entry.timer.Stop()
		delete(s.timers, userID)
	}
}

func (s *Service) pendingResets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops every pending reset timer.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, id)
	}
}

func payloadFor(u *models.User) utils.TokenPayload {
	return utils.TokenPayload{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    []string(u.Roles),
	}
}
