package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test_secret_key_minimum_32_characters_long_for_testing_only"

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the payload shared by access and refresh tokens.
type Claims struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID returns the numeric id carried in the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return uint(id), nil
}

// TokenPayload is what gets signed into both tokens.
type TokenPayload struct {
	UserID   uint
	Username string
	Email    string
	Roles    []string
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets so one can never be presented as the other.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// NewTestTokenIssuer builds an issuer with the fixed test secrets.
func NewTestTokenIssuer() *TokenIssuer {
	return NewTokenIssuer(testSecret, testSecret+"_refresh", 15*time.Minute, 24*time.Hour)
}

// WithClock replaces the issuer's time source.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

func (i *TokenIssuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// GeneratePair mints an access and a refresh token for the same payload.
func (i *TokenIssuer) GeneratePair(p TokenPayload) (string, string, error) {
	access, err := i.GenerateAccess(p)
	if err != nil {
		return "", "", err
	}
	refresh, err := i.sign(p, i.refreshKey, i.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (i *TokenIssuer) GenerateAccess(p TokenPayload) (string, error) {
	return i.sign(p, i.accessKey, i.accessTTL)
}

func (i *TokenIssuer) ParseAccess(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, i.accessKey)
}

func (i *TokenIssuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, i.refreshKey)
}

func (i *TokenIssuer) sign(p TokenPayload, key []byte, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Username: p.Username,
		Email:    p.Email,
		Roles:    p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func (i *TokenIssuer) parse(tokenStr string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ValidateJWTSecret rejects secrets that are unset, short, or the test default.
func ValidateJWTSecret(name, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s environment variable is required", name)
	}

	if len(secret) < 32 {
		return fmt.Errorf("%s must be at least 32 characters long (current: %d)", name, len(secret))
	}

	if secret == testSecret || secret == testSecret+"_refresh" {
		return fmt.Errorf("cannot use default test secret for %s in production", name)
	}

	return nil
}
