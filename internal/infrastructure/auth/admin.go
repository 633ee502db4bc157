// Package auth guards the public API with static keys and the admin API with
// short-lived HS256 session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
)

const adminIssuer = "flow-api"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired admin token")
	ErrTokenRevoked       = errors.New("admin token has been revoked")
)

// AdminCredentials returns the configured admin login. It is read on every
// login so edits to the settings file apply without a restart.
type AdminCredentials func() (username, password string)

// AdminClaims are carried by admin session tokens.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AdminAuth issues, validates and revokes admin session tokens.
type AdminAuth struct {
	secret      []byte
	ttl         time.Duration
	credentials AdminCredentials
	revoked     RevocationStore
	log         zerolog.Logger
	now         func() time.Time
}

// NewAdminAuth builds an AdminAuth. Without ADMIN_JWT_SECRET a random secret
// is generated, so sessions do not survive a restart.
func NewAdminAuth(cfg *config.Config, credentials AdminCredentials, revoked RevocationStore, log zerolog.Logger) (*AdminAuth, error) {
	logger := log.With().Str("component", "admin-auth").Logger()
	secret := []byte(cfg.AdminJWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate admin secret: %w", err)
		}
		logger.Warn().Msg("ADMIN_JWT_SECRET is not set; admin sessions will not survive a restart")
	}
	ttl := cfg.AdminTokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if revoked == nil {
		revoked = NewMemoryRevocationStore()
	}
	return &AdminAuth{
		secret:      secret,
		ttl:         ttl,
		credentials: credentials,
		revoked:     revoked,
		log:         logger,
		now:         time.Now,
	}, nil
}

// Login checks the credentials and returns a signed token and its expiry.
func (a *AdminAuth) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	wantUser, wantPass := a.credentials()
	if wantUser == "" || wantPass == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(wantUser)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(wantPass)) != 1 {
		a.log.Warn().Str("username", username).Msg("admin login rejected")
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    adminIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	a.log.Info().Str("username", username).Time("expires_at", expires).Msg("admin logged in")
	return signed, expires, nil
}

// Validate parses the token and checks that it has not been revoked.
func (a *AdminAuth) Validate(ctx context.Context, tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (a *AdminAuth) Logout(ctx context.Context, tokenString string) error {
	claims, err := a.Validate(ctx, tokenString)
	if err != nil {
		return err
	}
	if err := a.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke admin token: %w", err)
	}
	a.log.Info().Str("username", claims.Username).Msg("admin logged out")
	return nil
}
