package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"notes/cmd/identity"
	"notes/cmd/security/password"
	"notes/cmd/security/token"
)

const (
	// maxGrantAttempts bounds the same-second (user, expiry) collision retries in IssueTokens.
	maxGrantAttempts = 5

	// maxTokenBytes rejects pathological cookie values before any decoding.
	maxTokenBytes = 4096

	// maxPasswordBytes is the bcrypt input limit.
	maxPasswordBytes = 72
)

// Manager implements registration, login, refresh rotation with reuse detection, and logout.
//
// It holds no mutable session state of its own; grants live in the Store.
type Manager struct {
	cfg         Config
	codec       *Codec
	users       UserStore
	grants      Store
	hasher      PasswordHasher
	revocations Revocations
	log         *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRevocations sets the access-token revocation backend. Defaults to NopRevocations.
func WithRevocations(r Revocations) Option {
	return func(m *Manager) {
		if r != nil {
			m.revocations = r
		}
	}
}

// NewManager validates cfg and wires the collaborators.
func NewManager(cfg Config, users UserStore, grants Store, hasher PasswordHasher, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if users == nil || grants == nil || hasher == nil {
		return nil, ErrConfig
	}

	codec, err := NewCodec(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:         cfg,
		codec:       codec,
		users:       users,
		grants:      grants,
		hasher:      hasher,
		revocations: NopRevocations{},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// Register creates a user. Uniqueness is left entirely to the store's constraint.
func (m *Manager) Register(ctx context.Context, now time.Time, email, plaintext string) (identity.User, error) {
	email = identity.NormalizeEmail(email)
	if err := identity.ValidateEmail(email); err != nil {
		return identity.User{}, InputError{Field: "email", Reason: "must be a valid email address"}
	}

	hash, err := m.hasher.Hash(plaintext)
	switch {
	case errors.Is(err, password.ErrPasswordTooShort),
		errors.Is(err, password.ErrPasswordTooLong),
		errors.Is(err, password.ErrWeakPassword):
		return identity.User{}, InputError{Field: "password", Reason: err.Error()}
	case err != nil:
		return identity.User{}, fmt.Errorf("session.Register: hash: %w", err)
	}

	u, err := m.users.CreateUser(ctx, identity.CreateUserInput{Email: email, PasswordHash: hash, Now: now})
	switch {
	case identity.IsConflict(err):
		m.log.Info("auth.register.duplicate")
		return identity.User{}, ErrAlreadyRegistered
	case identity.IsInvalidInput(err):
		return identity.User{}, InputError{Field: "email", Reason: "must be a valid email address"}
	case err != nil:
		return identity.User{}, fmt.Errorf("session.Register: %w", err)
	}

	m.log.Info("auth.register", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and issues a token pair.
//
// Unknown email and wrong password are indistinguishable to the caller, including in timing.
func (m *Manager) Login(ctx context.Context, now time.Time, email, plaintext string) (Issued, error) {
	email = identity.NormalizeEmail(email)
	if email == "" || plaintext == "" {
		return Issued{}, InputError{Field: "credentials", Reason: "email and password are required"}
	}

	if len(plaintext) > maxPasswordBytes {
		m.equalizeTiming()
		m.log.Info("auth.login.fail", "reason", "password_too_long")
		return Issued{}, ErrInvalidCredentials
	}

	ua, err := m.users.GetUserAuthByEmail(ctx, email)
	if identity.IsNotFound(err) {
		m.equalizeTiming()
		m.log.Info("auth.login.fail", "reason", "unknown_email")
		return Issued{}, ErrInvalidCredentials
	}
	if err != nil {
		return Issued{}, fmt.Errorf("session.Login: %w", err)
	}

	ok, err := m.hasher.Verify(ua.PasswordHash, plaintext)
	if err != nil {
		return Issued{}, fmt.Errorf("session.Login: verify: %w", err)
	}
	if !ok {
		m.log.Info("auth.login.fail", "reason", "password_mismatch", "user_id", ua.User.ID)
		return Issued{}, ErrInvalidCredentials
	}

	issued, err := m.IssueTokens(ctx, now, ua.User.ID)
	if err != nil {
		return Issued{}, err
	}
	m.log.Info("auth.login", "user_id", ua.User.ID)
	return issued, nil
}

// IssueTokens signs an access/refresh pair and persists the refresh grant.
//
// Two issuances for one user in the same second would share (user, expiry); the refresh
// expiry is then pushed one second forward and the grant insert retried.
func (m *Manager) IssueTokens(ctx context.Context, now time.Time, userID int64) (Issued, error) {
	accessExp := now.Add(m.cfg.AccessTokenTTL)
	access, err := m.codec.Sign(userID, KindAccess, now, accessExp)
	if err != nil {
		return Issued{}, fmt.Errorf("session.IssueTokens: %w", err)
	}

	refreshExp := now.Add(m.cfg.RefreshTokenTTL)
	for attempt := 0; attempt < maxGrantAttempts; attempt++ {
		refresh, err := m.codec.Sign(userID, KindRefresh, now, refreshExp)
		if err != nil {
			return Issued{}, fmt.Errorf("session.IssueTokens: %w", err)
		}

		exp, err := m.refreshExpiry(refresh)
		if err != nil {
			return Issued{}, fmt.Errorf("session.IssueTokens: %w", err)
		}

		hash, err := m.hashRefresh(refresh)
		if err != nil {
			return Issued{}, fmt.Errorf("session.IssueTokens: hash: %w", err)
		}

		err = m.grants.CreateGrant(ctx, Grant{UserID: userID, TokenHash: hash, ExpiresAt: exp.Unix()})
		if errors.Is(err, ErrGrantExists) {
			refreshExp = exp.Add(time.Second)
			continue
		}
		if err != nil {
			return Issued{}, fmt.Errorf("session.IssueTokens: %w", err)
		}

		return Issued{
			UserID:       userID,
			AccessToken:  access,
			AccessExp:    accessExp.Truncate(time.Second),
			RefreshToken: refresh,
			RefreshExp:   exp,
		}, nil
	}

	return Issued{}, fmt.Errorf("session.IssueTokens: %w after %d attempts", ErrGrantExists, maxGrantAttempts)
}

// RefreshSession redeems a refresh token and, if it is valid and unexpired, rotates it.
//
// The grant is consumed before the expiry check, so an expired token can never be retried.
func (m *Manager) RefreshSession(ctx context.Context, now time.Time, refreshToken string) (Issued, error) {
	userID, exp, err := m.redeem(ctx, now, refreshToken)
	if err != nil {
		return Issued{}, err
	}

	if !now.Before(exp) {
		m.log.Info("auth.refresh.expired", "user_id", userID)
		return Issued{}, ErrExpiredRefreshToken
	}

	m.log.Info("auth.refresh.rotate", "user_id", userID)
	return m.IssueTokens(ctx, now, userID)
}

// Logout consumes the refresh grant without issuing a new pair.
// An invalid token gets the same reuse handling as in RefreshSession.
func (m *Manager) Logout(ctx context.Context, now time.Time, refreshToken string) error {
	userID, _, err := m.redeem(ctx, now, refreshToken)
	if err != nil {
		return err
	}
	m.log.Info("auth.logout", "user_id", userID)
	return nil
}

// RevokeAll ends every session of the user and rejects access tokens issued before now.
func (m *Manager) RevokeAll(ctx context.Context, now time.Time, userID int64) (int64, error) {
	n, err := m.grants.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	m.recordCutoff(ctx, now, userID)
	m.log.Info("auth.revoke_all", "user_id", userID, "revoked", n)
	return n, nil
}

// Authenticate verifies an access token and applies the user's revocation cutoff.
func (m *Manager) Authenticate(ctx context.Context, now time.Time, accessToken string) (Claims, error) {
	claims, err := m.codec.Verify(accessToken, KindAccess, now)
	if err != nil {
		return Claims{}, err
	}

	cutoff, ok, err := m.revocations.Cutoff(ctx, claims.UserID)
	if err != nil {
		// Fail open; grants in the store stay authoritative.
		m.log.Warn("auth.revocation.lookup_failed", "user_id", claims.UserID, "err", err)
		return claims, nil
	}
	if ok && claims.IssuedAtTime().Before(cutoff) {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// redeem runs the shared first half of refresh and logout.
func (m *Manager) redeem(ctx context.Context, now time.Time, raw string) (int64, time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, time.Time{}, ErrNoRefreshToken
	}
	if len(raw) > maxTokenBytes {
		return 0, time.Time{}, ErrInvalidRefreshToken
	}

	userID, exp, err := m.grantKey(raw)
	if err != nil {
		m.log.Info("auth.refresh.undecodable")
		return 0, time.Time{}, ErrInvalidRefreshToken
	}

	res, err := m.grants.RedeemGrant(ctx, userID, exp.Unix(), m.matchRefresh(raw))
	if err != nil {
		return 0, time.Time{}, err
	}

	if !res.Valid {
		m.log.Warn("auth.refresh.reuse_detected", "user_id", userID, "revoked", res.Revoked)
		if m.codec.VerifySignature(raw) {
			m.recordCutoff(ctx, now, userID)
		}
		return 0, time.Time{}, ErrInvalidRefreshToken
	}
	return userID, exp, nil
}

// grantKey reads (user, expiry) from the refresh token WITHOUT verifying it.
// The hash comparison inside RedeemGrant is what authenticates the token.
func (m *Manager) grantKey(raw string) (int64, time.Time, error) {
	claims, err := m.codec.DecodeUnverified(raw)
	if err != nil {
		return 0, time.Time{}, err
	}
	return claims.UserID, claims.Expiry(), nil
}

func (m *Manager) refreshExpiry(raw string) (time.Time, error) {
	_, exp, err := m.grantKey(raw)
	return exp, err
}

func (m *Manager) hashRefresh(raw string) (string, error) {
	return m.hasher.HashSecret(token.RefreshDigest(raw, m.cfg.CookieSecret))
}

func (m *Manager) matchRefresh(raw string) func(string) bool {
	digest := token.RefreshDigest(raw, m.cfg.CookieSecret)
	return func(hash string) bool {
		ok, err := m.hasher.Verify(hash, digest)
		return err == nil && ok
	}
}

func (m *Manager) recordCutoff(ctx context.Context, now time.Time, userID int64) {
	if err := m.revocations.Revoke(ctx, userID, now, m.cfg.AccessTokenTTL); err != nil {
		m.log.Error("auth.revocation.store_failed", "user_id", userID, "err", err)
	}
}

// equalizeTiming spends one bcrypt comparison so that a missing user costs the same as a
// wrong password.
func (m *Manager) equalizeTiming() {
	m.dummyOnce.Do(func() {
		h, err := m.hasher.HashSecret("notes-login-timing-equalizer")
		if err == nil {
			m.dummyHash = h
		}
	})
	if m.dummyHash != "" {
		_, _ = m.hasher.Verify(m.dummyHash, "notes-login-timing-mismatch")
	}
}
