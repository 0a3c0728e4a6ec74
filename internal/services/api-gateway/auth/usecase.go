package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Tubely/internal/apperr"
	authtoken "github.com/NordCoder/Tubely/internal/auth"
	"github.com/NordCoder/Tubely/internal/domain/identity"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrLoginRequired      = apperr.BadRequest("username or email required")
	ErrPasswordRequired   = apperr.BadRequest("password required")
	ErrWeakPassword       = apperr.BadRequest("password must be at least 8 characters")
	ErrInvalidHandle      = apperr.BadRequest("username must be 3-30 characters of a-z, 0-9, '_' or '.'")
	ErrInvalidEmail       = apperr.BadRequest("email is invalid")
	ErrPasswordMismatch   = apperr.BadRequest("password and confirm password do not match")
	ErrUserNotFound       = apperr.NotFound("user does not exist")
	ErrWrongPassword      = apperr.Unauthorized("wrong password")
	ErrOldPasswordWrong   = apperr.Unauthorized("old password is incorrect")
	ErrRefreshMissing     = apperr.Unauthorized("unauthorized request")
	ErrRefreshInvalid     = apperr.Unauthorized("refresh token is expired or used")
	ErrInvalidAccessToken = apperr.Unauthorized("invalid access token")
	ErrIdentityTaken      = apperr.New(apperr.KindConflict, "username or email already registered")
)

const minPasswordLen = 8

var authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_events_total",
	Help: "Session lifecycle operations by outcome.",
}, []string{"op", "result"})

type Config struct {
	BcryptCost             int
	RevokeOnPasswordChange bool
	Now                    func() time.Time
}

// Tokens is a freshly minted access/refresh pair.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Session struct {
	Identity *identity.Identity `json:"user"`
	Tokens
}

type RegisterInput struct {
	Handle   string
	Email    string
	FullName string
	Password string
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

type Usecase struct {
	users  identity.Repo
	tokens *authtoken.Issuer
	cfg    Config
}

func NewUseCase(users identity.Repo, tokens *authtoken.Issuer, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Usecase{users: users, tokens: tokens, cfg: cfg}
}

func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*identity.Identity, error) {
	handle := identity.NormalizeHandle(in.Handle)
	email := identity.NormalizeEmail(in.Email)
	if !identity.ValidHandle(handle) {
		return nil, ErrInvalidHandle
	}
	if !identity.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := u.cfg.Now()
	rec := &identity.Identity{
		ID:           uuid.New(),
		Handle:       handle,
		Email:        email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.users.Create(ctx, rec); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			authEvents.WithLabelValues("register", "conflict").Inc()
			return nil, ErrIdentityTaken
		}
		return nil, err
	}
	authEvents.WithLabelValues("register", "ok").Inc()
	return rec.Public(), nil
}

// Login looks the identity up by handle or email, checks the password and
// stores the digest of a new refresh token, replacing any previous one.
func (u *Usecase) Login(ctx context.Context, login, password string) (*Session, error) {
	login = identity.NormalizeEmail(login)
	if login == "" {
		return nil, ErrLoginRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	rec, err := u.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			authEvents.WithLabelValues("login", "not_found").Inc()
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		authEvents.WithLabelValues("login", "wrong_password").Inc()
		return nil, ErrWrongPassword
	}
	tokens, err := u.issueTokens(rec.ID)
	if err != nil {
		return nil, err
	}
	if err := u.users.SetRefreshToken(ctx, rec.ID, authtoken.HashToken(tokens.RefreshToken)); err != nil {
		return nil, fmt.Errorf("save refresh: %w", err)
	}
	authEvents.WithLabelValues("login", "ok").Inc()
	return &Session{Identity: rec.Public(), Tokens: *tokens}, nil
}

// Refresh rotates the refresh token. The presented token must still be the
// stored one; the swap is a compare-and-set, so of two concurrent refreshes
// with the same token exactly one succeeds.
func (u *Usecase) Refresh(ctx context.Context, raw string) (*Tokens, error) {
	if raw == "" {
		return nil, ErrRefreshMissing
	}
	id, err := u.tokens.VerifyRefreshToken(raw)
	if err != nil {
		authEvents.WithLabelValues("refresh", "invalid").Inc()
		return nil, apperr.Wrap(apperr.KindUnauthorized, ErrRefreshInvalid.Msg, err)
	}
	rec, err := u.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			authEvents.WithLabelValues("refresh", "unknown_identity").Inc()
			return nil, apperr.Unauthorized("unauthorized access")
		}
		return nil, err
	}
	presented := authtoken.HashToken(raw)
	if rec.RefreshTokenHash == "" || subtle.ConstantTimeCompare([]byte(rec.RefreshTokenHash), []byte(presented)) != 1 {
		authEvents.WithLabelValues("refresh", "reused").Inc()
		return nil, ErrRefreshInvalid
	}
	tokens, err := u.issueTokens(rec.ID)
	if err != nil {
		return nil, err
	}
	swapped, err := u.users.RotateRefreshToken(ctx, rec.ID, presented, authtoken.HashToken(tokens.RefreshToken))
	if err != nil {
		return nil, fmt.Errorf("rotate refresh: %w", err)
	}
	if !swapped {
		authEvents.WithLabelValues("refresh", "lost_race").Inc()
		return nil, ErrRefreshInvalid
	}
	authEvents.WithLabelValues("refresh", "ok").Inc()
	return tokens, nil
}

func (u *Usecase) Logout(ctx context.Context, id uuid.UUID) error {
	if err := u.users.ClearRefreshToken(ctx, id); err != nil {
		return fmt.Errorf("clear refresh: %w", err)
	}
	authEvents.WithLabelValues("logout", "ok").Inc()
	return nil
}

func (u *Usecase) ChangePassword(ctx context.Context, id uuid.UUID, in ChangePasswordInput) error {
	if in.NewPassword != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	rec, err := u.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(in.OldPassword)) != nil {
		authEvents.WithLabelValues("change_password", "wrong_password").Inc()
		return ErrOldPasswordWrong
	}
	if len(in.NewPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), u.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := u.users.UpdatePassword(ctx, id, string(hash), u.cfg.RevokeOnPasswordChange); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	authEvents.WithLabelValues("change_password", "ok").Inc()
	return nil
}

// Authenticate resolves an access token to a live identity without
// credential fields. Storage failures other than not-found are returned as is.
func (u *Usecase) Authenticate(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return nil, apperr.Unauthorized("unauthorized access")
	}
	id, err := u.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidAccessToken.Msg, err)
	}
	rec, err := u.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidAccessToken
		}
		return nil, err
	}
	return rec.Public(), nil
}

func (u *Usecase) issueTokens(id uuid.UUID) (*Tokens, error) {
	access, err := u.tokens.IssueAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("sign access: %w", err)
	}
	refresh, err := u.tokens.IssueRefreshToken(id)
	if err != nil {
		return nil, fmt.Errorf("sign refresh: %w", err)
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}
