package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/obs"
	"github.com/NordCoder/Tubely/internal/services/api-gateway/httpx"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type Server struct {
	log          *zap.Logger
	uc           *Usecase
	cookieDomain string
	cookiePath   string
	cookieSecure bool
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

type Opts struct {
	Logger       *zap.Logger
	CookieDomain string
	CookiePath   string
	CookieSecure bool
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

func NewServer(uc *Usecase, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.CookiePath == "" {
		o.CookiePath = "/"
	}
	return &Server{
		log:          log.With(zap.String("component", "auth.http")),
		uc:           uc,
		cookieDomain: o.CookieDomain,
		cookiePath:   o.CookiePath,
		cookieSecure: o.CookieSecure,
		accessTTL:    o.AccessTTL,
		refreshTTL:   o.RefreshTTL,
	}
}

// Routes mounts the auth endpoints. Protected ones are wrapped with gate.
func (s *Server) Routes(r chi.Router, gate func(http.Handler) http.Handler) {
	r.Post("/auth/register", s.Register)
	r.Post("/auth/login", s.Login)
	r.Post("/auth/refresh", s.Refresh)
	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Post("/auth/logout", s.Logout)
		r.Post("/auth/change-password", s.ChangePassword)
		r.Get("/auth/me", s.Me)
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Password string `json:"password"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	u, err := s.uc.Register(r.Context(), RegisterInput{
		Handle:   req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	obs.WithTrace(r.Context(), s.log).Info("auth.register", zap.String("identity_id", u.ID.String()))
	httpx.OK(w, http.StatusCreated, u, "User registered successfully")
}

type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) identifier() string {
	for _, v := range []string{r.Login, r.Username, r.Email} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	sess, err := s.uc.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	obs.WithTrace(r.Context(), s.log).Info("auth.login", zap.String("identity_id", sess.Identity.ID.String()))
	s.setTokenCookies(w, &sess.Tokens)
	httpx.OK(w, http.StatusOK, sess, "User logged in successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := refreshFromCookie(r)
	if raw == "" {
		var req refreshRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.Fail(w, r, s.log, err)
			return
		}
		raw = req.RefreshToken
	}
	if raw == "" {
		raw = strings.TrimSpace(r.Header.Get("X-Refresh-Token"))
	}

	tokens, err := s.uc.Refresh(r.Context(), raw)
	if err != nil {
		// storage failures are retryable; keep the client's cookies
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			s.clearTokenCookies(w)
		}
		httpx.Fail(w, r, s.log, err)
		return
	}

	obs.WithTrace(r.Context(), s.log).Info("auth.refresh")
	s.setTokenCookies(w, tokens)
	httpx.OK(w, http.StatusOK, tokens, "Access token refreshed successfully")
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	me := MustIdentity(r.Context())

	if err := s.uc.Logout(r.Context(), me.ID); err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	obs.WithTrace(r.Context(), s.log).Info("auth.logout", zap.String("identity_id", me.ID.String()))
	s.clearTokenCookies(w)
	httpx.OK(w, http.StatusOK, nil, "User logged out successfully")
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	me := MustIdentity(r.Context())

	var req changePasswordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	err := s.uc.ChangePassword(r.Context(), me.ID, ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	obs.WithTrace(r.Context(), s.log).Info("auth.change_password", zap.String("identity_id", me.ID.String()))
	httpx.OK(w, http.StatusOK, nil, "Password changed successfully")
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, MustIdentity(r.Context()), "User fetched successfully")
}

func (s *Server) setTokenCookies(w http.ResponseWriter, t *Tokens) {
	http.SetCookie(w, s.cookie(AccessCookie, t.AccessToken, s.accessTTL))
	http.SetCookie(w, s.cookie(RefreshCookie, t.RefreshToken, s.refreshTTL))
}

func (s *Server) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := s.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0).UTC()
		http.SetCookie(w, c)
	}
}

func (s *Server) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.cookiePath,
		Domain:   s.cookieDomain,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = time.Now().Add(ttl).UTC()
	}
	return c
}

func refreshFromCookie(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}
