package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notes/cmd/internal/auth/session"

	"github.com/go-chi/chi/v5"
)

// Handler wires HTTP auth endpoints to the session manager.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Manager
	metrics  *Metrics
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics records auth outcomes.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Manager, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session manager")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = RefreshCookieName
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Routes mounts the auth endpoints on r.
//
// /refreshToken is public: the refresh cookie is its only credential.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/refreshToken", h.handleRefresh)
	r.Post("/refreshToken", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
	r.With(h.RequireAuth).Post("/logout/all", h.handleLogoutAll)
}

// RequireAuth rejects requests without a valid bearer access token and stores the
// user id in the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			WriteError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		claims, err := h.sessions.Authenticate(r.Context(), h.now(), token)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithUserID(r.Context(), claims.UserID)))
	})
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	_, err := h.sessions.Register(r.Context(), h.now(), req.Email, req.Password)
	var inputErr session.InputError
	switch {
	case err == nil:
		h.metrics.observe("register", "ok")
		WriteJSON(w, http.StatusCreated, messageResponse{Message: msgRegistered})
	case errors.Is(err, session.ErrAlreadyRegistered):
		h.metrics.observe("register", "conflict")
		WriteError(w, http.StatusConflict, msgAlreadyRegistered)
	case errors.As(err, &inputErr):
		h.metrics.observe("register", "invalid")
		WriteError(w, http.StatusBadRequest, inputErr.Error())
	default:
		h.internalError(w, "auth.register.fail", "register", err)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	issued, err := h.sessions.Login(r.Context(), h.now(), req.Email, req.Password)
	var inputErr session.InputError
	switch {
	case err == nil:
		h.metrics.observe("login", "ok")
		h.writeIssued(w, issued)
	case errors.Is(err, session.ErrInvalidCredentials):
		h.metrics.observe("login", "invalid_credentials")
		WriteError(w, http.StatusNotFound, msgInvalidLogin)
	case errors.As(err, &inputErr):
		h.metrics.observe("login", "invalid")
		WriteError(w, http.StatusBadRequest, inputErr.Error())
	default:
		h.internalError(w, "auth.login.fail", "login", err)
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	issued, err := h.sessions.RefreshSession(r.Context(), h.now(), h.refreshTokenFromCookie(r))
	if err != nil {
		h.writeRefreshError(w, "refresh", err)
		return
	}
	h.metrics.observe("refresh", "ok")
	h.writeIssued(w, issued)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), h.now(), h.refreshTokenFromCookie(r)); err != nil {
		h.writeRefreshError(w, "logout", err)
		return
	}
	h.metrics.observe("logout", "ok")
	h.expireRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	if _, err := h.sessions.RevokeAll(r.Context(), h.now(), userID); err != nil {
		h.internalError(w, "auth.logout_all.fail", "logout_all", err)
		return
	}
	h.metrics.observe("logout_all", "ok")
	h.expireRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// ---- helpers ----

// writeIssued puts the access token in the body and the refresh token in the cookie only.
func (h *Handler) writeIssued(w http.ResponseWriter, issued session.Issued) {
	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
	WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: issued.AccessToken})
}

func (h *Handler) writeRefreshError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, session.ErrNoRefreshToken):
		h.metrics.observe(op, "no_token")
		WriteError(w, http.StatusUnauthorized, msgNoRefreshToken)
	case errors.Is(err, session.ErrInvalidRefreshToken):
		h.metrics.observe(op, "invalid")
		h.expireRefreshCookie(w)
		WriteError(w, http.StatusUnauthorized, msgInvalidRefresh)
	case errors.Is(err, session.ErrExpiredRefreshToken):
		h.metrics.observe(op, "expired")
		h.expireRefreshCookie(w)
		WriteError(w, http.StatusUnauthorized, msgExpiredRefresh)
	default:
		h.internalError(w, "auth."+op+".fail", op, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, event, op string, err error) {
	h.metrics.observe(op, "error")
	h.log.Error(event, "err", err)
	WriteError(w, http.StatusInternalServerError, msgInternal)
}
