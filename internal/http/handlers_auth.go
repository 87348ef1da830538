package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/service"
)

// SessionBoards drops per-session board state when a session ends.
type SessionBoards interface {
	Discard(ctx context.Context, sessionToken string) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
//
// Each request runs on a fresh SessionMachine; the session cookie and the provider
// session it names are what carry state between requests. Only the event stream keeps
// a machine alive long enough for a concurrent sign-out to supersede a pending result.
type AuthHandlers struct {
	Svc SessionResolver
	// Boards is optional; when set, logout discards the session's board.
	Boards       SessionBoards
	CookieDomain string
	// CookieMaxAge bounds the session cookie lifetime. Zero issues a browser-session cookie.
	CookieMaxAge time.Duration
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and sets the session cookie.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	m := h.Svc.NewMachine("")
	if _, err := m.Login(r.Context(), req.Email, req.Password); err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	h.setSessionCookie(w, r, m.Token())
	WriteJSON(w, http.StatusOK, m.State())
}

// Register creates an account with the standard role and signs it in.
// POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "name, email and password are required")
		return
	}

	m := h.Svc.NewMachine("")
	_, err := m.Register(r.Context(), service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	h.setSessionCookie(w, r, m.Token())
	WriteJSON(w, http.StatusCreated, m.State())
}

// Logout ends the provider session, discards the session board and clears the cookie.
// The response is the same whether or not a session was present.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		m := h.Svc.NewMachine(token)
		if err := m.Logout(r.Context()); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
		if h.Boards != nil {
			if err := h.Boards.Discard(r.Context(), token); err != nil {
				h.logger().WarnContext(r.Context(), "discard board state failed", "error", err)
			}
		}
	}

	h.clearCookie(w, r)
	WriteJSON(w, http.StatusOK, domainauth.SessionState{})
}

// Status returns the current session state.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	m := h.Svc.Resolve(r.Context(), token)
	st := m.State()
	if token != "" && !st.Authenticated {
		h.clearCookie(w, r)
	}
	WriteJSON(w, http.StatusOK, st)
}

type authFailure struct {
	code    int
	message string
}

//nolint:gochecknoglobals // static lookup from failure reason to response
var authFailures = map[domainauth.FailureReason]authFailure{
	domainauth.ReasonInvalidCredentials:  {http.StatusUnauthorized, "invalid email or password"},
	domainauth.ReasonDuplicateEmail:      {http.StatusConflict, "email already registered"},
	domainauth.ReasonSuperseded:          {http.StatusConflict, "session changed while signing in"},
	domainauth.ReasonLookupFailed:        {http.StatusBadGateway, "user profile unavailable"},
	domainauth.ReasonProviderUnavailable: {http.StatusServiceUnavailable, "identity provider unavailable"},
}

// writeAuthFailure maps an AuthError reason to a status code. Provider details are logged, not returned.
func (h *AuthHandlers) writeAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	reason := domainauth.ReasonOf(err)
	f, ok := authFailures[reason]
	if !ok {
		h.logger().ErrorContext(r.Context(), "unexpected auth failure", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error"})
		return
	}
	if f.code >= http.StatusInternalServerError {
		h.logger().WarnContext(r.Context(), "auth request failed", "reason", reason, "error", err)
	}
	WriteError(w, ErrorParams{Code: f.code, ErrCode: string(reason), Err: errors.New(f.message)})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// setSessionCookie writes the session cookie for token.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
	if h.CookieMaxAge > 0 {
		c.MaxAge = int(h.CookieMaxAge.Seconds())
	}
	http.SetCookie(w, c)
}

// clearCookie expires the session cookie, mirroring the attributes used to set it.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
