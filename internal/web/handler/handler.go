package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/auth"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/session"
	"github.com/cuongbtq/job-tracker/internal/web/dto"
	"github.com/cuongbtq/job-tracker/internal/web/ws"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const sessionKey = "tracker.session"

// Settings are the user-facing knobs of the web surface
type Settings struct {
	CookieName     string
	SecureCookies  bool
	SessionTTL     time.Duration
	ToastDuration  time.Duration
	RedirectDelay  time.Duration
	AllowedOrigins []string
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Auth     *auth.Service
	API      *apiclient.Client
	Events   events.Emitter
	Hub      *ws.Hub
	Settings Settings
}

// Handler serves the tracker's web routes
type Handler struct {
	logger     *slog.Logger
	auth       *auth.Service
	api        *apiclient.Client
	events     events.Emitter
	hub        *ws.Hub
	settings   Settings
	workspaces *Workspaces
	upgrader   websocket.Upgrader
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	emitter := deps.Events
	if emitter == nil {
		emitter = events.Nop{}
	}

	h := &Handler{
		logger:     deps.Logger,
		auth:       deps.Auth,
		api:        deps.API,
		events:     emitter,
		hub:        deps.Hub,
		settings:   deps.Settings,
		workspaces: NewWorkspaces(deps.API, deps.Hub, deps.Settings.ToastDuration, deps.Logger),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Workspaces exposes the per-session state registry
func (h *Handler) Workspaces() *Workspaces {
	return h.workspaces
}

// SetSession stores the authenticated session on the request
func SetSession(c *gin.Context, sess *session.Session) {
	c.Set(sessionKey, sess)
}

// SessionFrom returns the session stored by the session middleware
func SessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// LoginRedirect is the payload of a redirect to the login view
func LoginRedirect() dto.Redirect {
	return dto.Redirect{
		RedirectTo: domain.RouteLogin,
		Toast:      &domain.ToastMessage{Message: domain.MsgLoginRequired, Severity: domain.SeverityError},
	}
}

// redirect answers 303 with the target in both the Location header and the body
func redirect(c *gin.Context, r dto.Redirect) {
	c.Header("Location", r.RedirectTo)
	c.JSON(http.StatusSeeOther, r)
}

func currentToast(t interface {
	Current() (domain.ToastMessage, bool)
}) *domain.ToastMessage {
	msg, ok := t.Current()
	if !ok {
		return nil
	}
	return &msg
}

// statusFor maps an error to the response status
func statusFor(err error) int {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrOwnerMismatch):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		if apiErr.IsNotFound() {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the error payload, preferring field details and backend messages
func errorBody(err error, fallback string) dto.ErrorResponse {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return dto.ErrorResponse{Error: verr.Error(), Field: verr.Field}
	}
	return dto.ErrorResponse{Error: apiclient.Message(err, fallback)}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range h.settings.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
