package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/web/dto"
	"github.com/gin-gonic/gin"
)

// Register handles POST /register
func (h *Handler) Register(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), domain.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		msg := domain.MsgRegisterFailed
		if errors.Is(err, domain.ErrUsernameTaken) {
			msg = domain.MsgUsernameTaken
		}
		h.logger.Warn("Registration failed",
			slog.String("username", req.Username),
			slog.Any("error", err),
		)
		c.JSON(statusFor(err), errorBody(err, msg))
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{
		User: dto.UserView{ID: user.ID, Username: user.Username},
		Redirect: dto.Redirect{
			RedirectTo: domain.RouteLogin,
			Toast:      &domain.ToastMessage{Message: domain.MsgRegisterSuccess, Severity: domain.SeveritySuccess},
		},
	})
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	sess, err := h.auth.Login(c.Request.Context(), domain.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		h.logger.Warn("Login failed",
			slog.String("username", req.Username),
			slog.Any("error", err),
		)
		c.JSON(statusFor(err), errorBody(err, domain.MsgLoginFailed))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.settings.CookieName, sess.Token, int(h.settings.SessionTTL.Seconds()), "/", "", h.settings.SecureCookies, true)

	wsp := h.workspaces.Get(sess)
	wsp.Toast.Success(domain.MsgLoginSuccess)

	c.JSON(http.StatusOK, dto.AuthResponse{
		User: dto.UserView{ID: sess.User.ID, Username: sess.User.Username},
		Redirect: dto.Redirect{
			RedirectTo: domain.RouteHome,
			Toast:      currentToast(wsp.Toast),
		},
	})
}

// Logout handles POST /logout
func (h *Handler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.settings.CookieName)

	if token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			h.logger.Error("Failed to log out", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: domain.MsgUnexpectedFailed})
			return
		}
		h.workspaces.Drop(token)
		if h.hub != nil {
			h.hub.CloseSession(token)
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.settings.CookieName, "", -1, "/", "", h.settings.SecureCookies, true)
	c.JSON(http.StatusOK, dto.Redirect{
		RedirectTo: domain.RouteLogin,
		Toast:      &domain.ToastMessage{Message: domain.MsgLogoutSuccess, Severity: domain.SeverityInfo},
	})
}
