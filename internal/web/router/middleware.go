package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/job-tracker/internal/web/handler"
	"github.com/gin-gonic/gin"
)

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("body_size", c.Writer.Size()),
		}
		if sess := handler.SessionFrom(c); sess != nil {
			attrs = append(attrs, slog.String("user_id", sess.UserID().String()))
		}
		logger.Info("HTTP Request", attrs...)

		for _, e := range c.Errors {
			logger.Error("Request error",
				slog.String("error", e.Error()),
				slog.Uint64("type", uint64(e.Type)),
			)
		}
	}
}

// SessionMiddleware resolves the session cookie. Requests without a valid
// session are sent to the login view.
func SessionMiddleware(deps *handler.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(deps.Settings.CookieName)
		if err != nil || token == "" {
			abortToLogin(c)
			return
		}

		sess, err := deps.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			deps.Logger.Debug("Session rejected", slog.Any("error", err))
			abortToLogin(c)
			return
		}

		handler.SetSession(c, sess)
		c.Next()
	}
}

func abortToLogin(c *gin.Context) {
	r := handler.LoginRedirect()
	c.Header("Location", r.RedirectTo)
	c.AbortWithStatusJSON(http.StatusSeeOther, r)
}
