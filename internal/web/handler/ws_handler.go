package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/job-tracker/internal/web/ws"
	"github.com/gin-gonic/gin"
)

// Stream handles GET /ws: it upgrades the connection and pushes the session's
// toast changes. The current toast, if any, is sent first.
func (h *Handler) Stream(c *gin.Context) {
	if h.hub == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	sess := SessionFrom(c)
	wsp := h.workspaces.Get(sess)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	h.hub.Attach(conn, sess.Token, &ws.Message{Type: ws.TypeToast, Toast: currentToast(wsp.Toast)})
}
