package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/job-tracker/internal/derive"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/web/dto"
	"github.com/gin-gonic/gin"
)

// Home handles GET /home. The first visit of a session loads the list; later
// visits derive from the list kept in the workspace.
func (h *Handler) Home(c *gin.Context) {
	wsp := h.workspaces.Get(SessionFrom(c))

	if !wsp.List.Snapshot().Loaded {
		if err := wsp.List.Fetch(c.Request.Context()); err != nil {
			wsp.Toast.Error(wsp.List.Snapshot().Error)
		}
	}

	h.renderHome(c, wsp)
}

// Refresh handles POST /home/refresh
func (h *Handler) Refresh(c *gin.Context) {
	wsp := h.workspaces.Get(SessionFrom(c))

	if err := wsp.List.Fetch(c.Request.Context()); err != nil {
		msg := wsp.List.Snapshot().Error
		wsp.Toast.Error(msg)
		c.JSON(statusFor(err), dto.ErrorResponse{Error: msg})
		return
	}

	h.renderHome(c, wsp)
}

// SetParam handles POST /home/params. The view configuration lives in the URL, so
// the answer is a redirect to the list view with the updated query string.
func (h *Handler) SetParam(c *gin.Context) {
	var req dto.ParamRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if !derive.IsQueryParam(req.Key) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown query parameter", Field: req.Key})
		return
	}

	values := derive.Set(c.Request.URL.Query(), req.Key, req.Value)
	values.Del(derive.ParamCursor)

	target := domain.RouteHome
	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}
	redirect(c, dto.Redirect{RedirectTo: target})
}

func (h *Handler) renderHome(c *gin.Context, wsp *Workspace) {
	query := derive.ParseQuery(c.Request.URL.Query())
	snap := wsp.List.Snapshot()
	derived := derive.Derive(snap.Jobs, query)

	page, err := derive.Paginate(derived, query.SortOrder(),
		derive.ParsePageSize(c.Query(derive.ParamPageSize)), c.Query(derive.ParamCursor))
	if err != nil {
		h.logger.Warn("Invalid list cursor", slog.Any("error", err))
		status := http.StatusInternalServerError
		if errors.Is(err, derive.ErrInvalidCursor) {
			status = http.StatusBadRequest
		}
		c.JSON(status, dto.ErrorResponse{Error: "Invalid cursor", Field: derive.ParamCursor})
		return
	}

	cards := make([]dto.JobCard, len(page.Jobs))
	for i, job := range page.Jobs {
		cards[i] = dto.NewJobCard(job)
	}

	view := dto.HomeView{
		Query:      query,
		Jobs:       cards,
		Matching:   len(derived),
		NextCursor: page.NextCursor,
		Stats:      derive.CalculateJobStats(snap.Jobs),
		Loading:    snap.Loading,
		Error:      snap.Error,
		Toast:      currentToast(wsp.Toast),
	}
	if len(derived) == 0 && !snap.Loading {
		view.Empty = domain.MsgNoJobsFound
	}

	c.JSON(http.StatusOK, view)
}
