package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/derive"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/editor"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/session"
	"github.com/cuongbtq/job-tracker/internal/web/dto"
	"github.com/cuongbtq/job-tracker/internal/web/ws"
	"github.com/gin-gonic/gin"
)

func (h *Handler) editorDeps(wsp *Workspace) editor.Dependencies {
	return editor.Dependencies{
		API:           h.api,
		List:          wsp.List,
		Events:        h.events,
		Logger:        h.logger,
		RedirectDelay: h.settings.RedirectDelay,
	}
}

func jobView(e *editor.Editor, wsp *Workspace) dto.JobView {
	job := e.Job()
	return dto.JobView{
		Mode:      e.Mode(),
		IsNew:     e.IsNew(),
		Job:       job,
		DateInput: derive.ConvertToDateTimeLocal(job.DateApplied),
		CanDelete: e.CanDelete(),
		Statuses:  domain.Statuses(),
		Toast:     currentToast(wsp.Toast),
	}
}

// NewJob handles GET /job/new
func (h *Handler) NewJob(c *gin.Context) {
	sess := SessionFrom(c)
	wsp := h.workspaces.Get(sess)

	e, err := editor.NewJob(sess, h.editorDeps(wsp))
	if err != nil {
		c.JSON(statusFor(err), errorBody(err, domain.MsgUserNotAuthenticated))
		return
	}
	c.JSON(http.StatusOK, jobView(e, wsp))
}

// GetJob handles GET /job/:id. A record owned by someone else sends the user
// back to the list with an error toast.
func (h *Handler) GetJob(c *gin.Context) {
	sess := SessionFrom(c)
	wsp := h.workspaces.Get(sess)
	id := domain.ParseID(c.Param("id"))

	e, err := editor.Load(c.Request.Context(), sess, id, c.Query("edit") == "true", h.editorDeps(wsp))
	if err != nil {
		h.loadFailed(c, wsp, id, err)
		return
	}
	c.JSON(http.StatusOK, jobView(e, wsp))
}

func (h *Handler) loadFailed(c *gin.Context, wsp *Workspace, id domain.ID, err error) {
	if errors.Is(err, domain.ErrOwnerMismatch) {
		wsp.Toast.Error(domain.MsgUnauthorized)
		redirect(c, dto.Redirect{RedirectTo: domain.RouteHome, Toast: currentToast(wsp.Toast)})
		return
	}

	h.logger.Error("Failed to load job",
		slog.String("job_id", id.String()),
		slog.Any("error", err),
	)
	c.JSON(statusFor(err), errorBody(err, domain.MsgJobFetchFailed))
}

// CreateJob handles POST /job
func (h *Handler) CreateJob(c *gin.Context) {
	var form dto.JobForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	sess := SessionFrom(c)
	wsp := h.workspaces.Get(sess)

	e, err := editor.NewJob(sess, h.editorDeps(wsp))
	if err != nil {
		c.JSON(statusFor(err), errorBody(err, domain.MsgUserNotAuthenticated))
		return
	}
	h.save(c, sess, wsp, e, form, http.StatusCreated)
}

// UpdateJob handles PUT /job/:id
func (h *Handler) UpdateJob(c *gin.Context) {
	var form dto.JobForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	sess := SessionFrom(c)
	wsp := h.workspaces.Get(sess)
	id := domain.ParseID(c.Param("id"))

	e, err := editor.Load(c.Request.Context(), sess, id, true, h.editorDeps(wsp))
	if err != nil {
		if errors.Is(err, domain.ErrOwnerMismatch) {
			wsp.Toast.Error(domain.MsgUnauthorized)
			c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: domain.MsgUnauthorized})
			return
		}
		h.loadFailed(c, wsp, id, err)
		return
	}
	h.save(c, sess, wsp, e, form, http.StatusOK)
}

func (h *Handler) save(c *gin.Context, sess *session.Session, wsp *Workspace, e *editor.Editor, form dto.JobForm, status int) {
	if err := e.SetAll(form.Fields()); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	outcome, err := e.Save(c.Request.Context())
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			wsp.Toast.Error(apiclient.Message(err, domain.MsgJobSaveFailed))
		}
		c.JSON(statusFor(err), errorBody(err, domain.MsgJobSaveFailed))
		return
	}

	wsp.Toast.Success(outcome.Message)
	h.notifyJobsChanged(sess.Token)

	c.JSON(status, dto.SaveResponse{
		Job:     outcome.Job,
		Message: outcome.Message,
		Redirect: dto.Redirect{
			RedirectTo:    outcome.RedirectTo,
			RedirectAfter: outcome.RedirectAfter.Milliseconds(),
			Toast:         currentToast(wsp.Toast),
		},
	})
}

// DeleteJob handles DELETE /job/:id. Eligibility comes from the owner of the
// record itself: the list entry when known, otherwise the fetched record. An
// ineligible delete never reaches the backend.
func (h *Handler) DeleteJob(c *gin.Context) {
	sess := SessionFrom(c)
	wsp := h.workspaces.Get(sess)
	id := domain.ParseID(c.Param("id"))
	ctx := c.Request.Context()

	job, err := h.findJob(ctx, wsp, id)
	if err != nil {
		h.logger.Error("Failed to load job for delete",
			slog.String("job_id", id.String()),
			slog.Any("error", err),
		)
		c.JSON(statusFor(err), errorBody(err, domain.MsgJobDeleteFailed))
		return
	}

	if !editor.CanDelete(sess, job) {
		h.logger.Warn("Delete refused, owner mismatch",
			slog.String("job_id", id.String()),
			slog.String("user_id", sess.UserID().String()),
		)
		wsp.Toast.Error(domain.MsgUnauthorized)
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: domain.MsgUnauthorized})
		return
	}

	if err := wsp.List.Delete(ctx, id); err != nil {
		msg := wsp.List.Snapshot().Error
		if msg == "" {
			msg = domain.MsgJobDeleteFailed
		}
		wsp.Toast.Error(msg)
		c.JSON(statusFor(err), dto.ErrorResponse{Error: msg})
		return
	}

	h.events.Emit(events.NewJobEvent(events.TypeJobDeleted, sess.UserID(), job))
	wsp.Toast.Success(domain.MsgJobDeleted)
	h.notifyJobsChanged(sess.Token)

	c.JSON(http.StatusOK, gin.H{"message": domain.MsgJobDeleted})
}

func (h *Handler) findJob(ctx context.Context, wsp *Workspace, id domain.ID) (domain.Job, error) {
	if job, ok := wsp.List.Find(id); ok {
		return job, nil
	}

	job, err := h.api.GetJob(ctx, id)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, err
	}
	return *job, nil
}

func (h *Handler) notifyJobsChanged(token string) {
	if h.hub != nil {
		h.hub.Send(token, ws.Message{Type: ws.TypeJobsChanged})
	}
}
