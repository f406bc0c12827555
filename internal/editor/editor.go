// Package editor implements the job form: a small state machine that switches a
// record between viewing and editing, validates it and saves it to the backend.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/session"
	"github.com/cuongbtq/job-tracker/internal/state"
)

// Mode is the state of the form
type Mode string

const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

var (
	// ErrReadOnly is returned when changing fields outside editing mode
	ErrReadOnly = errors.New("form is not in editing mode")

	// ErrNothingToCancel is returned when canceling a record that was never saved
	ErrNothingToCancel = errors.New("new record has no saved values to return to")

	// ErrAlreadySaved is returned when saving a form twice
	ErrAlreadySaved = errors.New("form already saved")
)

// Field names accepted by Set
const (
	FieldCompany      = "company"
	FieldRole         = "role"
	FieldStatus       = "status"
	FieldDateApplied  = "dateApplied"
	FieldAddress      = "details.address"
	FieldContact      = "details.contact"
	FieldDuties       = "details.duties"
	FieldRequirements = "details.requirements"
)

// JobsAPI is the part of the backend the form needs
type JobsAPI interface {
	GetJob(ctx context.Context, id domain.ID) (*domain.Job, error)
	CreateJob(ctx context.Context, job domain.Job) (*domain.Job, error)
	UpdateJob(ctx context.Context, id domain.ID, job domain.Job) (*domain.Job, error)
}

// Dependencies are shared by every form of a session
type Dependencies struct {
	API           JobsAPI
	List          *state.JobList
	Events        events.Emitter
	Logger        *slog.Logger
	RedirectDelay time.Duration
	Now           func() time.Time
}

// Outcome describes a successful save. The form is finished afterwards; the
// caller shows Message and leaves for RedirectTo after RedirectAfter.
type Outcome struct {
	Job           domain.Job    `json:"job"`
	Created       bool          `json:"created"`
	Message       string        `json:"message"`
	RedirectTo    string        `json:"redirectTo"`
	RedirectAfter time.Duration `json:"redirectAfter"`
}

// Editor is one open job form
type Editor struct {
	deps    Dependencies
	session *session.Session

	mode     Mode
	isNew    bool
	saved    bool
	job      domain.Job
	original domain.Job
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.RedirectDelay <= 0 {
		d.RedirectDelay = domain.DefaultRedirectDelay
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// NewJob opens an empty form owned by the session user. New records start in
// editing mode and have no viewing state.
func NewJob(sess *session.Session, deps Dependencies) (*Editor, error) {
	if sess.UserID().IsZero() {
		return nil, domain.ErrNotAuthenticated
	}
	deps = deps.withDefaults()

	job := domain.Job{
		UserID:      sess.UserID(),
		Status:      domain.JobStatusApplied,
		DateApplied: deps.Now().UTC().Format("2006-01-02"),
	}
	return &Editor{
		deps:     deps,
		session:  sess,
		mode:     ModeEditing,
		isNew:    true,
		job:      job,
		original: job,
	}, nil
}

// Load fetches record id and opens it, in editing mode when edit is set. A
// record owned by another user is refused with ErrOwnerMismatch.
func Load(ctx context.Context, sess *session.Session, id domain.ID, edit bool, deps Dependencies) (*Editor, error) {
	if sess.UserID().IsZero() {
		return nil, domain.ErrNotAuthenticated
	}
	deps = deps.withDefaults()

	job, err := deps.API.GetJob(ctx, id)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrJobNotFound)
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	if !sess.Owns(*job) {
		deps.Logger.Warn("Job owner mismatch",
			slog.String("job_id", id.String()),
			slog.String("owner_id", job.UserID.String()),
			slog.String("user_id", sess.UserID().String()),
		)
		return nil, domain.ErrOwnerMismatch
	}

	mode := ModeViewing
	if edit {
		mode = ModeEditing
	}
	return &Editor{
		deps:     deps,
		session:  sess,
		mode:     mode,
		job:      *job,
		original: *job,
	}, nil
}

// Mode returns the current state of the form
func (e *Editor) Mode() Mode {
	return e.mode
}

// IsNew reports whether the record has not been saved yet
func (e *Editor) IsNew() bool {
	return e.isNew
}

// Job returns the current field values
func (e *Editor) Job() domain.Job {
	return e.job
}

// Edit switches an existing record from viewing to editing
func (e *Editor) Edit() {
	e.mode = ModeEditing
}

// Cancel discards changes and returns to viewing. New records cannot be canceled
// back to anything.
func (e *Editor) Cancel() error {
	if e.isNew {
		return ErrNothingToCancel
	}
	e.job = e.original
	e.mode = ModeViewing
	return nil
}

// Set changes one field. Detail fields use the "details." prefix.
func (e *Editor) Set(name, value string) error {
	if e.mode != ModeEditing {
		return ErrReadOnly
	}

	switch name {
	case FieldCompany:
		e.job.Company = value
	case FieldRole:
		e.job.Role = value
	case FieldStatus:
		e.job.Status = domain.JobStatus(value)
	case FieldDateApplied:
		e.job.DateApplied = value
	case FieldAddress:
		e.job.Details.Address = value
	case FieldContact:
		e.job.Details.Contact = value
	case FieldDuties:
		e.job.Details.Duties = value
	case FieldRequirements:
		e.job.Details.Requirements = value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

// SetAll applies fields in form order. Unknown names reject the whole set.
func (e *Editor) SetAll(fields map[string]string) error {
	for name := range fields {
		if !isField(name) {
			return fmt.Errorf("unknown field %q", name)
		}
	}
	for _, name := range FieldNames() {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if err := e.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// FieldNames lists every field in form order
func FieldNames() []string {
	return []string{
		FieldCompany, FieldRole, FieldStatus, FieldDateApplied,
		FieldAddress, FieldContact, FieldDuties, FieldRequirements,
	}
}

func isField(name string) bool {
	for _, f := range FieldNames() {
		if f == name {
			return true
		}
	}
	return false
}

// Validate checks the required fields and the status enumeration
func (e *Editor) Validate() error {
	return Validate(e.job)
}

// Validate checks a job record before submission
func Validate(job domain.Job) error {
	if strings.TrimSpace(job.Company) == "" {
		return domain.NewValidationError(FieldCompany, "is required")
	}
	if strings.TrimSpace(job.Role) == "" {
		return domain.NewValidationError(FieldRole, "is required")
	}
	if strings.TrimSpace(job.DateApplied) == "" {
		return domain.NewValidationError(FieldDateApplied, "is required")
	}
	if !job.Status.Valid() {
		return domain.NewValidationError(FieldStatus, fmt.Sprintf("must be one of %v", domain.Statuses()))
	}
	return nil
}

// Save creates or updates the record. On success the list is updated in place
// and the form is finished.
func (e *Editor) Save(ctx context.Context) (*Outcome, error) {
	if e.saved {
		return nil, ErrAlreadySaved
	}
	if e.mode != ModeEditing {
		return nil, ErrReadOnly
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var outcome *Outcome
	save := func(ctx context.Context) error {
		var err error
		if e.isNew {
			outcome, err = e.create(ctx)
		} else {
			outcome, err = e.update(ctx)
		}
		return err
	}

	var err error
	if e.deps.List != nil {
		err = e.deps.List.Mutate(ctx, e.job.ID, save)
	} else {
		err = save(ctx)
	}
	if err != nil {
		e.deps.Logger.Error("Failed to save job",
			slog.String("job_id", e.job.ID.String()),
			slog.Bool("new", e.isNew),
			slog.Any("error", err),
		)
		return nil, err
	}

	e.saved = true
	return outcome, nil
}

func (e *Editor) create(ctx context.Context) (*Outcome, error) {
	job := e.job
	job.UserID = e.session.UserID()

	created, err := e.deps.API.CreateJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if e.deps.List != nil {
		e.deps.List.Add(*created)
	}
	e.deps.Events.Emit(events.NewJobEvent(events.TypeJobCreated, e.session.UserID(), *created))
	e.deps.Logger.Info("Job created",
		slog.String("job_id", created.ID.String()),
		slog.String("user_id", e.session.UserID().String()),
	)

	e.job = *created
	return e.outcome(*created, true, domain.MsgJobAdded), nil
}

func (e *Editor) update(ctx context.Context) (*Outcome, error) {
	updated, err := e.deps.API.UpdateJob(ctx, e.job.ID, e.job)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	if e.deps.List != nil {
		e.deps.List.Replace(e.job.ID, *updated)
	}
	e.deps.Events.Emit(events.NewJobEvent(events.TypeJobUpdated, e.session.UserID(), *updated))
	e.deps.Logger.Info("Job updated",
		slog.String("job_id", updated.ID.String()),
		slog.String("user_id", e.session.UserID().String()),
	)

	e.job = *updated
	return e.outcome(*updated, false, domain.MsgJobUpdated), nil
}

func (e *Editor) outcome(job domain.Job, created bool, message string) *Outcome {
	return &Outcome{
		Job:           job,
		Created:       created,
		Message:       message,
		RedirectTo:    domain.RouteHome,
		RedirectAfter: e.deps.RedirectDelay,
	}
}

// CanDelete reports whether the open record may be deleted by the session user
func (e *Editor) CanDelete() bool {
	return !e.isNew && CanDelete(e.session, e.original)
}

// CanDelete computes delete eligibility from the loaded record's owner
func CanDelete(sess *session.Session, job domain.Job) bool {
	return !job.ID.IsZero() && sess.Owns(job)
}
