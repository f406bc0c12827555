package dto

import (
	"github.com/cuongbtq/job-tracker/internal/derive"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/editor"
)

type CredentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type ParamRequest struct {
	Key   string `json:"key" form:"key" binding:"required"`
	Value string `json:"value" form:"value"`
}

// JobForm carries the editable fields of a job. Absent fields keep their value.
type JobForm struct {
	Company      *string `json:"company"`
	Role         *string `json:"role"`
	Status       *string `json:"status"`
	DateApplied  *string `json:"dateApplied"`
	Address      *string `json:"address"`
	Contact      *string `json:"contact"`
	Duties       *string `json:"duties"`
	Requirements *string `json:"requirements"`
}

// Fields returns the form as editor field names
func (f JobForm) Fields() map[string]string {
	fields := make(map[string]string)
	add := func(name string, v *string) {
		if v != nil {
			fields[name] = *v
		}
	}
	add(editor.FieldCompany, f.Company)
	add(editor.FieldRole, f.Role)
	add(editor.FieldStatus, f.Status)
	add(editor.FieldDateApplied, f.DateApplied)
	add(editor.FieldAddress, f.Address)
	add(editor.FieldContact, f.Contact)
	add(editor.FieldDuties, f.Duties)
	add(editor.FieldRequirements, f.Requirements)
	return fields
}

type UserView struct {
	ID       domain.ID `json:"id"`
	Username string    `json:"username"`
}

// Redirect tells the client where to go next and what to show there
type Redirect struct {
	RedirectTo    string               `json:"redirectTo"`
	RedirectAfter int64                `json:"redirectAfterMs,omitempty"`
	Toast         *domain.ToastMessage `json:"toast,omitempty"`
}

type AuthResponse struct {
	User UserView `json:"user"`
	Redirect
}

// JobCard is one entry of the list view
type JobCard struct {
	ID          domain.ID          `json:"id"`
	Company     string             `json:"company"`
	Role        string             `json:"role"`
	Status      domain.JobStatus   `json:"status"`
	DateApplied string             `json:"dateApplied"`
	DisplayDate string             `json:"displayDate"`
	Variant     domain.CardVariant `json:"variant"`
	Link        string             `json:"link"`
	EditLink    string             `json:"editLink"`
}

// NewJobCard builds the card of job
func NewJobCard(job domain.Job) JobCard {
	return JobCard{
		ID:          job.ID,
		Company:     job.Company,
		Role:        job.Role,
		Status:      job.Status,
		DateApplied: job.DateApplied,
		DisplayDate: derive.FormatDate(job.DateApplied),
		Variant:     derive.CardVariantFor(job.Status),
		Link:        domain.JobRoute(job.ID),
		EditLink:    domain.JobEditRoute(job.ID),
	}
}

// HomeView is the list view: derived cards, stats over the full list and state
type HomeView struct {
	Query      derive.Query         `json:"query"`
	Jobs       []JobCard            `json:"jobs"`
	Matching   int                  `json:"matching"`
	NextCursor string               `json:"nextCursor,omitempty"`
	Stats      domain.JobStatistics `json:"stats"`
	Loading    bool                 `json:"loading"`
	Error      string               `json:"error,omitempty"`
	Empty      string               `json:"empty,omitempty"`
	Toast      *domain.ToastMessage `json:"toast,omitempty"`
}

// JobView is the form view of one job
type JobView struct {
	Mode      editor.Mode          `json:"mode"`
	IsNew     bool                 `json:"isNew"`
	Job       domain.Job           `json:"job"`
	DateInput string               `json:"dateInput"`
	CanDelete bool                 `json:"canDelete"`
	Statuses  []domain.JobStatus   `json:"statuses"`
	Toast     *domain.ToastMessage `json:"toast,omitempty"`
}

type SaveResponse struct {
	Job     domain.Job `json:"job"`
	Message string     `json:"message"`
	Redirect
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
