package domain

import (
	"strings"
	"time"
)

// JobStatus is the fixed set of states an application can be in
type JobStatus string

const (
	JobStatusApplied     JobStatus = "Applied"
	JobStatusInterviewed JobStatus = "Interviewed"
	JobStatusRejected    JobStatus = "Rejected"
)

// Statuses returns the status enumeration in display order
func Statuses() []JobStatus {
	return []JobStatus{JobStatusApplied, JobStatusInterviewed, JobStatusRejected}
}

// Valid reports whether s belongs to the enumeration
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusApplied, JobStatusInterviewed, JobStatusRejected:
		return true
	}
	return false
}

// JobDetails holds the free-text extras of an application
type JobDetails struct {
	Address      string `json:"address,omitempty"`
	Contact      string `json:"contact,omitempty"`
	Duties       string `json:"duties,omitempty"`
	Requirements string `json:"requirements,omitempty"`
}

// Job is a single job application record
type Job struct {
	ID          ID         `json:"id,omitzero"`
	UserID      ID         `json:"userId"`
	Company     string     `json:"company"`
	Role        string     `json:"role"`
	Status      JobStatus  `json:"status"`
	DateApplied string     `json:"dateApplied"`
	Details     JobDetails `json:"details"`
}

// Accepted layouts for dateApplied, most specific first. Values without a zone are
// read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses a dateApplied value
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AppliedAt returns the parsed application timestamp and whether it was valid
func (j Job) AppliedAt() (time.Time, bool) {
	return ParseDate(j.DateApplied)
}

// OwnedBy reports whether the record belongs to userID
func (j Job) OwnedBy(userID ID) bool {
	return !userID.IsZero() && j.UserID.Equal(userID)
}

// JobStatistics is derived from a job list and never stored
type JobStatistics struct {
	Total       int `json:"total"`
	Applied     int `json:"applied"`
	Interviewed int `json:"interviewed"`
	Rejected    int `json:"rejected"`
}

// CardVariant selects the visual treatment of a job card
type CardVariant string

const (
	CardVariantDefault     CardVariant = "default"
	CardVariantApplied     CardVariant = "applied"
	CardVariantInterviewed CardVariant = "interviewed"
	CardVariantRejected    CardVariant = "rejected"
)
