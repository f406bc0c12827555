// Package derive computes the list view from the authoritative job list and the
// query parameters found in the URL. Every function here is pure.
package derive

import (
	"sort"
	"strings"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

// SortOrder of the list view
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterBySearch keeps jobs whose company or role contains search, ignoring case
func FilterBySearch(jobs []domain.Job, search string) []domain.Job {
	if search == "" {
		return jobs
	}

	query := strings.ToLower(search)
	result := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if strings.Contains(strings.ToLower(job.Company), query) ||
			strings.Contains(strings.ToLower(job.Role), query) {
			result = append(result, job)
		}
	}
	return result
}

// FilterByStatus keeps jobs whose status equals status exactly
func FilterByStatus(jobs []domain.Job, status domain.JobStatus) []domain.Job {
	if status == "" {
		return jobs
	}

	result := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Status == status {
			result = append(result, job)
		}
	}
	return result
}

// SortByDate returns a sorted copy ordered by application date. Equal dates keep
// their input order; jobs without a parseable date go last in either order.
func SortByDate(jobs []domain.Job, order SortOrder) []domain.Job {
	type keyed struct {
		job   domain.Job
		nanos int64
		valid bool
	}

	items := make([]keyed, len(jobs))
	for i, job := range jobs {
		t, ok := job.AppliedAt()
		items[i] = keyed{job: job, valid: ok}
		if ok {
			items[i].nanos = t.UnixNano()
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.valid != b.valid {
			return a.valid
		}
		if order == SortAsc {
			return a.nanos < b.nanos
		}
		return a.nanos > b.nanos
	})

	result := make([]domain.Job, len(items))
	for i, item := range items {
		result[i] = item.job
	}
	return result
}

// Derive applies search, status filter and sort order in that sequence
func Derive(jobs []domain.Job, q Query) []domain.Job {
	result := FilterBySearch(jobs, q.Search)
	result = FilterByStatus(result, q.Filter)
	return SortByDate(result, q.SortOrder())
}
