package derive

import (
	"regexp"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

const (
	displayLayout       = "Jan 02, 2006 15:04"
	dateTimeLocalLayout = "2006-01-02T15:04"
)

var dateOnlyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FormatDate renders a dateApplied value for display, falling back to the raw value
func FormatDate(value string) string {
	t, ok := domain.ParseDate(value)
	if !ok {
		return value
	}
	return t.Format(displayLayout)
}

// FormatDateTimeLocal renders t in the datetime-local input format
func FormatDateTimeLocal(t time.Time) string {
	return t.UTC().Format(dateTimeLocalLayout)
}

// IsDateOnlyFormat reports whether value is YYYY-MM-DD
func IsDateOnlyFormat(value string) bool {
	return len(value) == 10 && dateOnlyPattern.MatchString(value)
}

// ConvertToDateTimeLocal turns a date-only value into midnight datetime-local
func ConvertToDateTimeLocal(value string) string {
	if IsDateOnlyFormat(value) {
		return value + "T00:00"
	}
	return value
}

// CardVariantFor maps a status to its card variant
func CardVariantFor(status domain.JobStatus) domain.CardVariant {
	switch status {
	case domain.JobStatusApplied:
		return domain.CardVariantApplied
	case domain.JobStatusInterviewed:
		return domain.CardVariantInterviewed
	case domain.JobStatusRejected:
		return domain.CardVariantRejected
	}
	return domain.CardVariantDefault
}
