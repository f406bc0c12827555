package derive

import "github.com/cuongbtq/job-tracker/internal/domain"

// CalculateJobStats counts jobs per status over the full list
func CalculateJobStats(jobs []domain.Job) domain.JobStatistics {
	stats := domain.JobStatistics{Total: len(jobs)}
	for _, job := range jobs {
		switch job.Status {
		case domain.JobStatusApplied:
			stats.Applied++
		case domain.JobStatusInterviewed:
			stats.Interviewed++
		case domain.JobStatusRejected:
			stats.Rejected++
		}
	}
	return stats
}
