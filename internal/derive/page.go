package derive

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

// Pagination parameter keys. Both are optional; without page_size the whole
// derived list is one page.
const (
	ParamPageSize = "page_size"
	ParamCursor   = "cursor"

	MaxPageSize = 100
)

// ErrInvalidCursor is returned for cursors that cannot be decoded or located
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the last job of a page. TieRank is the position of that job among
// the jobs sharing its date, counting from 1.
type Cursor struct {
	AppliedAt time.Time
	HasDate   bool
	TieRank   int
	JobID     string
}

// Page is one slice of a derived list
type Page struct {
	Jobs       []domain.Job `json:"jobs"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// EncodeCursor builds the cursor pointing after jobs[i]
func EncodeCursor(jobs []domain.Job, i int) string {
	date := "-"
	if t, ok := jobs[i].AppliedAt(); ok {
		date = strconv.FormatInt(t.UnixNano(), 10)
	}

	rank := 1
	for j := i - 1; j >= 0 && sameDate(jobs[j], jobs[i]); j-- {
		rank++
	}

	raw := date + "|" + strconv.Itoa(rank) + "|" + jobs[i].ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor. An empty string yields nil.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	parts := strings.SplitN(string(decoded), "|", 3)
	if len(parts) != 3 || parts[2] == "" {
		return nil, fmt.Errorf("%w: malformed", ErrInvalidCursor)
	}

	rank, err := strconv.Atoi(parts[1])
	if err != nil || rank < 1 {
		return nil, fmt.Errorf("%w: invalid rank %q", ErrInvalidCursor, parts[1])
	}

	cursor := &Cursor{TieRank: rank, JobID: parts[2]}
	if parts[0] != "-" {
		nanos, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date: %v", ErrInvalidCursor, err)
		}
		cursor.AppliedAt = time.Unix(0, nanos).UTC()
		cursor.HasDate = true
	}
	return cursor, nil
}

// Paginate returns the page of the sorted list jobs that follows cursor. When the
// cursor's job is gone the page resumes inside its date group, after the jobs of
// that group already shown. A non-positive pageSize returns everything.
func Paginate(jobs []domain.Job, order SortOrder, pageSize int, cursor string) (Page, error) {
	c, err := DecodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	start := 0
	if c != nil {
		start = resumeIndex(jobs, order, c)
	}

	if pageSize <= 0 {
		return Page{Jobs: jobs[start:]}, nil
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	end := start + pageSize
	if end >= len(jobs) {
		return Page{Jobs: jobs[start:]}, nil
	}
	return Page{
		Jobs:       jobs[start:end],
		NextCursor: EncodeCursor(jobs, end-1),
	}, nil
}

// resumeIndex finds where the page after c starts. Without the cursor's job it
// seeks the first job at or past the cursor's date and then skips the TieRank-1
// jobs of that date that preceded the missing one. Undated jobs sort last, so an
// undated cursor resumes in the undated tail.
func resumeIndex(jobs []domain.Job, order SortOrder, c *Cursor) int {
	for i, job := range jobs {
		if job.ID.String() == c.JobID {
			return i + 1
		}
	}

	i := 0
	for i < len(jobs) && !atOrPast(jobs[i], order, c) {
		i++
	}
	for skip := c.TieRank - 1; skip > 0 && i < len(jobs) && onCursorDate(jobs[i], c); skip-- {
		i++
	}
	return i
}

func atOrPast(job domain.Job, order SortOrder, c *Cursor) bool {
	t, ok := job.AppliedAt()
	switch {
	case !c.HasDate:
		return !ok
	case !ok, t.Equal(c.AppliedAt):
		return true
	case order == SortAsc:
		return t.After(c.AppliedAt)
	default:
		return t.Before(c.AppliedAt)
	}
}

func onCursorDate(job domain.Job, c *Cursor) bool {
	t, ok := job.AppliedAt()
	if !c.HasDate {
		return !ok
	}
	return ok && t.Equal(c.AppliedAt)
}

func sameDate(a, b domain.Job) bool {
	ta, okA := a.AppliedAt()
	tb, okB := b.AppliedAt()
	if !okA || !okB {
		return okA == okB
	}
	return ta.Equal(tb)
}

// ParsePageSize reads page_size; absent or invalid values disable pagination
func ParsePageSize(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
