package derive

import (
	"net/url"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

// Query parameter keys of the list view
const (
	ParamSearch = "search"
	ParamFilter = "filter"
	ParamSort   = "sort"
)

// Query is the list view configuration. It lives in the URL only.
type Query struct {
	Search string           `json:"search"`
	Filter domain.JobStatus `json:"filter"`
	Sort   SortOrder        `json:"sort"`
}

// ParseQuery reads the view configuration from URL values. Absent keys mean no
// constraint; sort defaults to descending.
func ParseQuery(values url.Values) Query {
	q := Query{
		Search: values.Get(ParamSearch),
		Filter: domain.JobStatus(values.Get(ParamFilter)),
		Sort:   SortOrder(values.Get(ParamSort)),
	}
	if q.Sort == "" {
		q.Sort = SortDesc
	}
	return q
}

// SortOrder returns asc only when explicitly requested
func (q Query) SortOrder() SortOrder {
	if q.Sort == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// Values encodes the query, omitting empty keys and the default sort
func (q Query) Values() url.Values {
	values := url.Values{}
	if q.Search != "" {
		values.Set(ParamSearch, q.Search)
	}
	if q.Filter != "" {
		values.Set(ParamFilter, string(q.Filter))
	}
	if q.Sort != "" && q.Sort != SortDesc {
		values.Set(ParamSort, string(q.Sort))
	}
	return values
}

// Set returns a copy of values with key set to value, or removed when value is empty.
// Other keys are preserved untouched.
func Set(values url.Values, key, value string) url.Values {
	next := url.Values{}
	for k, v := range values {
		next[k] = append([]string(nil), v...)
	}
	if value == "" {
		next.Del(key)
	} else {
		next.Set(key, value)
	}
	return next
}

// IsQueryParam reports whether key is one of the list view parameters
func IsQueryParam(key string) bool {
	switch key {
	case ParamSearch, ParamFilter, ParamSort:
		return true
	}
	return false
}
