package domain

// Severity of a toast notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// ToastMessage is a transient notification. At most one is visible at a time.
type ToastMessage struct {
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
}
