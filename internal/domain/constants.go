package domain

import "time"

// User-facing messages
const (
	MsgLoginRequired        = "Please log in to view jobs"
	MsgLoginSuccess         = "Login successful"
	MsgLoginFailed          = "Login failed. Please check your credentials."
	MsgLogoutSuccess        = "Logged out"
	MsgRegisterSuccess      = "Registration successful"
	MsgRegisterFailed       = "Registration failed. Please try again."
	MsgUsernameTaken        = "Username taken"
	MsgUnauthorized         = "Unauthorized access"
	MsgUserNotAuthenticated = "User not authenticated"

	MsgJobFetchFailed   = "Failed to fetch jobs"
	MsgJobAdded         = "Job added successfully"
	MsgJobUpdated       = "Job updated successfully"
	MsgJobDeleted       = "Job deleted successfully"
	MsgJobSaveFailed    = "Failed to save job"
	MsgJobDeleteFailed  = "Failed to delete job"
	MsgNoJobsFound      = "No jobs found."
	MsgUnexpectedFailed = "An unexpected error occurred"
)

const (
	UsernameMinLength = 3
	PasswordMinLength = 6
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultToastDuration  = 3 * time.Second
	DefaultRedirectDelay  = 1 * time.Second
)

// Routes of the list and auth views
const (
	RouteHome     = "/home"
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteJobNew   = "/job/new"
)

// JobRoute returns the detail route of a job
func JobRoute(id ID) string {
	return "/job/" + id.String()
}

// JobEditRoute returns the edit route of a job
func JobEditRoute(id ID) string {
	return JobRoute(id) + "?edit=true"
}
