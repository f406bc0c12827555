package domain

// User is an account on the backend. The password travels in plaintext, which the
// backend contract requires.
type User struct {
	ID       ID     `json:"id,omitzero"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// Credentials is the username/password pair submitted on register and login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
