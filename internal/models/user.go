package models

// User is an operator account as stored in the users file. Password holds the
// bcrypt hash and is cleared before the user is handed to other components.
type User struct {
	Extension string `json:"extension"`
	Name      string `json:"name"`
	Password  string `json:"-"`
}
