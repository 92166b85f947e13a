package service

import "errors"

// ErrInvalidCredentials indicates that provided login credentials are incorrect.
// It does not say whether the account exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	msgCredentialsRequired = "Email/username and password are required"
	msgEmailRegistered     = "Email already registered"
	msgUsernameTaken       = "Username already taken"
	msgPasswordTooLong     = "Password must be at most 72 bytes long"
)

// bcrypt ignores input past this length and the library rejects it.
const maxPasswordBytes = 72

// ValidationError reports malformed client input. Message is safe to return to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports a uniqueness violation. Message is safe to return to the client.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
