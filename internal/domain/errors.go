package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates no account exists for the given identity.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an already-used email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrMessageNotFound indicates a chat message ID is unknown.
	ErrMessageNotFound = errors.New("message not found")
	// ErrForbidden is returned when a user acts outside their role.
	ErrForbidden = errors.New("forbidden")
	// ErrStreamNotFound indicates an unknown course stream.
	ErrStreamNotFound = errors.New("stream not found")
	// ErrSessionClosed is returned for intents delivered after teardown.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrInvalidOption is returned when a selection index is out of range.
	ErrInvalidOption = errors.New("option index out of range")
)
