package core

import "errors"

// Validation errors. Events failing validation are dropped and never
// reported back to the sending connection.
var (
	ErrEmptyUserID      = errors.New("user id is required")
	ErrEmptySenderID    = errors.New("sender id is required")
	ErrEmptyRecipientID = errors.New("recipient id is required")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageTooLong   = errors.New("message too long")
	ErrIdentityMismatch = errors.New("user id does not match authenticated identity")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrHandlerPanic     = errors.New("handler panic")
)

// IsValidation reports whether err classifies a malformed inbound event.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyUserID) ||
		errors.Is(err, ErrEmptySenderID) ||
		errors.Is(err, ErrEmptyRecipientID) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrIdentityMismatch)
}
