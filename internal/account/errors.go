package account

import "errors"

var (
	ErrMalformedUID       = errors.New("malformed user id")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrAlreadyActive      = errors.New("account already active")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account not active")
)

// ValidationError is a problem with user input. Its message is safe to show
// to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
