package services

import "errors"

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already exists")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrAlreadyApplied      = errors.New("already applied to this job")
	ErrSelfApply           = errors.New("cannot apply to own job posting")
	ErrApplicationNotFound = errors.New("application not found")
	ErrForbidden           = errors.New("forbidden")
	ErrMissingJobID        = errors.New("missing job id")
	ErrResumeTooLarge      = errors.New("resume file too large")
	ErrUnsupportedResume   = errors.New("unsupported resume format")
)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
