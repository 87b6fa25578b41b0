package types

import "time"

const (
	RoleApplicant = "applicant"
	RoleEmployer  = "employer"
)

// User represents an account in the job board.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Username is the unique handle chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, used to log in.
	Email string `json:"email" db:"email"`

	// Role is either "applicant" or "employer".
	Role string `json:"role" db:"role"`

	// PasswordHash stores the argon2id hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// DeletedAt is set when the account has been soft-deleted.
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	return role == RoleApplicant || role == RoleEmployer
}
