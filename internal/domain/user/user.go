package user

import "time"

const (
	RoleAttendee  = "attendee"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never expose hash in JSON
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone,omitempty"`
	Role         string `json:"role"`

	// Both set while a password reset is pending, both nil otherwise.
	ResetTokenHash   *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsValidRole reports whether role is a role callers may register with.
// Admin is excluded: it is only assigned by the seed path.
func IsValidRole(role string) bool {
	switch role {
	case RoleAttendee, RoleOrganizer:
		return true
	default:
		return false
	}
}
