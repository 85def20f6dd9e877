package user

import "testing"

func TestIsValidRole(t *testing.T) {
	cases := []struct {
		role string
		want bool
	}{
		{RoleAttendee, true},
		{RoleOrganizer, true},
		{RoleAdmin, false},
		{"", false},
		{"superuser", false},
	}

	for _, tc := range cases {
		if got := IsValidRole(tc.role); got != tc.want {
			t.Fatalf("IsValidRole(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}
