package server

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"user", RoleUser, true},
		{"developer", RoleDeveloper, true},
		{"admin", RoleAdmin, true},
		{"superuser", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		role, ok := ParseRole(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseRole(%q) ok=%v, want %v", tc.input, ok, tc.ok)
		}
		if ok && role != tc.want {
			t.Fatalf("ParseRole(%q)=%v, want %v", tc.input, role, tc.want)
		}
	}
}

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleUser, ActionSubmitScores, true},
		{RoleDeveloper, ActionSubmitScores, true},
		{RoleAdmin, ActionSubmitScores, true},
		{RoleUser, ActionPublishGames, false},
		{RoleDeveloper, ActionPublishGames, true},
		{RoleAdmin, ActionPublishGames, true},
		{RoleUser, ActionManageUsers, false},
		{RoleDeveloper, ActionManageUsers, false},
		{RoleAdmin, ActionManageUsers, true},
		{RoleUser, ActionViewAuditLog, false},
		{RoleAdmin, ActionViewAuditLog, true},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Fatalf("Can(%s, %v)=%v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}
