package server

import "testing"

func TestSlugFromTitle(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Space Invaders II", "space-invaders-ii"},
		{"  Trimmed  Title  ", "trimmed-title"},
		{"Émigré's Quest", "emigre-s-quest"},
	}
	for _, tc := range cases {
		if got := slugFromTitle(tc.title); got != tc.want {
			t.Fatalf("slugFromTitle(%q)=%q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := validatePassword("abcd"); err == nil {
		t.Fatal("expected too-short password to fail")
	}
	if err := validatePassword("abcde"); err != nil {
		t.Fatalf("expected five characters to pass: %v", err)
	}
	long := make([]byte, maxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := validatePassword(string(long)); err == nil {
		t.Fatal("expected over-length password to fail")
	}
}
