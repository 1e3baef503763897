package conversation

import "testing"

func TestValidID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"123456789", true},
		{"7", true},
		{"", false},
		{"12a34", false},
		{"12 34", false},
		{"-1234", false},
	}
	for _, c := range cases {
		if got := ValidID(c.in); got != c.want {
			t.Errorf("ValidID(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"user@example.com", true},
		{"a@b", true},
		{"no-at-sign", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidEmail(c.in); got != c.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
