package slug

import "testing"

func TestFrom(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"LEGO Technic Crane", "lego-technic-crane"},
		{"Café & Crème Play Set", "cafe-creme-play-set"},
		{"  Wooden   Train!!  ", "wooden-train"},
		{"---", ""},
		{"", ""},
		{"Émile's Räilwåy", "emile-s-railway"},
	}

	for _, tc := range cases {
		if got := From(tc.in); got != tc.want {
			t.Errorf("From(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
