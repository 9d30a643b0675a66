package handlers

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Cut Loose":            "cut-loose",
		"  Anna's  Nails  ":    "anna-s-nails",
		"Barber #1 (Downtown)": "barber-1-downtown",
		"ünïcode Only":         "n-code-only",
		"---":                  "",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
