package pipeline

import (
	"regexp"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain key", "AB12C-DE34F-GH56I", "AB12C-DE34F-GH56I"},
		{"spaces dropped", "AB12C DE34F GH56I", "AB12CDE34FGH56I"},
		{"em-dash to dash", "AB12C—DE34F", "AB12C-DE34F"},
		{"punctuation dropped", "key: AB12C-DE34F!", "keyAB12C-DE34F"},
		{"empty", "", ""},
		{"ocr noise", "  XXXXX—YYYYY\n", "XXXXX-YYYYY"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"AB12C-DE34F-GH56I",
		"Get your key: AB12C—DE34F now!",
		"a b c - d",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_OutputCharset(t *testing.T) {
	allowed := regexp.MustCompile(`^[A-Za-z0-9_-]*$`)
	inputs := []string{
		"AB12C-DE34F-GH56I",
		"NOISE 123 —— !!",
		"mixed Case Key 99",
	}
	for _, in := range inputs {
		got := Normalize(in)
		if !allowed.MatchString(got) {
			t.Errorf("Normalize(%q) = %q contains disallowed characters", in, got)
		}
	}
}
