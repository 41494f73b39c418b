package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"mentor@example.org",
		"first.last+melange@uni.example.ac.uk",
		" padded@example.org ",
	}
	invalid := []string{
		"",
		"  ",
		"student",
		"student@",
		"@example.org",
		".dot@example.org",
		"dot.@example.org",
		"two..dots@example.org",
		"user@example..org",
		"Org Admin <admin@example.org>",
		"has space@example.org",
	}

	for _, s := range valid {
		if !IsValidEmail(s) {
			t.Errorf("IsValidEmail(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidEmail(s) {
			t.Errorf("IsValidEmail(%q) = true, want false", s)
		}
	}
}

func TestIsValidAuthMethod(t *testing.T) {
	for _, s := range []string{"password", "google", " Google "} {
		if !IsValidAuthMethod(s) {
			t.Errorf("IsValidAuthMethod(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "trust", "microsoft"} {
		if IsValidAuthMethod(s) {
			t.Errorf("IsValidAuthMethod(%q) = true, want false", s)
		}
	}

	list := AllowedAuthMethodsList()
	list[0] = "mutated"
	if AllowedAuthMethodsList()[0] == "mutated" {
		t.Error("AllowedAuthMethodsList must return a copy")
	}
}

func TestIsValidHTTPURL(t *testing.T) {
	tests := map[string]bool{
		"https://melange.example.org/programs": true,
		"http://localhost:8080":                true,
		"ftp://example.org":                    false,
		"/relative/path":                       false,
		"":                                     false,
	}
	for in, want := range tests {
		if got := IsValidHTTPURL(in); got != want {
			t.Errorf("IsValidHTTPURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsValidObjectID(t *testing.T) {
	if !IsValidObjectID("65a1b2c3d4e5f60718293a4b") {
		t.Error("expected a 24-char hex id to be valid")
	}
	if IsValidObjectID("gsoc2024") {
		t.Error("expected a slug to be invalid")
	}
}
