// internal/app/system/inputval/inputval.go
package inputval

import (
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/toolkit/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var allowedAuthMethods = []string{"password", "google"}

// IsValidEmail reports whether s is a bare address (no display name) that
// passes the WAFFLE email check, with no empty dot-separated parts.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	if !validate.SimpleEmailValid(s) {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return validDotted(s[:at]) && validDotted(s[at+1:])
}

func validDotted(s string) bool {
	return s != "" &&
		!strings.HasPrefix(s, ".") &&
		!strings.HasSuffix(s, ".") &&
		!strings.Contains(s, "..")
}

// IsValidAuthMethod reports whether s names a supported sign-in method.
func IsValidAuthMethod(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range allowedAuthMethods {
		if s == m {
			return true
		}
	}
	return false
}

// AllowedAuthMethodsList returns the supported sign-in methods.
func AllowedAuthMethodsList() []string {
	out := make([]string, len(allowedAuthMethods))
	copy(out, allowedAuthMethods)
	return out
}

// IsValidHTTPURL reports whether s is an absolute http(s) URL with a host.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}
