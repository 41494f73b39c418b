// internal/app/system/inputval/validators.go
package inputval

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/melange/internal/domain/roles"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects FieldErrors in struct field order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the string (and non-nil *string) fields of a struct against their `validate`
// tags. `label` names the field in messages (defaults to the field name).
//
// Rules: required, min=N, max=N (runes), email, httpurl, objectid,
// authmethod, userrole, orgrole, oneof=a b c.
// Only the first failing rule per field is reported; empty optional fields
// skip the remaining rules.
func Validate(v any) *Result {
	res := &Result{}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return res
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("validate")
		if tag == "" {
			continue
		}
		fv := rv.Field(i)
		if f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.String {
			// nil means "not supplied" for optional update fields
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if fv.Kind() != reflect.String {
			continue
		}
		label := f.Tag.Get("label")
		if label == "" {
			label = f.Name
		}
		if msg := check(strings.TrimSpace(fv.String()), label, tag); msg != "" {
			res.Errors = append(res.Errors, FieldError{Field: f.Name, Message: msg})
		}
	}
	return res
}

func check(val, label, tag string) string {
	for _, rule := range strings.Split(tag, ",") {
		name, arg, _ := strings.Cut(rule, "=")
		if name != "required" && val == "" {
			return ""
		}
		switch name {
		case "required":
			if val == "" {
				return label + " is required."
			}
		case "min":
			n, _ := strconv.Atoi(arg)
			if utf8.RuneCountInString(val) < n {
				return fmt.Sprintf("%s must be at least %d characters.", label, n)
			}
		case "max":
			n, _ := strconv.Atoi(arg)
			if utf8.RuneCountInString(val) > n {
				return fmt.Sprintf("%s must be at most %d characters.", label, n)
			}
		case "email":
			if !IsValidEmail(val) {
				return "A valid email address is required."
			}
		case "httpurl":
			if !IsValidHTTPURL(val) {
				return label + " must be a valid http(s) URL."
			}
		case "objectid":
			if !IsValidObjectID(val) {
				return label + " is not a valid ID."
			}
		case "authmethod":
			if !IsValidAuthMethod(val) {
				return label + " is not a supported sign-in method."
			}
		case "userrole":
			if !roles.ValidUserRole(val) {
				return label + " must be no_role or role."
			}
		case "orgrole":
			if !roles.ValidOrgRole(val) {
				return label + " must be no_role, mentor or org_admin."
			}
		case "oneof":
			opts := strings.Fields(arg)
			ok := false
			for _, o := range opts {
				if val == o {
					ok = true
					break
				}
			}
			if !ok {
				return fmt.Sprintf("%s must be one of: %s.", label, strings.Join(opts, ", "))
			}
		}
	}
	return ""
}
