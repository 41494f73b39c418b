// Package request reads and validates API input for feature handlers.
// Every failure is a features/errors UserError ready for HandleError.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/system/authz"
	"github.com/dalemusser/melange/internal/app/system/inputval"
	"github.com/dalemusser/melange/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bind decodes the JSON body into v and runs its validate tags.
func Bind(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return uierrors.BadRequest("Request body is empty.")
		}
		return uierrors.BadRequest("Invalid JSON: " + err.Error())
	}
	if res := inputval.Validate(v); res.HasErrors() {
		return uierrors.BadRequest(res.All())
	}
	return nil
}

// ID parses the chi URL parameter name as an ObjectID. what names the
// resource in the 404 message.
func ID(r *http.Request, name, what string) (primitive.ObjectID, error) {
	return ParseID(chi.URLParam(r, name), what)
}

// ParseID parses a hex ObjectID; a malformed value is a 404 for what.
func ParseID(s, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, uierrors.NotFound(what + " not found.")
	}
	return id, nil
}

// OptionalID parses an optional hex ObjectID (query or body); "" is nil.
func OptionalID(s, what string) (*primitive.ObjectID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return nil, uierrors.BadRequest("Invalid " + what + " id.")
	}
	return &id, nil
}

// IDs parses a list of hex ObjectIDs from a request body. Duplicates are
// dropped; any malformed value is a 400.
func IDs(list []string, what string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(list))
	seen := make(map[primitive.ObjectID]bool, len(list))
	for _, s := range list {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			return nil, uierrors.BadRequest("Invalid " + what + " id: " + s)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// User returns the signed-in user's ID and name.
func User(r *http.Request) (primitive.ObjectID, string, error) {
	_, name, id, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, "", uierrors.Unauthorized("Sign in required.")
	}
	return id, name, nil
}

// RequireAdmin fails with 403 unless the signed-in user is a site admin.
func RequireAdmin(r *http.Request) error {
	if _, _, err := User(r); err != nil {
		return err
	}
	if !authz.IsAdmin(r) {
		return uierrors.Forbidden("Administrator access required.")
	}
	return nil
}
