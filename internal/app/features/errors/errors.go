// Package errors turns handler failures into JSON error responses and logs
// the ones that are the server's fault.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// UserError is a failure the client can act on. Message is shown as is.
type UserError struct {
	Status  int
	Message string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// BadRequest returns a 400 UserError.
func BadRequest(msg string) error { return &UserError{Status: http.StatusBadRequest, Message: msg} }

// Unauthorized returns a 401 UserError.
func Unauthorized(msg string) error { return &UserError{Status: http.StatusUnauthorized, Message: msg} }

// Forbidden returns a 403 UserError.
func Forbidden(msg string) error { return &UserError{Status: http.StatusForbidden, Message: msg} }

// NotFound returns a 404 UserError.
func NotFound(msg string) error { return &UserError{Status: http.StatusNotFound, Message: msg} }

// Conflict returns a 409 UserError.
func Conflict(msg string) error { return &UserError{Status: http.StatusConflict, Message: msg} }

// Redirect sends the client elsewhere with 303 See Other.
type Redirect struct {
	URL string
}

func (r *Redirect) Error() string { return "redirect to " + r.URL }

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error body.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteJSON(w, status, errorBody{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}

// ErrorLogger writes error responses and logs server-side failures with the
// request they belong to.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

func (l *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fs := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	return fs
}

// LogServerError logs msg and err and answers 500 with userMsg.
func (l *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	l.log.Error(msg, l.fields(r, err)...)
	WriteError(w, r, http.StatusInternalServerError, userMsg)
}

// LogBadRequest logs at debug level and answers 400 with userMsg.
func (l *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	l.log.Debug(msg, l.fields(r, err)...)
	WriteError(w, r, http.StatusBadRequest, userMsg)
}

// LogForbidden logs at info level and answers 403 with userMsg.
func (l *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, msg string, userMsg string) {
	l.log.Info(msg, l.fields(r, nil)...)
	WriteError(w, r, http.StatusForbidden, userMsg)
}

// HandleError answers for err: a UserError with its status and message, a
// Redirect with 303, anything else as a logged 500. op names the failed
// operation in the log.
func (l *ErrorLogger) HandleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ue *UserError
	if stderrors.As(err, &ue) {
		if ue.Status >= http.StatusInternalServerError {
			l.log.Error(op, l.fields(r, err)...)
		}
		WriteError(w, r, ue.Status, ue.Message)
		return
	}
	var rd *Redirect
	if stderrors.As(err, &rd) {
		http.Redirect(w, r, rd.URL, http.StatusSeeOther)
		return
	}
	l.LogServerError(w, r, op, err, "Internal server error.")
}

// NotFoundHandler answers unknown routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, "Not found.")
}

// MethodNotAllowedHandler answers known routes with the wrong method.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
}
