package apperr

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

// Backend error codes recognized by Translate. PGRST codes come from the
// REST layer, the remaining phrases from the storage and auth services.
const (
	codeMissingRPC = "PGRST202"
	codeNoRows     = "PGRST116"
)

// BackendError is the raw failure reported by the hosted backend before
// translation: HTTP status plus the body's code and message fields.
type BackendError struct {
	Status  int
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}

	return e.Message
}

// Translate maps any error from the gateway into a categorized *Error.
// It is the only place allowed to inspect backend message strings.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var be *BackendError
	if errors.As(err, &be) {
		return translateBackend(be, err)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return &Error{Kind: KindNetwork, Message: "connection failed, check your network", cause: err}
	}

	return &Error{Kind: KindUnknown, Message: err.Error(), cause: err}
}

func translateBackend(be *BackendError, cause error) *Error {
	msg := strings.ToLower(be.Message)

	e := &Error{Message: be.Message, Code: be.Code, cause: cause}

	switch {
	case be.Code == codeMissingRPC:
		e.Kind = KindServer
	case strings.Contains(msg, "bucket not found"):
		e.Kind = KindFile
		e.Message = "storage bucket is not configured"
	case strings.Contains(msg, "row-level security") || strings.Contains(msg, "row level security"):
		e.Kind = KindPermission
		e.Message = "you do not have access to this resource"
	case strings.Contains(msg, "invalid login credentials"):
		e.Kind = KindAuth
		e.Message = "invalid email or password"
	case strings.Contains(msg, "jwt expired") || strings.Contains(msg, "invalid jwt"):
		e.Kind = KindAuth
		e.Message = "session expired, sign in again"
	case be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden:
		e.Kind = KindAuth
	case be.Status == http.StatusRequestEntityTooLarge:
		e.Kind = KindFile
	case be.Status == http.StatusConflict || strings.HasPrefix(be.Code, "23"):
		// 23xxx is the Postgres integrity-violation class.
		e.Kind = KindDatabase
	case be.Status >= 500:
		e.Kind = KindServer
	case be.Status >= 400:
		e.Kind = KindValidation
	default:
		e.Kind = KindUnknown
	}

	return e
}

// IsMissingRPC reports whether err means a named stored procedure does not
// exist on the backend, so the caller should use its fallback path.
func IsMissingRPC(err error) bool {
	return CodeOf(err) == codeMissingRPC
}

// IsNoRows reports whether err means a single-row request matched
// nothing.
func IsNoRows(err error) bool {
	return CodeOf(err) == codeNoRows
}
