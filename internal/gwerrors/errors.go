// Package gwerrors defines the gateway's error taxonomy: typed values with
// Unwrap support so the HTTP layer can classify any error via errors.As
// instead of matching strings.
package gwerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions with no extra context.
var (
	ErrUnauthorized   = errors.New("missing or invalid bearer token")
	ErrNotStreaming   = errors.New("only streaming is supported")
	ErrUnknownRoute   = errors.New("unknown route")
	ErrRegistryClosed = errors.New("registry is shutting down")
)

// Kind classifies an error for HTTP status mapping and the streaming error
// envelope's "type" field.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindAuth        Kind = "authentication_error"
	KindWorkspace   Kind = "workspace_error"
	KindChildSpawn  Kind = "child_spawn_error"
	KindRateLimited Kind = "rate_limited_error"
	KindSystem      Kind = "system_error"
	KindNotFound    Kind = "not_found_error"
)

// ValidationError is returned for malformed requests: bad JSON, missing
// fields, out-of-range values, or conflicting tool-permission lists.
type ValidationError struct {
	Field   string
	Code    string
	Value   interface{}
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func NewValidationError(field, code, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message, Value: value}
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// WorkspaceErrorCategory enumerates the filesystem failure classes
// WorkspaceResolver must distinguish.
type WorkspaceErrorCategory string

const (
	WorkspacePermissionDenied WorkspaceErrorCategory = "permission_denied"
	WorkspaceNotADirectory    WorkspaceErrorCategory = "not_a_directory"
	WorkspaceDiskFull         WorkspaceErrorCategory = "disk_full"
	WorkspaceOther            WorkspaceErrorCategory = "other"
)

// WorkspaceError wraps a filesystem failure encountered while resolving or
// creating a workspace directory.
type WorkspaceError struct {
	Category WorkspaceErrorCategory
	Path     string
	Cause    error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace error (%s) at %q: %v", e.Category, e.Path, e.Cause)
}

func (e *WorkspaceError) Unwrap() error { return e.Cause }

func NewWorkspaceError(category WorkspaceErrorCategory, path string, cause error) *WorkspaceError {
	return &WorkspaceError{Category: category, Path: path, Cause: cause}
}

func IsWorkspaceError(err error) bool {
	var w *WorkspaceError
	return errors.As(err, &w)
}

// ChildSpawnError reports failure to start the child process itself
// (program not found, permission denied on the executable, etc.).
type ChildSpawnError struct {
	Command string
	Cause   error
}

func (e *ChildSpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Command, e.Cause)
}

func (e *ChildSpawnError) Unwrap() error { return e.Cause }

func NewChildSpawnError(command string, cause error) *ChildSpawnError {
	return &ChildSpawnError{Command: command, Cause: cause}
}

func IsChildSpawnError(err error) bool {
	var c *ChildSpawnError
	return errors.As(err, &c)
}

// DownloadError reports a failure while fetching a remote file attachment.
type DownloadError struct {
	URL        string
	StatusCode int
	Status     string
	Message    string
	Cause      error
}

func (e *DownloadError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("download of %s failed: %s", e.URL, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("download of %s failed (%d %s): %v", e.URL, e.StatusCode, e.Status, e.Cause)
	}
	return fmt.Sprintf("download of %s failed (%d %s)", e.URL, e.StatusCode, e.Status)
}

func (e *DownloadError) Unwrap() error { return e.Cause }

func NewDownloadError(url string, statusCode int, status, message string, cause error) *DownloadError {
	return &DownloadError{URL: url, StatusCode: statusCode, Status: status, Message: message, Cause: cause}
}

// RateLimitedError is returned when a caller has exhausted its token bucket.
type RateLimitedError struct {
	Key string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q", e.Key)
}

func IsRateLimitedError(err error) bool {
	var r *RateLimitedError
	return errors.As(err, &r)
}

// StatusCode maps an error produced anywhere in the gateway to an HTTP
// status code for pre-hijack responses, and to the Kind used in the
// streaming error envelope's "type" field.
func StatusCode(err error) (int, Kind) {
	var v *ValidationError
	if errors.As(err, &v) {
		return 400, KindValidation
	}
	var w *WorkspaceError
	if errors.As(err, &w) {
		return 500, KindWorkspace
	}
	var c *ChildSpawnError
	if errors.As(err, &c) {
		return 500, KindChildSpawn
	}
	var r *RateLimitedError
	if errors.As(err, &r) {
		return 429, KindRateLimited
	}
	switch {
	case errors.Is(err, ErrNotStreaming):
		return 400, KindValidation
	case errors.Is(err, ErrUnauthorized):
		return 401, KindAuth
	case errors.Is(err, ErrUnknownRoute):
		return 404, KindNotFound
	}
	return 500, KindSystem
}
