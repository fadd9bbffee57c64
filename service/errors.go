package service

import "errors"

// Messages surfaced to API clients.
const (
	MsgNoFiles            = "Assignment has no files to analyze"
	MsgEmptyContent       = "Assignment content was empty after extraction"
	MsgNoChatLogs         = "Assignment has no chat logs to score"
	MsgServiceUnavailable = "Analysis service unavailable"
)

// AnalysisError is a precondition or model failure the caller can act on.
// It is never retried.
type AnalysisError struct {
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func newAnalysisError(msg string, err error) *AnalysisError {
	return &AnalysisError{Message: msg, Err: err}
}

// IsUnavailable reports whether err is a model failure rather than bad input.
func IsUnavailable(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Message == MsgServiceUnavailable
}

var (
	ErrDependencyMissing = errors.New("service dependency not configured")
	ErrInvalidRequest    = errors.New("invalid request")
)
