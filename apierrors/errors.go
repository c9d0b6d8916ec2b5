// Package apierrors defines the coded error taxonomy shared by the core
// components and the HTTP layer, so a handler can recover the intended
// status/code via errors.As without the core importing net/http.
package apierrors

import "fmt"

// Canonical error codes.
const (
	CodeHistoryReadFailed     = "HISTORY_READ_FAILED"
	CodeConversationNotFound  = "CONVERSATION_NOT_FOUND"
	CodeFileNotFound          = "FILE_NOT_FOUND"
	CodeConversationReadFailed = "CONVERSATION_READ_FAILED"
	CodeSessionUpdateFailed   = "SESSION_UPDATE_FAILED"
)

// CodedError is the Go rendition of the error taxonomy: a typed value
// carrying an HTTP status and a stable machine-readable code, rather than
// a hierarchy of exception classes.
type CodedError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *CodedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error { return e.Err }

func HistoryReadFailed(err error) *CodedError {
	return &CodedError{Code: CodeHistoryReadFailed, Message: "failed to read session history", Status: 500, Err: err}
}

func ConversationNotFound(sessionID string) *CodedError {
	return &CodedError{Code: CodeConversationNotFound, Message: "conversation not found: " + sessionID, Status: 404}
}

func FileNotFound(path string) *CodedError {
	return &CodedError{Code: CodeFileNotFound, Message: "session file not found: " + path, Status: 404}
}

func ConversationReadFailed(err error) *CodedError {
	return &CodedError{Code: CodeConversationReadFailed, Message: "failed to read conversation", Status: 500, Err: err}
}

func SessionUpdateFailed(err error) *CodedError {
	return &CodedError{Code: CodeSessionUpdateFailed, Message: "failed to update session", Status: 500, Err: err}
}
