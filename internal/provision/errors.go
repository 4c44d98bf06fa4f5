package provision

import (
	"errors"
	"fmt"
)

// ProvisioningError is a fatal error of a Manage run.
//
// The cause of an adapter failure (store, ledger, messenger) is kept in Err
// and reachable with errors.Is / errors.As.
type ProvisioningError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the failing run.
	RunID string

	// Room is the short name of the affected room, if any.
	Room string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes provisioning errors.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates Request failed validation.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeNoElection indicates the store holds no election.
	ErrCodeNoElection ErrorCode = "NO_ELECTION"

	// ErrCodeSourceUnavailable indicates the ledger read failed.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// ErrCodeStoreFailure indicates a store read or write failed.
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"

	// ErrCodeAllocationMismatch indicates the ledger disagrees with the
	// caller about the participant set.
	ErrCodeAllocationMismatch ErrorCode = "ALLOCATION_MISMATCH"

	// ErrCodeMissingPreelectionRoom indicates the election has no
	// preelection room.
	ErrCodeMissingPreelectionRoom ErrorCode = "MISSING_PREELECTION_ROOM"

	// ErrCodeChatCreationFailed indicates the platform did not create a chat.
	// The room stays unprovisioned and is retried by the next run.
	ErrCodeChatCreationFailed ErrorCode = "CHAT_CREATION_FAILED"

	// ErrCodeSubStepFailed marks a failed step after chat creation. It is
	// reported in Report.Failures and never returned from Manage.
	ErrCodeSubStepFailed ErrorCode = "SUBSTEP_FAILED"
)

// Error implements the error interface.
func (e *ProvisioningError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Room != "" {
		msg += fmt.Sprintf(" (room=%s)", e.Room)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the ProvisioningError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *ProvisioningError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// IsCode reports whether err carries code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func newError(code ErrorCode, runID string, cause error, format string, args ...any) *ProvisioningError {
	return &ProvisioningError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		RunID:   runID,
		Err:     cause,
	}
}

// NewMismatchError reports a participant count disagreement.
func NewMismatchError(runID string, expected, got int) *ProvisioningError {
	return newError(ErrCodeAllocationMismatch, runID, nil,
		"expected %d participants, ledger returned %d", expected, got)
}

// NewChatCreationError reports a room whose chat could not be created.
func NewChatCreationError(runID, room string, cause error) *ProvisioningError {
	e := newError(ErrCodeChatCreationFailed, runID, cause, "chat creation failed")
	if cause == nil {
		e.Message = "chat creation returned no chat id"
	}
	e.Room = room
	return e
}
