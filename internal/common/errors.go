// Package common defines sentinel errors and shared constants used by both
// the QuickSend server and client. Callers should match with errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// repository specific errors
	ErrNotFound = errors.New("not found")

	// validation errors, recoverable by the user
	ErrFileTooLarge        = errors.New("file too large")
	ErrMonthlyLimitReached = errors.New("monthly upload limit reached")
	ErrTierNotEligible     = errors.New("tier not eligible for multipart upload")
	ErrInvalidRequest      = errors.New("invalid request")

	// upload lifecycle errors
	ErrNotFoundInStorage = errors.New("object not found in storage")
	ErrPending           = errors.New("upload in progress")
	ErrUploadFailed      = errors.New("upload failed")
	ErrExpired           = errors.New("file expired")
	ErrNotMultipart      = errors.New("not a multipart upload")
	ErrIncompleteParts   = errors.New("incomplete parts")

	// infrastructure
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInternal           = errors.New("internal error")
)

// LimitError reports a violated tier limit together with the values the
// caller needs to render an upgrade prompt.
type LimitError struct {
	Err    error
	Tier   string
	Limit  int64
	Actual int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v: tier %s allows %d, got %d", e.Err, e.Tier, e.Limit, e.Actual)
}

func (e *LimitError) Unwrap() error {
	return e.Err
}
