package scan

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound     = errors.New("scan code not found")
	ErrInvalidMode        = errors.New("invalid scan mode")
	ErrAlreadyValidated   = errors.New("package has already been validated")
	ErrValidationRequired = errors.New("package must be validated before dispensing")
	ErrAlreadyDispensed   = errors.New("package has already been dispensed")
)

// ErrorKind is the discriminant reported to callers for a failed scan.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "NotFound"
	KindInvalidMode        ErrorKind = "InvalidMode"
	KindAlreadyValidated   ErrorKind = "AlreadyValidated"
	KindValidationRequired ErrorKind = "ValidationRequired"
	KindAlreadyDispensed   ErrorKind = "AlreadyDispensed"
	KindStorage            ErrorKind = "StorageError"
	KindUnknown            ErrorKind = "Unknown"
)

type StorageErrorKind string

const (
	StorageTimeout    StorageErrorKind = "timeout"
	StorageConflict   StorageErrorKind = "conflict"
	StorageConnection StorageErrorKind = "connection"
	StorageUnknown    StorageErrorKind = "unknown"
)

// StorageError wraps a failure of the record store. Callers may retry it;
// the scan service never does.
type StorageError struct {
	Kind StorageErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is one of the expected domain outcomes.
func IsRejection(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindInvalidMode, KindAlreadyValidated, KindValidationRequired, KindAlreadyDispensed:
		return true
	}
	return false
}

func KindOf(err error) ErrorKind {
	var storageErr *StorageError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidMode):
		return KindInvalidMode
	case errors.Is(err, ErrAlreadyValidated):
		return KindAlreadyValidated
	case errors.Is(err, ErrValidationRequired):
		return KindValidationRequired
	case errors.Is(err, ErrAlreadyDispensed):
		return KindAlreadyDispensed
	case errors.As(err, &storageErr):
		return KindStorage
	}
	return KindUnknown
}

// StorageKindOf returns the sub-kind of a storage failure, or "" for anything else.
func StorageKindOf(err error) StorageErrorKind {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Kind
	}
	return ""
}
