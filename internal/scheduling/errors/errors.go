package errors

import "errors"

var (
	ErrNotFound = errors.New("record not found")

	// ErrLockTimeout reports that lock acquisition ran out of time.
	ErrLockTimeout = errors.New("slot lock acquisition timed out")

	// ErrTxConflict reports a storage-level write conflict the lock
	// discipline did not catch. Safe to retry.
	ErrTxConflict = errors.New("transaction conflict")
)
