package model

import "errors"

// Storage-level sentinel errors shared by every repository implementation.
var (
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrPolicyNotFound     = errors.New("policy not found")
	ErrPolicyConflict     = errors.New("an enabled policy already exists for this scope")
	ErrStatusConflict     = errors.New("withdrawal status changed concurrently")
	ErrSnapshotNotFound   = errors.New("risk snapshot not found")
)
