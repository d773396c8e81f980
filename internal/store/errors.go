package store

import "errors"

var (
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyConfirmed = errors.New("booking already confirmed")
)
