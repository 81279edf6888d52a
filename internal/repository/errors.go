package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("record already exists")
	// ErrInsufficientStock is returned when an order line exceeds available stock
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStaleState is returned when a conditional update matched no row because
	// the record changed underneath the caller
	ErrStaleState = errors.New("record state changed")
)
