package repository

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrSessionNotFound   = errors.New("exam session not found")
	ErrSessionConflict   = errors.New("exam session was modified concurrently")
	ErrCategoryCompleted = errors.New("category already has a result")
	ErrResultNotFound    = errors.New("exam result not found")
	ErrCacheMiss         = errors.New("session snapshot not cached")
	ErrDuplicateUsername = errors.New("student with this username already exists")
	ErrDuplicateEmail    = errors.New("admin with this email already exists")
)
