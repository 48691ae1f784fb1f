package storage

import "errors"

// Common storage errors
var (
	// ErrPostNotFound indicates that post was not found in storage
	ErrPostNotFound = errors.New("post not found")

	// ErrAlreadyApplied indicates that the actor already reacted to the post (unique constraint)
	ErrAlreadyApplied = errors.New("reaction already applied")
)
