package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConditionFailed is returned when a conditional write's guard no longer holds,
// e.g. the record left the state the caller expected.
var ErrConditionFailed = errors.New("conditional check failed")

// ErrPoolVersionConflict is returned when another allocation committed after the
// pool aggregates were read.
var ErrPoolVersionConflict = errors.New("pool version changed since snapshot")

// ErrOpenRequestExists is returned when an NGO already holds an open funding request.
var ErrOpenRequestExists = errors.New("ngo already has an open funding request")

// ErrConcurrentModification is returned when optimistic retries are exhausted.
var ErrConcurrentModification = errors.New("concurrent modification, try again")

// ErrDuplicate is returned when a record with the same ID already exists.
var ErrDuplicate = errors.New("duplicate record")
