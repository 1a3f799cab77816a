package api

import "errors"

var (
	// ErrConnection is returned when the store session cannot be created.
	ErrConnection = errors.New("connection error")

	// ErrClosed is returned on operations against a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrOverCapacity is returned when the concurrency cap is exceeded.
	ErrOverCapacity = errors.New("over capacity")

	// ErrUnsupported is returned for operations a statement kind or
	// descriptor kind does not support.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrObjectAlreadyExists is the outcome of a conditional insert whose
	// applied flag came back false (or whose result carried no row). It is
	// distinct from ordinary execution failure so that callers can branch
	// on it.
	ErrObjectAlreadyExists = errors.New("object already exists")

	// ErrEmptyKey marks an optional primary key column with no value. It is
	// not a failure: insert builds skip the affected table, since an object
	// may legitimately map only a subset of its declared tables.
	ErrEmptyKey = errors.New("empty optional primary key")
)
