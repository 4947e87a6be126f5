package repository

import "errors"

// Package repository defines data access contracts using SQL queries only.
// No business logic here — strictly persistence operations.

// ErrConflict reports a uniqueness violation. It is the storage-layer
// backstop that turns a duplicate-insert race into a detectable conflict
// instead of two live rows.
var ErrConflict = errors.New("unique constraint conflict")

// ErrAllocation reports lock/transaction contention on the organisation
// counter row. Callers retry the whole transaction; the failed attempt
// leaves no durable side effect.
var ErrAllocation = errors.New("allocation conflict")

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
