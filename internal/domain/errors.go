// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist, or exists but
// is not reachable through the ownership chain given in the request path.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the request collides with existing state, such as a
// second workflow for a version that already has one.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates malformed input rejected before any write.
var ErrValidation = errors.New("validation failed")
