package apperr

import "errors"

// Invalid is returned when the input fails domain validation.
var Invalid = errors.New("invalid input")

// Conflict indicates the order was already taken by another courier (HTTP 409).
var Conflict = errors.New("conflict")

// NotFound indicates that the requested resource does not exist.
var NotFound = errors.New("not found")

// Capacity is returned when the courier already carries the maximum number of active orders.
var Capacity = errors.New("active order capacity reached")

// Unauthorized indicates a missing or rejected bearer token.
var Unauthorized = errors.New("unauthorized")

// PermissionDenied is returned when the device refuses location access.
var PermissionDenied = errors.New("location permission denied")
