// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios without inspecting driver-specific errors. For example,
// ErrSlotTaken indicates that the insert-time overlap recheck found a
// competing reservation, while ErrActiveReservations signals that a
// room cannot be deleted because future non-cancelled reservations
// still reference it.
package repository

import "errors"

// ErrRoomNotFound is returned when a room lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// ErrReservationNotFound is returned when a reservation lookup fails.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrSlotTaken is returned by reservation inserts when the locked
// recheck inside the insert transaction finds an overlapping active
// reservation for the same room. The booking workflow reclassifies it
// as a conflict after re-running its own check.
var ErrSlotTaken = errors.New("slot taken")

// ErrActiveReservations is returned when a room delete cannot proceed
// because active (non-cancelled, future-ending) reservations still
// reference the room. Handlers should translate this into an HTTP 409
// response.
var ErrActiveReservations = errors.New("room has active reservations")
