// Package booking implements the reservation core: conflict detection,
// the booking workflow and the reservation lifecycle. It depends only
// on the repository.Gateway interface, never on the MySQL adapter
// directly.
package booking

import "errors"

// Sentinel error kinds returned by the service. Handlers map them to
// HTTP statuses with errors.Is; human-readable reasons wrap the
// sentinels with %w so the kind survives the wrapping.
var (
    // ErrValidation marks malformed or missing input, detected before
    // the data store is touched.
    ErrValidation = errors.New("validation failed")
    // ErrRoomNotFound marks a reference to a room that does not exist.
    ErrRoomNotFound = errors.New("room not found")
    // ErrReservationNotFound marks a reference to a reservation that
    // does not exist.
    ErrReservationNotFound = errors.New("reservation not found")
    // ErrConflict marks an interval that overlaps an existing active
    // reservation for the room. A business outcome, not a fault.
    ErrConflict = errors.New("room already booked")
    // ErrForbidden marks an actor that lacks authorization for the
    // requested mutation.
    ErrForbidden = errors.New("forbidden")
    // ErrAuth marks an actor whose session cannot be resolved to a
    // valid user record.
    ErrAuth = errors.New("stale session")
)
