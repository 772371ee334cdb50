package model

import "time"

// Reservation status values stored in reservations.status.  A new
// reservation starts PENDING; an admin confirms it; either the owner
// or an admin cancels it.  CANCELLED is terminal.
const (
    StatusPending   = "PENDING"
    StatusConfirmed = "CONFIRMED"
    StatusCancelled = "CANCELLED"
)

// Reservation records a user's time-bounded claim on a room.  The
// interval is half-open [StartTime, EndTime): a reservation ending at
// 11:00 does not overlap one starting at 11:00.  Among all
// reservations for a room with status other than CANCELLED the
// intervals are pairwise non-overlapping; the booking workflow and the
// insert-time recheck in the repository together maintain that
// invariant.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room being reserved.
//  UserID    – user who created the reservation.
//  Title     – purpose of the booking (at most 200 characters).
//  StartTime – inclusive start of the slot (UTC).
//  EndTime   – exclusive end of the slot (UTC); always after StartTime.
//  Status    – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt – creation timestamp.
type Reservation struct {
    ID        uint64    // reservations.id
    RoomID    uint64    // reservations.room_id
    UserID    uint64    // reservations.user_id
    Title     string    // reservations.title
    StartTime time.Time // reservations.start_time
    EndTime   time.Time // reservations.end_time
    Status    string    // reservations.status
    CreatedAt time.Time // reservations.created_at
}

// ValidStatus reports whether s is one of the accepted reservation statuses.
func ValidStatus(s string) bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusCancelled:
        return true
    }
    return false
}

// Active reports whether the reservation still claims its slot.
func (r *Reservation) Active() bool {
    return r.Status != StatusCancelled
}
