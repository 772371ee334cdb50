// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when an admin confirms a pending
// reservation. It carries enough information for downstream consumers to
// log, notify, or feed analytics without querying the primary database.
type ReservationConfirmedEvent struct {
    ReservationID uint64 `json:"reservation_id"`
    UserID        uint64 `json:"user_id"`
    UserEmail     string `json:"user_email"`
    RoomID        uint64 `json:"room_id"`
    RoomName      string `json:"room_name"`
    Building      string `json:"building"`
    Title         string `json:"title"`
    StartTime     string `json:"start_time"`
    EndTime       string `json:"end_time"`
    ConfirmedAt   string `json:"confirmed_at"`
}
