package repository

import (
    "context"
    "time"

    "github.com/mkarwowski/room-reservation/internal/model"
)

// Gateway is the persistence surface the booking service depends on.
// It covers exactly the query primitives the conflict detector, the
// booking workflow and the lifecycle manager need; handlers use the
// concrete repositories directly for read-side listings. Keeping the
// core behind this interface lets the service be exercised against an
// in-memory fake in tests and keeps it independent of the MySQL
// adapter.
type Gateway interface {
    // FindRoomByID returns the room or ErrRoomNotFound.
    FindRoomByID(ctx context.Context, id uint64) (*model.Room, error)
    // FindUserByID returns the user record for an actor id.
    FindUserByID(ctx context.Context, id uint64) (model.User, error)
    // FindReservationByID returns the reservation or ErrReservationNotFound.
    FindReservationByID(ctx context.Context, id uint64) (*model.Reservation, error)
    // FindOverlapping returns the non-cancelled reservations for roomID
    // whose half-open interval overlaps [start, end). excludeID, when
    // non-zero, removes that reservation from consideration.
    FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error)
    // InsertReservation commits a new reservation and populates its
    // generated ID and CreatedAt. Returns ErrSlotTaken when the
    // transactional recheck finds a competing active reservation.
    InsertReservation(ctx context.Context, res *model.Reservation) error
    // UpdateReservationStatus sets the status column for an existing
    // reservation.
    UpdateReservationStatus(ctx context.Context, id uint64, status string) error
    // DeleteReservation hard-deletes a reservation row.
    DeleteReservation(ctx context.Context, id uint64) error
    // MarkRoomUsed records that a room is about to be used: clears
    // is_cleaned and stamps last_used_at.
    MarkRoomUsed(ctx context.Context, roomID uint64, usedAt time.Time) error
}

// Store bundles the concrete MySQL repositories behind the Gateway
// interface. All methods delegate; composition happens in main.
type Store struct {
    Users        *UserRepo
    Rooms        *RoomRepo
    Reservations *ReservationRepo
}

// NewStore builds a Store from the individual repositories.
func NewStore(users *UserRepo, rooms *RoomRepo, reservations *ReservationRepo) *Store {
    if users == nil || rooms == nil || reservations == nil {
        panic("nil repository passed to NewStore")
    }
    return &Store{Users: users, Rooms: rooms, Reservations: reservations}
}

func (s *Store) FindRoomByID(ctx context.Context, id uint64) (*model.Room, error) {
    return s.Rooms.GetByID(ctx, id)
}

func (s *Store) FindUserByID(ctx context.Context, id uint64) (model.User, error) {
    return s.Users.GetByID(ctx, id)
}

func (s *Store) FindReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    return s.Reservations.GetByID(ctx, id)
}

func (s *Store) FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
    return s.Reservations.FindOverlapping(ctx, roomID, start, end, excludeID)
}

func (s *Store) InsertReservation(ctx context.Context, res *model.Reservation) error {
    return s.Reservations.Create(ctx, res)
}

func (s *Store) UpdateReservationStatus(ctx context.Context, id uint64, status string) error {
    return s.Reservations.UpdateStatus(ctx, id, status)
}

func (s *Store) DeleteReservation(ctx context.Context, id uint64) error {
    return s.Reservations.Delete(ctx, id)
}

func (s *Store) MarkRoomUsed(ctx context.Context, roomID uint64, usedAt time.Time) error {
    return s.Rooms.MarkUsed(ctx, roomID, usedAt)
}
