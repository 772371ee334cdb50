package booking

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/mkarwowski/room-reservation/internal/model"
    "github.com/mkarwowski/room-reservation/internal/repository"
)

// MaxTitleLen bounds the reservation title.
const MaxTitleLen = 200

// Metrics receives booking outcome counts from the service. The
// Prometheus collector in internal/metrics implements it; a nil
// Metrics disables recording.
type Metrics interface {
    RecordCreated()
    RecordConflict()
    RecordStatusChange(status string)
    ObserveCreateLatency(d time.Duration)
}

// Service is the reservation core. It validates booking requests,
// detects interval conflicts, commits reservations and governs status
// transitions. All persistence goes through the Gateway so the service
// is independent of the storage adapter in use.
type Service struct {
    store   repository.Gateway
    metrics Metrics
    now     func() time.Time
}

// NewService constructs the booking service. metrics may be nil.
func NewService(store repository.Gateway, metrics Metrics) *Service {
    if store == nil {
        panic("nil gateway passed to NewService")
    }
    return &Service{store: store, metrics: metrics, now: time.Now}
}

// CreateRequest carries the typed payload of a booking request. The
// handler binds and parses raw JSON into this before the core is
// invoked, so validation here never deals with transport formats.
type CreateRequest struct {
    RoomID    uint64
    Title     string
    StartTime time.Time
    EndTime   time.Time
}

// CreateReservation runs the booking workflow for actorID. Checks run
// in a fixed order, first failure wins: field presence, title length,
// no past-dated start ("now" is captured once on entry), time
// ordering, room existence, conflict, actor resolution. On success the
// reservation is committed with status PENDING and returned with its
// generated ID.
//
// The conflict check and the insert are not atomic against concurrent
// bookings, so an insert failure triggers exactly one recheck: if a
// conflict is visible now the caller gets ErrConflict, otherwise the
// original failure propagates. Two racing requests for the same slot
// therefore resolve to exactly one winner.
func (s *Service) CreateReservation(ctx context.Context, actorID uint64, req CreateRequest) (*model.Reservation, error) {
    began := s.now()
    now := began.UTC()
    defer func() {
        if s.metrics != nil {
            s.metrics.ObserveCreateLatency(s.now().Sub(began))
        }
    }()

    title := strings.TrimSpace(req.Title)
    if req.RoomID == 0 || title == "" || req.StartTime.IsZero() || req.EndTime.IsZero() {
        return nil, fmt.Errorf("%w: missing fields", ErrValidation)
    }
    if len(title) > MaxTitleLen {
        return nil, fmt.Errorf("%w: title must not exceed %d characters", ErrValidation, MaxTitleLen)
    }
    if req.StartTime.Before(now) {
        return nil, fmt.Errorf("%w: cannot book in the past", ErrValidation)
    }
    if !req.EndTime.After(req.StartTime) {
        return nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
    }

    if _, err := s.store.FindRoomByID(ctx, req.RoomID); err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return nil, ErrRoomNotFound
        }
        return nil, err
    }

    conflict, err := s.hasConflict(ctx, req.RoomID, req.StartTime, req.EndTime, 0)
    if err != nil {
        return nil, err
    }
    if conflict {
        if s.metrics != nil {
            s.metrics.RecordConflict()
        }
        return nil, ErrConflict
    }

    actor, err := s.store.FindUserByID(ctx, actorID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrAuth
        }
        return nil, err
    }
    if !actor.IsActive {
        return nil, ErrAuth
    }

    res := &model.Reservation{
        RoomID:    req.RoomID,
        UserID:    actorID,
        Title:     title,
        StartTime: req.StartTime.UTC(),
        EndTime:   req.EndTime.UTC(),
        Status:    model.StatusPending,
        CreatedAt: now,
    }
    if err := s.store.InsertReservation(ctx, res); err != nil {
        // A concurrent booking may have claimed the slot between the
        // check above and the insert. Recheck once; a visible conflict
        // means the store's constraint won the race for the other
        // request, and this one loses with ErrConflict.
        conflict, checkErr := s.hasConflict(ctx, req.RoomID, req.StartTime, req.EndTime, 0)
        if errors.Is(err, repository.ErrSlotTaken) || (checkErr == nil && conflict) {
            if s.metrics != nil {
                s.metrics.RecordConflict()
            }
            return nil, ErrConflict
        }
        return nil, err
    }
    if s.metrics != nil {
        s.metrics.RecordCreated()
    }
    return res, nil
}

// hasConflict reports whether any non-cancelled reservation for roomID
// overlaps the half-open interval [start, end). excludeID, when
// non-zero, is ignored in the check. Preconditions (room exists,
// start < end) are the caller's responsibility; this is a read-only
// query with no business-rule errors of its own.
func (s *Service) hasConflict(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) (bool, error) {
    overlaps, err := s.store.FindOverlapping(ctx, roomID, start, end, excludeID)
    if err != nil {
        return false, err
    }
    return len(overlaps) > 0, nil
}

// SetStatus applies a status transition to a reservation on behalf of
// the actor. The reservation must exist and the actor must own it or
// be an admin. Setting the current status again is an idempotent
// no-op, reported via changed=false so callers skip their own side
// effects. Non-admins may only cancel their own reservations and only
// while the reservation has not ended. CANCELLED is terminal for
// everyone. On a transition into CONFIRMED the room is marked used;
// failures of that side effect are logged, never surfaced.
func (s *Service) SetStatus(ctx context.Context, actorID uint64, actorRole string, reservationID uint64, newStatus string) (changed bool, err error) {
    if !model.ValidStatus(newStatus) {
        return false, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
    }
    res, err := s.store.FindReservationByID(ctx, reservationID)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return false, ErrReservationNotFound
        }
        return false, err
    }
    if actorID != res.UserID && actorRole != model.RoleAdmin {
        return false, ErrForbidden
    }
    if newStatus == res.Status {
        return false, nil
    }
    if res.Status == model.StatusCancelled {
        return false, fmt.Errorf("%w: reservation is cancelled", ErrValidation)
    }
    if actorRole != model.RoleAdmin {
        if newStatus != model.StatusCancelled {
            return false, ErrForbidden
        }
        if !res.EndTime.After(s.now().UTC()) {
            return false, fmt.Errorf("%w: reservation has already ended", ErrValidation)
        }
    }
    if err := s.store.UpdateReservationStatus(ctx, reservationID, newStatus); err != nil {
        return false, err
    }
    if s.metrics != nil {
        s.metrics.RecordStatusChange(newStatus)
    }
    if newStatus == model.StatusConfirmed {
        if err := s.store.MarkRoomUsed(ctx, res.RoomID, res.StartTime); err != nil {
            log.Printf("booking: mark room %d used failed: %v", res.RoomID, err)
        }
    }
    return true, nil
}

// Delete hard-deletes a reservation. Admin only; non-admin callers get
// ErrForbidden and should be redirected to a CANCELLED status update
// by the transport layer.
func (s *Service) Delete(ctx context.Context, actorID uint64, actorRole string, reservationID uint64) error {
    _ = actorID // identity is irrelevant once the role check passes
    if actorRole != model.RoleAdmin {
        return ErrForbidden
    }
    if err := s.store.DeleteReservation(ctx, reservationID); err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return ErrReservationNotFound
        }
        return err
    }
    return nil
}

// Get returns a reservation when the actor owns it or is an admin.
func (s *Service) Get(ctx context.Context, actorID uint64, actorRole string, reservationID uint64) (*model.Reservation, error) {
    res, err := s.store.FindReservationByID(ctx, reservationID)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    if actorID != res.UserID && actorRole != model.RoleAdmin {
        return nil, ErrForbidden
    }
    return res, nil
}
