package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/mkarwowski/room-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and the
// interval-overlap queries the conflict detector needs. All timestamp
// columns are stored in UTC; the overlap predicate treats intervals as
// half-open [start_time, end_time).
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need transactions
// spanning multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, room_id, user_id, title, start_time, end_time, status, created_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
    var res model.Reservation
    err := row.Scan(&res.ID, &res.RoomID, &res.UserID, &res.Title,
        &res.StartTime, &res.EndTime, &res.Status, &res.CreatedAt)
    if err != nil {
        return nil, err
    }
    res.StartTime = res.StartTime.UTC()
    res.EndTime = res.EndTime.UTC()
    return &res, nil
}

// overlapPredicate selects reservations whose half-open interval
// overlaps [?, ?): NOT (existing ends at or before the new start OR
// existing starts at or after the new end). Back-to-back bookings
// therefore never match.
const overlapPredicate = `status <> 'CANCELLED' AND NOT (end_time <= ? OR start_time >= ?)`

// Create inserts a new reservation. The overlap recheck and the insert
// run inside one transaction with the competing rows locked, so of two
// racing inserts for the same slot exactly one commits; the other gets
// ErrSlotTaken. The generated ID and created_at are populated on the
// given record.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const check = `SELECT COUNT(*) FROM reservations
                   WHERE room_id = ? AND ` + overlapPredicate + `
                   FOR UPDATE`
    var taken int
    if err := tx.QueryRowContext(ctx, check, res.RoomID, res.StartTime.UTC(), res.EndTime.UTC()).Scan(&taken); err != nil {
        return err
    }
    if taken > 0 {
        return ErrSlotTaken
    }
    const ins = `INSERT INTO reservations (room_id, user_id, title, start_time, end_time, status)
                 VALUES (?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, ins, res.RoomID, res.UserID, res.Title,
        res.StartTime.UTC(), res.EndTime.UTC(), res.Status)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Read the row back to populate created_at and any column defaults.
    const sel = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    created, err := scanReservation(tx.QueryRowContext(ctx, sel, res.ID))
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    *res = *created
    return nil
}

// FindOverlapping returns all non-cancelled reservations for roomID
// whose interval overlaps [start, end). excludeID, when non-zero,
// removes that reservation from the result; updates use it so a
// reservation never conflicts with itself.
func (r *ReservationRepo) FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE room_id = ? AND ` + overlapPredicate
    args := []any{roomID, start.UTC(), end.UTC()}
    if excludeID != 0 {
        q += ` AND id <> ?`
        args = append(args, excludeID)
    }
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var overlaps []model.Reservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        overlaps = append(overlaps, *res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return overlaps, nil
}

// GetByID retrieves a reservation by its ID. It returns
// ErrReservationNotFound when no row is found.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    return res, nil
}

// UpdateStatus sets the status of an existing reservation. Setting the
// current status again is a valid no-op; only a missing row is an error.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
    res, err := r.db.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // RowsAffected is also zero for a no-op update to the same
        // status, so distinguish via an existence check.
        if _, err := r.GetByID(ctx, id); err != nil {
            return err
        }
    }
    return nil
}

// Delete hard-deletes a reservation row. Returns ErrReservationNotFound
// when the row does not exist.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrReservationNotFound
    }
    return nil
}

// ReservationDetail is a reservation joined with its room and the user
// who placed it, as returned by the listing endpoints.
type ReservationDetail struct {
    ID        uint64    `json:"id"`
    RoomID    uint64    `json:"room_id"`
    UserID    uint64    `json:"user_id"`
    Title     string    `json:"title"`
    StartTime time.Time `json:"start_time"`
    EndTime   time.Time `json:"end_time"`
    Status    string    `json:"status"`
    CreatedAt time.Time `json:"created_at"`
    RoomName  string    `json:"room_name"`
    Building  string    `json:"building"`
    UserName  string    `json:"user_name"`
    UserEmail string    `json:"user_email"`
}

const detailQuery = `SELECT r.id, r.room_id, r.user_id, r.title, r.start_time, r.end_time,
                            r.status, r.created_at, rm.name, rm.building, u.name, u.email
                     FROM reservations r
                     JOIN rooms rm ON rm.id = r.room_id
                     JOIN users u ON u.id = r.user_id`

func scanDetail(row interface{ Scan(...any) error }) (ReservationDetail, error) {
    var d ReservationDetail
    err := row.Scan(&d.ID, &d.RoomID, &d.UserID, &d.Title, &d.StartTime, &d.EndTime,
        &d.Status, &d.CreatedAt, &d.RoomName, &d.Building, &d.UserName, &d.UserEmail)
    if err != nil {
        return d, err
    }
    d.StartTime = d.StartTime.UTC()
    d.EndTime = d.EndTime.UTC()
    return d, nil
}

func (r *ReservationRepo) queryDetails(ctx context.Context, q string, args ...any) ([]ReservationDetail, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]ReservationDetail, 0)
    for rows.Next() {
        d, err := scanDetail(rows)
        if err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}

// ListByUser returns all reservations created by the given user,
// newest start first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
    const q = detailQuery + `
                     WHERE r.user_id = ?
                     ORDER BY r.start_time DESC`
    return r.queryDetails(ctx, q, userID)
}

// ListAll returns a page of all reservations for the admin view,
// newest start first.
func (r *ReservationRepo) ListAll(ctx context.Context, limit, offset int) ([]ReservationDetail, error) {
    const q = detailQuery + `
                     ORDER BY r.start_time DESC
                     LIMIT ? OFFSET ?`
    return r.queryDetails(ctx, q, limit, offset)
}

// ListBetween returns the non-cancelled reservations whose interval
// lies within [start, end], ordered by start time. When start or end
// is zero the window is unbounded on that side; the calendar view
// passes both.
func (r *ReservationRepo) ListBetween(ctx context.Context, start, end time.Time) ([]ReservationDetail, error) {
    q := detailQuery + `
                     WHERE r.status <> 'CANCELLED'`
    args := make([]any, 0, 2)
    if !start.IsZero() {
        q += ` AND r.start_time >= ?`
        args = append(args, start.UTC())
    }
    if !end.IsZero() {
        q += ` AND r.end_time <= ?`
        args = append(args, end.UTC())
    }
    q += ` ORDER BY r.start_time`
    return r.queryDetails(ctx, q, args...)
}

const upcomingByRoomQuery = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE room_id = ? AND status <> 'CANCELLED'
                 AND end_time > UTC_TIMESTAMP()
               ORDER BY start_time`

// UpcomingByRoom returns the non-cancelled reservations for a room
// that have not yet ended, ordered by start time. A cancelled claim no
// longer occupies the slot and must not show up as upcoming.
func (r *ReservationRepo) UpcomingByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, upcomingByRoomQuery, roomID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// CountUpcomingByUser returns how many active reservations the user
// has that have not yet ended.
func (r *ReservationRepo) CountUpcomingByUser(ctx context.Context, userID uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE user_id = ? AND status <> 'CANCELLED' AND end_time > UTC_TIMESTAMP()`
    var n int
    err := r.db.QueryRowContext(ctx, q, userID).Scan(&n)
    return n, err
}

// CountByUser returns the user's total reservation count, cancelled
// included.
func (r *ReservationRepo) CountByUser(ctx context.Context, userID uint64) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&n)
    return n, err
}

// NextByUser returns the user's next active reservations, soonest
// first, limited to limit rows.
func (r *ReservationRepo) NextByUser(ctx context.Context, userID uint64, limit int) ([]ReservationDetail, error) {
    const q = detailQuery + `
                     WHERE r.user_id = ? AND r.status <> 'CANCELLED' AND r.end_time > UTC_TIMESTAMP()
                     ORDER BY r.start_time
                     LIMIT ?`
    return r.queryDetails(ctx, q, userID, limit)
}
