package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/mkarwowski/room-reservation/internal/model"
)

// RoomRepo provides CRUD operations for rooms. Equipment is stored as
// a JSON array in a TEXT column; all timestamp columns are UTC.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomColumns = `id, name, building, floor, capacity, equipment, description,
                     room_type, is_cleaned, last_used_at, position_x, position_y,
                     created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
    var (
        rm        model.Room
        equipment []byte
        desc      sql.NullString
        lastUsed  sql.NullTime
        posX      sql.NullFloat64
        posY      sql.NullFloat64
    )
    err := row.Scan(&rm.ID, &rm.Name, &rm.Building, &rm.Floor, &rm.Capacity,
        &equipment, &desc, &rm.RoomType, &rm.IsCleaned, &lastUsed, &posX, &posY,
        &rm.CreatedAt, &rm.UpdatedAt)
    if err != nil {
        return nil, err
    }
    rm.Equipment = []string{}
    if len(equipment) > 0 {
        if err := json.Unmarshal(equipment, &rm.Equipment); err != nil {
            return nil, err
        }
    }
    if desc.Valid {
        d := desc.String
        rm.Description = &d
    }
    if lastUsed.Valid {
        t := lastUsed.Time.UTC()
        rm.LastUsedAt = &t
    }
    if posX.Valid {
        x := posX.Float64
        rm.PositionX = &x
    }
    if posY.Valid {
        y := posY.Float64
        rm.PositionY = &y
    }
    return &rm, nil
}

// Create inserts a new room and reads the row back so DB defaults
// (is_cleaned, timestamps) are populated on the given struct.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
    equipment, err := json.Marshal(rm.Equipment)
    if err != nil {
        return err
    }
    if rm.Equipment == nil {
        equipment = []byte("[]")
    }
    const q = `INSERT INTO rooms (name, building, floor, capacity, equipment, description,
                                  room_type, position_x, position_y)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Building, rm.Floor, rm.Capacity,
        equipment, rm.Description, rm.RoomType, rm.PositionX, rm.PositionY)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rm.ID = uint64(id)
    created, err := r.GetByID(ctx, rm.ID)
    if err != nil {
        return err
    }
    *rm = *created
    return nil
}

// GetByID retrieves a room by its ID. It returns ErrRoomNotFound when
// no row is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
    const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
    rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrRoomNotFound
        }
        return nil, err
    }
    return rm, nil
}

// RoomFilter narrows the room listing. Zero values mean "no filter":
// empty Building, nil Floor and zero MinCapacity match everything.
type RoomFilter struct {
    Building    string
    Floor       *int
    MinCapacity int
}

// List returns rooms matching the filter, ordered by building then name.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]*model.Room, error) {
    q := `SELECT ` + roomColumns + ` FROM rooms WHERE 1=1`
    args := make([]any, 0, 3)
    if f.Building != "" {
        q += " AND building = ?"
        args = append(args, f.Building)
    }
    if f.Floor != nil {
        q += " AND floor = ?"
        args = append(args, *f.Floor)
    }
    if f.MinCapacity > 0 {
        q += " AND capacity >= ?"
        args = append(args, f.MinCapacity)
    }
    q += " ORDER BY building, name"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]*model.Room, 0)
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, rm)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// Update overwrites the admin-editable columns of a room. It returns
// ErrRoomNotFound when the room does not exist.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
    equipment, err := json.Marshal(rm.Equipment)
    if err != nil {
        return err
    }
    if rm.Equipment == nil {
        equipment = []byte("[]")
    }
    const q = `UPDATE rooms
               SET name = ?, building = ?, floor = ?, capacity = ?, equipment = ?,
                   description = ?, room_type = ?, position_x = ?, position_y = ?
               WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Building, rm.Floor, rm.Capacity,
        equipment, rm.Description, rm.RoomType, rm.PositionX, rm.PositionY, rm.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Could also be an update to identical values; confirm existence.
        if _, err := r.GetByID(ctx, rm.ID); err != nil {
            return err
        }
    }
    return nil
}

// Delete removes a room, but only when no active (non-cancelled,
// future-ending) reservation references it. Both the guard query and
// the delete run in one transaction so a booking committed in between
// cannot orphan itself. Returns ErrActiveReservations when the guard
// fails and ErrRoomNotFound when the room does not exist.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
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
    const guard = `SELECT COUNT(*) FROM reservations
                   WHERE room_id = ? AND status <> 'CANCELLED' AND end_time > UTC_TIMESTAMP()
                   FOR UPDATE`
    var active int
    if err := tx.QueryRowContext(ctx, guard, id).Scan(&active); err != nil {
        return err
    }
    if active > 0 {
        return ErrActiveReservations
    }
    res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrRoomNotFound
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// MarkUsed flags a room as used: clears is_cleaned and stamps
// last_used_at. Called by the lifecycle manager when a reservation is
// confirmed.
func (r *RoomRepo) MarkUsed(ctx context.Context, id uint64, usedAt time.Time) error {
    const q = `UPDATE rooms SET is_cleaned = FALSE, last_used_at = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, usedAt.UTC(), id)
    return err
}

// Count returns the total number of rooms.
func (r *RoomRepo) Count(ctx context.Context) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n)
    return n, err
}

// PopularRoom pairs a room with how many reservations it has received.
type PopularRoom struct {
    Name     string `json:"name"`
    Building string `json:"building"`
    Count    int    `json:"count"`
}

// Popular returns the most reserved rooms, busiest first.
func (r *RoomRepo) Popular(ctx context.Context, limit int) ([]PopularRoom, error) {
    const q = `SELECT rm.name, rm.building, COUNT(res.id) AS cnt
               FROM rooms rm
               LEFT JOIN reservations res ON res.room_id = rm.id
               GROUP BY rm.id
               ORDER BY cnt DESC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]PopularRoom, 0, limit)
    for rows.Next() {
        var p PopularRoom
        if err := rows.Scan(&p.Name, &p.Building, &p.Count); err != nil {
            return nil, err
        }
        result = append(result, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// Buildings returns the distinct building names, for filter dropdowns.
func (r *RoomRepo) Buildings(ctx context.Context) ([]string, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT building FROM rooms ORDER BY building`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var names []string
    for rows.Next() {
        var b string
        if err := rows.Scan(&b); err != nil {
            return nil, err
        }
        names = append(names, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return names, nil
}
