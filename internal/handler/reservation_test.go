package handler

import (
    "context"
    "database/sql"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strconv"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mkarwowski/room-reservation/internal/booking"
    "github.com/mkarwowski/room-reservation/internal/model"
    "github.com/mkarwowski/room-reservation/internal/repository"
)

// memGateway is a minimal in-memory repository.Gateway for exercising the
// HTTP layer against the real booking service.
type memGateway struct {
    rooms        map[uint64]*model.Room
    users        map[uint64]model.User
    reservations map[uint64]*model.Reservation
    nextID       uint64
}

func newMemGateway() *memGateway {
    g := &memGateway{
        rooms:        map[uint64]*model.Room{},
        users:        map[uint64]model.User{},
        reservations: map[uint64]*model.Reservation{},
        nextID:       1,
    }
    g.rooms[1] = &model.Room{ID: 1, Name: "118", Building: "A", Floor: 1, Capacity: 90}
    g.users[1] = model.User{ID: 1, Email: "u@example.edu", Role: model.RoleUser, IsActive: true}
    g.users[2] = model.User{ID: 2, Email: "u2@example.edu", Role: model.RoleUser, IsActive: true}
    g.users[9] = model.User{ID: 9, Email: "a@example.edu", Role: model.RoleAdmin, IsActive: true}
    return g
}

func (g *memGateway) FindRoomByID(ctx context.Context, id uint64) (*model.Room, error) {
    rm, ok := g.rooms[id]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    return rm, nil
}

func (g *memGateway) FindUserByID(ctx context.Context, id uint64) (model.User, error) {
    u, ok := g.users[id]
    if !ok {
        return model.User{}, sql.ErrNoRows
    }
    return u, nil
}

func (g *memGateway) FindReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    res, ok := g.reservations[id]
    if !ok {
        return nil, repository.ErrReservationNotFound
    }
    cp := *res
    return &cp, nil
}

func (g *memGateway) FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
    var out []model.Reservation
    for _, res := range g.reservations {
        if res.RoomID != roomID || res.Status == model.StatusCancelled || (excludeID != 0 && res.ID == excludeID) {
            continue
        }
        if res.StartTime.Before(end) && start.Before(res.EndTime) {
            out = append(out, *res)
        }
    }
    return out, nil
}

func (g *memGateway) InsertReservation(ctx context.Context, res *model.Reservation) error {
    res.ID = g.nextID
    g.nextID++
    cp := *res
    g.reservations[res.ID] = &cp
    return nil
}

func (g *memGateway) UpdateReservationStatus(ctx context.Context, id uint64, status string) error {
    res, ok := g.reservations[id]
    if !ok {
        return repository.ErrReservationNotFound
    }
    res.Status = status
    return nil
}

func (g *memGateway) DeleteReservation(ctx context.Context, id uint64) error {
    if _, ok := g.reservations[id]; !ok {
        return repository.ErrReservationNotFound
    }
    delete(g.reservations, id)
    return nil
}

func (g *memGateway) MarkRoomUsed(ctx context.Context, roomID uint64, usedAt time.Time) error {
    return nil
}

func newReservationHandler(g *memGateway) *ReservationHandler {
    return &ReservationHandler{Svc: booking.NewService(g, nil)}
}

// call builds an Echo context for a JSON request carrying the actor's
// identity and optional :id path parameter, then invokes fn.
func call(t *testing.T, fn echo.HandlerFunc, method, body string, uid uint64, role string, id uint64) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(method, "/", strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", uid)
    c.Set("role", role)
    if id != 0 {
        c.SetParamNames("id")
        c.SetParamValues(strconv.FormatUint(id, 10))
    }
    if err := fn(c); err != nil {
        t.Fatalf("handler returned error: %v", err)
    }
    return rec
}

func futureSlot(hours int) (string, string) {
    start := time.Now().UTC().Add(time.Duration(hours) * time.Hour).Truncate(time.Minute)
    return start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339)
}

func createBody(roomID uint64, title, start, end string) string {
    b, _ := json.Marshal(map[string]any{
        "room_id":    roomID,
        "title":      title,
        "start_time": start,
        "end_time":   end,
    })
    return string(b)
}

func TestCreateEndpoint(t *testing.T) {
    start, end := futureSlot(24)

    t.Run("success returns 201 and PENDING", func(t *testing.T) {
        h := newReservationHandler(newMemGateway())
        rec := call(t, h.Create, http.MethodPost, createBody(1, "Algorithms", start, end), 1, model.RoleUser, 0)
        if rec.Code != http.StatusCreated {
            t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
        }
        var resp reservationResp
        if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
            t.Fatalf("bad response body: %v", err)
        }
        if resp.Status != model.StatusPending || resp.ID == 0 {
            t.Fatalf("resp = %+v, want PENDING with an ID", resp)
        }
    })

    t.Run("validation failure returns 400", func(t *testing.T) {
        h := newReservationHandler(newMemGateway())
        past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
        rec := call(t, h.Create, http.MethodPost, createBody(1, "x", past, end), 1, model.RoleUser, 0)
        if rec.Code != http.StatusBadRequest {
            t.Fatalf("status = %d, want 400", rec.Code)
        }
    })

    t.Run("unknown room returns 404", func(t *testing.T) {
        h := newReservationHandler(newMemGateway())
        rec := call(t, h.Create, http.MethodPost, createBody(99, "x", start, end), 1, model.RoleUser, 0)
        if rec.Code != http.StatusNotFound {
            t.Fatalf("status = %d, want 404", rec.Code)
        }
    })

    t.Run("conflict returns 409", func(t *testing.T) {
        g := newMemGateway()
        h := newReservationHandler(g)
        if rec := call(t, h.Create, http.MethodPost, createBody(1, "first", start, end), 1, model.RoleUser, 0); rec.Code != http.StatusCreated {
            t.Fatalf("setup booking failed with %d", rec.Code)
        }
        rec := call(t, h.Create, http.MethodPost, createBody(1, "second", start, end), 2, model.RoleUser, 0)
        if rec.Code != http.StatusConflict {
            t.Fatalf("status = %d, want 409", rec.Code)
        }
    })

    t.Run("malformed body returns 400", func(t *testing.T) {
        h := newReservationHandler(newMemGateway())
        rec := call(t, h.Create, http.MethodPost, "{not json", 1, model.RoleUser, 0)
        if rec.Code != http.StatusBadRequest {
            t.Fatalf("status = %d, want 400", rec.Code)
        }
    })
}

func seedReservation(g *memGateway, userID uint64) uint64 {
    id := g.nextID
    g.nextID++
    start := time.Now().UTC().Add(24 * time.Hour)
    g.reservations[id] = &model.Reservation{
        ID: id, RoomID: 1, UserID: userID, Title: "seeded",
        StartTime: start, EndTime: start.Add(time.Hour), Status: model.StatusPending,
    }
    return id
}

func TestSetStatusEndpoint(t *testing.T) {
    t.Run("owner cancels", func(t *testing.T) {
        g := newMemGateway()
        h := newReservationHandler(g)
        id := seedReservation(g, 1)
        rec := call(t, h.SetStatus, http.MethodPatch, `{"status":"CANCELLED"}`, 1, model.RoleUser, id)
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
        }
        if g.reservations[id].Status != model.StatusCancelled {
            t.Fatalf("reservation status = %q, want CANCELLED", g.reservations[id].Status)
        }
    })

    t.Run("non-owner gets 403", func(t *testing.T) {
        g := newMemGateway()
        h := newReservationHandler(g)
        id := seedReservation(g, 1)
        rec := call(t, h.SetStatus, http.MethodPatch, `{"status":"CANCELLED"}`, 2, model.RoleUser, id)
        if rec.Code != http.StatusForbidden {
            t.Fatalf("status = %d, want 403", rec.Code)
        }
    })

    t.Run("unknown reservation gets 404", func(t *testing.T) {
        h := newReservationHandler(newMemGateway())
        rec := call(t, h.SetStatus, http.MethodPatch, `{"status":"CANCELLED"}`, 1, model.RoleUser, 404)
        if rec.Code != http.StatusNotFound {
            t.Fatalf("status = %d, want 404", rec.Code)
        }
    })

    t.Run("re-confirming a confirmed reservation publishes nothing", func(t *testing.T) {
        g := newMemGateway()
        // The nil Store turns any publish attempt into a crash, so a
        // passing run proves the no-op stayed side-effect free.
        h := newReservationHandler(g)
        id := seedReservation(g, 1)
        g.reservations[id].Status = model.StatusConfirmed
        rec := call(t, h.SetStatus, http.MethodPatch, `{"status":"CONFIRMED"}`, 1, model.RoleUser, id)
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
        }
        if g.reservations[id].Status != model.StatusConfirmed {
            t.Fatalf("reservation status = %q, want CONFIRMED", g.reservations[id].Status)
        }
        // Give a stray publish goroutine a chance to blow up before the
        // test ends.
        time.Sleep(10 * time.Millisecond)
    })

    t.Run("missing status gets 400", func(t *testing.T) {
        g := newMemGateway()
        h := newReservationHandler(g)
        id := seedReservation(g, 1)
        rec := call(t, h.SetStatus, http.MethodPatch, `{}`, 1, model.RoleUser, id)
        if rec.Code != http.StatusBadRequest {
            t.Fatalf("status = %d, want 400", rec.Code)
        }
    })
}

func TestDeleteEndpoint(t *testing.T) {
    t.Run("admin hard-deletes with 204", func(t *testing.T) {
        g := newMemGateway()
        h := newReservationHandler(g)
        id := seedReservation(g, 1)
        rec := call(t, h.Delete, http.MethodDelete, "", 9, model.RoleAdmin, id)
        if rec.Code != http.StatusNoContent {
            t.Fatalf("status = %d, want 204", rec.Code)
        }
        if _, ok := g.reservations[id]; ok {
            t.Fatal("reservation still present after admin delete")
        }
    })

    t.Run("user delete becomes cancellation", func(t *testing.T) {
        g := newMemGateway()
        h := newReservationHandler(g)
        id := seedReservation(g, 1)
        rec := call(t, h.Delete, http.MethodDelete, "", 1, model.RoleUser, id)
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
        }
        res, ok := g.reservations[id]
        if !ok {
            t.Fatal("user delete must not remove the row")
        }
        if res.Status != model.StatusCancelled {
            t.Fatalf("reservation status = %q, want CANCELLED", res.Status)
        }
    })

    t.Run("invalid id gets 400", func(t *testing.T) {
        h := newReservationHandler(newMemGateway())
        e := echo.New()
        req := httptest.NewRequest(http.MethodDelete, "/", nil)
        rec := httptest.NewRecorder()
        c := e.NewContext(req, rec)
        c.Set("user_id", uint64(9))
        c.Set("role", model.RoleAdmin)
        c.SetParamNames("id")
        c.SetParamValues("not-a-number")
        if err := h.Delete(c); err != nil {
            t.Fatalf("handler returned error: %v", err)
        }
        if rec.Code != http.StatusBadRequest {
            t.Fatalf("status = %d, want 400", rec.Code)
        }
    })
}
