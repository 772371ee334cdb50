package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mkarwowski/room-reservation/internal/booking"
    "github.com/mkarwowski/room-reservation/internal/config"
    "github.com/mkarwowski/room-reservation/internal/model"
    "github.com/mkarwowski/room-reservation/internal/queue"
    "github.com/mkarwowski/room-reservation/internal/repository"
    queue_publisher "github.com/mkarwowski/room-reservation/internal/service"
)

// ReservationHandler exposes the booking workflow and reservation
// lifecycle over HTTP. All business rules live in the booking service;
// this layer binds payloads, maps errors to status codes and publishes
// confirmation events.
type ReservationHandler struct {
    Cfg   config.Config
    Svc   *booking.Service
    Store *repository.Store
}

func NewReservationHandler(cfg config.Config, svc *booking.Service, store *repository.Store) *ReservationHandler {
    return &ReservationHandler{Cfg: cfg, Svc: svc, Store: store}
}

// actor pulls the authenticated identity the JWT middleware stored.
func actor(c echo.Context) (uint64, string) {
    uid, _ := c.Get("user_id").(uint64)
    role, _ := c.Get("role").(string)
    return uid, role
}

func pathID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}

// bookingError maps booking service sentinels onto HTTP responses.
func bookingError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, booking.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrRoomNotFound), errors.Is(err, booking.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, booking.ErrAuth):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    default:
        c.Logger().Errorf("booking: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// ----- DTOs -----

type createReservationReq struct {
    RoomID    uint64    `json:"room_id"`
    Title     string    `json:"title"`
    StartTime time.Time `json:"start_time"`
    EndTime   time.Time `json:"end_time"`
}

type statusReq struct {
    Status string `json:"status"`
}

type reservationResp struct {
    ID        uint64    `json:"id"`
    RoomID    uint64    `json:"room_id"`
    UserID    uint64    `json:"user_id"`
    Title     string    `json:"title"`
    StartTime time.Time `json:"start_time"`
    EndTime   time.Time `json:"end_time"`
    Status    string    `json:"status"`
    CreatedAt time.Time `json:"created_at"`
}

func toReservationResp(r *model.Reservation) reservationResp {
    return reservationResp{
        ID:        r.ID,
        RoomID:    r.RoomID,
        UserID:    r.UserID,
        Title:     r.Title,
        StartTime: r.StartTime,
        EndTime:   r.EndTime,
        Status:    r.Status,
        CreatedAt: r.CreatedAt,
    }
}

// Create books a room for the authenticated user.
func (h *ReservationHandler) Create(c echo.Context) error {
    uid, _ := actor(c)
    var req createReservationReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    res, err := h.Svc.CreateReservation(c.Request().Context(), uid, booking.CreateRequest{
        RoomID:    req.RoomID,
        Title:     req.Title,
        StartTime: req.StartTime,
        EndTime:   req.EndTime,
    })
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusCreated, toReservationResp(res))
}

// ListMine returns the authenticated user's reservations, newest first,
// enriched with room and user details.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    uid, _ := actor(c)
    details, err := h.Store.Reservations.ListByUser(c.Request().Context(), uid)
    if err != nil {
        c.Logger().Errorf("list reservations: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, details)
}

// Get returns a single reservation the actor owns or may administer.
func (h *ReservationHandler) Get(c echo.Context) error {
    uid, role := actor(c)
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    res, err := h.Svc.Get(c.Request().Context(), uid, role, id)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(res))
}

// SetStatus applies a lifecycle transition. On a successful transition
// into CONFIRMED a reservation.confirmed event is published in the
// background; publish failures never affect the response.
func (h *ReservationHandler) SetStatus(c echo.Context) error {
    uid, role := actor(c)
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req statusReq
    if err := c.Bind(&req); err != nil || req.Status == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
    }

    changed, err := h.Svc.SetStatus(c.Request().Context(), uid, role, id, req.Status)
    if err != nil {
        return bookingError(c, err)
    }

    // Re-confirming an already confirmed reservation is a no-op and
    // must not publish a duplicate event.
    if changed && req.Status == model.StatusConfirmed {
        go h.publishConfirmed(id)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// Delete hard-deletes a reservation when the caller is an admin.
// Regular users are redirected to cancellation semantics: their DELETE
// marks the reservation CANCELLED instead of removing the row.
func (h *ReservationHandler) Delete(c echo.Context) error {
    uid, role := actor(c)
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    if role == model.RoleAdmin {
        if err := h.Svc.Delete(c.Request().Context(), uid, role, id); err != nil {
            return bookingError(c, err)
        }
        return c.NoContent(http.StatusNoContent)
    }

    if _, err := h.Svc.SetStatus(c.Request().Context(), uid, role, id, model.StatusCancelled); err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.StatusCancelled})
}

// publishConfirmed loads the confirmed reservation with its room and user
// and publishes the event. Runs detached from any request.
func (h *ReservationHandler) publishConfirmed(reservationID uint64) {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()

    res, err := h.Store.Reservations.GetByID(ctx, reservationID)
    if err != nil {
        log.Printf("publish confirmed: load reservation %d: %v", reservationID, err)
        return
    }
    room, err := h.Store.Rooms.GetByID(ctx, res.RoomID)
    if err != nil {
        log.Printf("publish confirmed: load room %d: %v", res.RoomID, err)
        return
    }
    user, err := h.Store.Users.GetByID(ctx, res.UserID)
    if err != nil {
        log.Printf("publish confirmed: load user %d: %v", res.UserID, err)
        return
    }

    ev := queue.ReservationConfirmedEvent{
        ReservationID: res.ID,
        UserID:        user.ID,
        UserEmail:     user.Email,
        RoomID:        room.ID,
        RoomName:      room.Name,
        Building:      room.Building,
        Title:         res.Title,
        StartTime:     res.StartTime.UTC().Format(time.RFC3339),
        EndTime:       res.EndTime.UTC().Format(time.RFC3339),
        ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
    }
    if err := queue_publisher.PublishReservationConfirmed(ctx, h.Cfg.AMQPURL, ev); err != nil {
        log.Printf("publish confirmed: %v", err)
    }
}
