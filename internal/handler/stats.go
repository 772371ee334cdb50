package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/mkarwowski/room-reservation/internal/repository"
)

// StatsHandler serves the dashboard summary for the authenticated user.
type StatsHandler struct {
    Rooms        *repository.RoomRepo
    Reservations *repository.ReservationRepo
}

func NewStatsHandler(rooms *repository.RoomRepo, reservations *repository.ReservationRepo) *StatsHandler {
    return &StatsHandler{Rooms: rooms, Reservations: reservations}
}

type statsResp struct {
    UpcomingCount int                            `json:"upcoming_count"`
    TotalCount    int                            `json:"total_count"`
    RoomsCount    int                            `json:"rooms_count"`
    PopularRooms  []repository.PopularRoom       `json:"popular_rooms"`
    NextUp        []repository.ReservationDetail `json:"next_reservations"`
}

// Get assembles the dashboard numbers: the user's upcoming and lifetime
// reservation counts, the size of the room catalogue, the three most
// booked rooms and the user's next five reservations.
func (h *StatsHandler) Get(c echo.Context) error {
    uid, _ := actor(c)
    ctx := c.Request().Context()

    upcoming, err := h.Reservations.CountUpcomingByUser(ctx, uid)
    if err != nil {
        c.Logger().Errorf("stats upcoming: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    total, err := h.Reservations.CountByUser(ctx, uid)
    if err != nil {
        c.Logger().Errorf("stats total: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    roomCount, err := h.Rooms.Count(ctx)
    if err != nil {
        c.Logger().Errorf("stats rooms: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    popular, err := h.Rooms.Popular(ctx, 3)
    if err != nil {
        c.Logger().Errorf("stats popular: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    next, err := h.Reservations.NextByUser(ctx, uid, 5)
    if err != nil {
        c.Logger().Errorf("stats next: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    return c.JSON(http.StatusOK, statsResp{
        UpcomingCount: upcoming,
        TotalCount:    total,
        RoomsCount:    roomCount,
        PopularRooms:  popular,
        NextUp:        next,
    })
}
