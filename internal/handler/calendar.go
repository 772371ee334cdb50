package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mkarwowski/room-reservation/internal/repository"
)

// CalendarHandler serves the shared reservation calendar: every
// non-cancelled reservation across all rooms within a time window.
type CalendarHandler struct {
    Reservations *repository.ReservationRepo
}

func NewCalendarHandler(reservations *repository.ReservationRepo) *CalendarHandler {
    return &CalendarHandler{Reservations: reservations}
}

// Get returns reservations overlapping the requested window. The start
// and end query parameters are RFC 3339 timestamps; either may be
// omitted to leave that side of the window open.
func (h *CalendarHandler) Get(c echo.Context) error {
    var start, end time.Time
    if v := c.QueryParam("start"); v != "" {
        t, err := time.Parse(time.RFC3339, v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start"})
        }
        start = t
    }
    if v := c.QueryParam("end"); v != "" {
        t, err := time.Parse(time.RFC3339, v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end"})
        }
        end = t
    }
    if !start.IsZero() && !end.IsZero() && !end.After(start) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be after start"})
    }

    details, err := h.Reservations.ListBetween(c.Request().Context(), start, end)
    if err != nil {
        c.Logger().Errorf("calendar: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, details)
}
