package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mkarwowski/room-reservation/internal/model"
    "github.com/mkarwowski/room-reservation/internal/repository"
)

// RoomHandler serves the room catalogue. Listing and detail are public;
// create, update and delete are restricted to admins by the router.
type RoomHandler struct {
    Rooms        *repository.RoomRepo
    Reservations *repository.ReservationRepo
}

func NewRoomHandler(rooms *repository.RoomRepo, reservations *repository.ReservationRepo) *RoomHandler {
    return &RoomHandler{Rooms: rooms, Reservations: reservations}
}

// ----- DTOs -----

type roomReq struct {
    Name        string   `json:"name"`
    Building    string   `json:"building"`
    Floor       int      `json:"floor"`
    Capacity    int      `json:"capacity"`
    Equipment   []string `json:"equipment"`
    Description *string  `json:"description"`
    RoomType    string   `json:"room_type"`
    PositionX   *float64 `json:"position_x"`
    PositionY   *float64 `json:"position_y"`
}

type roomResp struct {
    ID          uint64     `json:"id"`
    Name        string     `json:"name"`
    Building    string     `json:"building"`
    Floor       int        `json:"floor"`
    Capacity    int        `json:"capacity"`
    Equipment   []string   `json:"equipment"`
    Description *string    `json:"description,omitempty"`
    RoomType    string     `json:"room_type"`
    IsCleaned   bool       `json:"is_cleaned"`
    LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
    PositionX   *float64   `json:"position_x,omitempty"`
    PositionY   *float64   `json:"position_y,omitempty"`
}

func toRoomResp(rm *model.Room) roomResp {
    eq := rm.Equipment
    if eq == nil {
        eq = []string{}
    }
    return roomResp{
        ID:          rm.ID,
        Name:        rm.Name,
        Building:    rm.Building,
        Floor:       rm.Floor,
        Capacity:    rm.Capacity,
        Equipment:   eq,
        Description: rm.Description,
        RoomType:    rm.RoomType,
        IsCleaned:   rm.IsCleaned,
        LastUsedAt:  rm.LastUsedAt,
        PositionX:   rm.PositionX,
        PositionY:   rm.PositionY,
    }
}

// validateRoom checks a create/update payload and returns a user-facing
// message on failure.
func validateRoom(req *roomReq) string {
    req.Name = strings.TrimSpace(req.Name)
    req.Building = strings.TrimSpace(req.Building)
    req.RoomType = strings.ToUpper(strings.TrimSpace(req.RoomType))
    if req.RoomType == "" {
        req.RoomType = model.RoomTypeLecture
    }
    switch {
    case req.Name == "" || req.Building == "":
        return "name and building required"
    case req.Capacity <= 0:
        return "capacity must be positive"
    case !model.ValidRoomType(req.RoomType):
        return "unknown room type"
    }
    return ""
}

func (req *roomReq) toModel() *model.Room {
    return &model.Room{
        Name:        req.Name,
        Building:    req.Building,
        Floor:       req.Floor,
        Capacity:    req.Capacity,
        Equipment:   req.Equipment,
        Description: req.Description,
        RoomType:    req.RoomType,
        PositionX:   req.PositionX,
        PositionY:   req.PositionY,
    }
}

// List returns rooms ordered by building then name. Optional query
// parameters: building, floor, min_capacity. This route sits behind the
// Redis response cache.
func (h *RoomHandler) List(c echo.Context) error {
    var f repository.RoomFilter
    f.Building = strings.TrimSpace(c.QueryParam("building"))
    if v := c.QueryParam("floor"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid floor"})
        }
        f.Floor = &n
    }
    if v := c.QueryParam("min_capacity"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil || n < 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_capacity"})
        }
        f.MinCapacity = n
    }

    rooms, err := h.Rooms.List(c.Request().Context(), f)
    if err != nil {
        c.Logger().Errorf("list rooms: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]roomResp, 0, len(rooms))
    for _, rm := range rooms {
        out = append(out, toRoomResp(rm))
    }
    return c.JSON(http.StatusOK, out)
}

// Buildings returns the distinct building names, for filter dropdowns.
func (h *RoomHandler) Buildings(c echo.Context) error {
    names, err := h.Rooms.Buildings(c.Request().Context())
    if err != nil {
        c.Logger().Errorf("list buildings: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, names)
}

// Get returns one room together with its upcoming (not yet ended,
// not cancelled) reservations.
func (h *RoomHandler) Get(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()

    rm, err := h.Rooms.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        c.Logger().Errorf("get room: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    upcoming, err := h.Reservations.UpcomingByRoom(ctx, id)
    if err != nil {
        c.Logger().Errorf("room upcoming: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    resList := make([]reservationResp, 0, len(upcoming))
    for i := range upcoming {
        resList = append(resList, toReservationResp(&upcoming[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "room":     toRoomResp(rm),
        "upcoming": resList,
    })
}

// Create adds a room to the catalogue (admin only).
func (h *RoomHandler) Create(c echo.Context) error {
    var req roomReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if msg := validateRoom(&req); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    rm := req.toModel()
    if err := h.Rooms.Create(c.Request().Context(), rm); err != nil {
        c.Logger().Errorf("create room: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
    }
    return c.JSON(http.StatusCreated, toRoomResp(rm))
}

// Update replaces a room's attributes (admin only).
func (h *RoomHandler) Update(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req roomReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if msg := validateRoom(&req); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    rm := req.toModel()
    rm.ID = id
    if err := h.Rooms.Update(c.Request().Context(), rm); err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        c.Logger().Errorf("update room: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
    }
    return c.JSON(http.StatusOK, toRoomResp(rm))
}

// Delete removes a room (admin only). Rooms with active reservations
// are protected; the guard surfaces as HTTP 409.
func (h *RoomHandler) Delete(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Rooms.Delete(c.Request().Context(), id); err != nil {
        switch {
        case errors.Is(err, repository.ErrRoomNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        case errors.Is(err, repository.ErrActiveReservations):
            return c.JSON(http.StatusConflict, echo.Map{"error": "room has active reservations"})
        }
        c.Logger().Errorf("delete room: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete room failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
