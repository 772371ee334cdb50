package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mkarwowski/room-reservation/internal/config"
    "github.com/mkarwowski/room-reservation/internal/model"
    "github.com/mkarwowski/room-reservation/internal/repository"
)

// AdminHandler exposes management endpoints. The router mounts every
// route here behind RequireRole(ADMIN).
type AdminHandler struct {
    Cfg          config.Config
    Users        *repository.UserRepo
    Reservations *repository.ReservationRepo
}

func NewAdminHandler(cfg config.Config, users *repository.UserRepo, reservations *repository.ReservationRepo) *AdminHandler {
    return &AdminHandler{Cfg: cfg, Users: users, Reservations: reservations}
}

type adminUserResp struct {
    ID        uint64    `json:"id"`
    Email     string    `json:"email"`
    Name      string    `json:"name"`
    Role      string    `json:"role"`
    IsActive  bool      `json:"is_active"`
    CreatedAt time.Time `json:"created_at"`
}

// ListUsers returns every account, newest first. Password hashes never
// leave the repository layer.
func (h *AdminHandler) ListUsers(c echo.Context) error {
    users, err := h.Users.List(c.Request().Context())
    if err != nil {
        c.Logger().Errorf("list users: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]adminUserResp, 0, len(users))
    for _, u := range users {
        out = append(out, adminUserResp{
            ID:        u.ID,
            Email:     u.Email,
            Name:      u.Name,
            Role:      u.Role,
            IsActive:  u.IsActive,
            CreatedAt: u.CreatedAt,
        })
    }
    return c.JSON(http.StatusOK, out)
}

type adminCreateUserReq struct {
    Email    string `json:"email"`
    Name     string `json:"name"`
    Password string `json:"password"`
    Role     string `json:"role"`
}

// CreateUser provisions an account with an explicit role. Unlike
// self-registration, admins may create other admins.
func (h *AdminHandler) CreateUser(c echo.Context) error {
    var req adminCreateUserReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    reg := registerReq{Email: req.Email, Name: req.Name, Password: req.Password}
    if msg := validateRegistration(&reg); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role == "" {
        role = model.RoleUser
    }
    if role != model.RoleUser && role != model.RoleAdmin {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
    }

    uid, err := h.Users.Create(c.Request().Context(), reg.Email, reg.Name, reg.Password, role, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrEmailExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        c.Logger().Errorf("admin create user: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }
    return c.JSON(http.StatusCreated, adminUserResp{
        ID: uid, Email: reg.Email, Name: reg.Name, Role: role, IsActive: true,
    })
}

// ListReservations returns every reservation with room and user details,
// newest first, paged with limit/offset query parameters.
func (h *AdminHandler) ListReservations(c echo.Context) error {
    limit := 50
    offset := 0
    if v := c.QueryParam("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
            limit = n
        }
    }
    if v := c.QueryParam("offset"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n >= 0 {
            offset = n
        }
    }

    details, err := h.Reservations.ListAll(c.Request().Context(), limit, offset)
    if err != nil {
        c.Logger().Errorf("admin list reservations: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, details)
}
