package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework routing

    "github.com/mkarwowski/room-reservation/internal/handler"
    "github.com/mkarwowski/room-reservation/internal/middleware"
    "github.com/mkarwowski/room-reservation/internal/model"
)

// Handlers groups everything the router needs to wire the HTTP surface.
type Handlers struct {
    Auth        *handler.AuthHandler
    Rooms       *handler.RoomHandler
    Reservation *handler.ReservationHandler
    Calendar    *handler.CalendarHandler
    Stats       *handler.StatsHandler
    Admin       *handler.AdminHandler
}

// Register wires every route onto the Echo instance. cacheMW fronts the
// public room catalogue; pass nil to serve it uncached.
func Register(e *echo.Echo, h Handlers, jwtSecret string, cacheMW echo.MiddlewareFunc) {
    e.GET("/healthz", handler.Health)

    // Session endpoints live under /v1/auth and issue or exchange tokens.
    auth := e.Group("/v1/auth")
    auth.POST("/register", h.Auth.Register)
    auth.POST("/login", h.Auth.Login)
    auth.POST("/refresh", h.Auth.Refresh)
    auth.POST("/refresh-access", h.Auth.RefreshAccess)
    // Logout accepts either a bearer token or a refresh token in the
    // body, so it stays outside the JWT middleware.
    auth.POST("/logout", h.Auth.Logout)
    e.POST("/v1/logout", h.Auth.Logout)

    // Public room catalogue, browsable by guests.
    if cacheMW != nil {
        e.GET("/v1/rooms", h.Rooms.List, cacheMW)
    } else {
        e.GET("/v1/rooms", h.Rooms.List)
    }
    e.GET("/v1/rooms/buildings", h.Rooms.Buildings)
    e.GET("/v1/rooms/:id", h.Rooms.Get)

    // Everything under the protected group requires a valid access token.
    protected := e.Group("/v1")
    protected.Use(middleware.JWTAuth(jwtSecret))
    protected.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))

    protected.GET("/me", h.Auth.Me)

    protected.POST("/reservations", h.Reservation.Create)
    protected.GET("/my-reservations", h.Reservation.ListMine)
    protected.GET("/reservations/:id", h.Reservation.Get)
    protected.PATCH("/reservations/:id/status", h.Reservation.SetStatus)
    protected.DELETE("/reservations/:id", h.Reservation.Delete)

    protected.GET("/calendar", h.Calendar.Get)
    protected.GET("/stats", h.Stats.Get)

    // Management endpoints: room mutations and the admin views.
    admin := protected.Group("", middleware.RequireRole(model.RoleAdmin))
    admin.POST("/rooms", h.Rooms.Create)
    admin.PATCH("/rooms/:id", h.Rooms.Update)
    admin.DELETE("/rooms/:id", h.Rooms.Delete)
    admin.GET("/admin/users", h.Admin.ListUsers)
    admin.POST("/admin/users", h.Admin.CreateUser)
    admin.GET("/admin/reservations", h.Admin.ListReservations)
}
