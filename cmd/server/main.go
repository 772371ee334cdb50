package main

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"

    "github.com/mkarwowski/room-reservation/internal/booking"
    "github.com/mkarwowski/room-reservation/internal/config"
    "github.com/mkarwowski/room-reservation/internal/database"
    "github.com/mkarwowski/room-reservation/internal/handler"
    "github.com/mkarwowski/room-reservation/internal/metrics"
    "github.com/mkarwowski/room-reservation/internal/middleware"
    "github.com/mkarwowski/room-reservation/internal/queue"
    "github.com/mkarwowski/room-reservation/internal/repository"
    "github.com/mkarwowski/room-reservation/internal/router"
)

func main() {
    // .env is a development convenience; absence is not an error.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    users := repository.NewUserRepo(db)
    rooms := repository.NewRoomRepo(db)
    reservations := repository.NewReservationRepo(db)
    tokens := repository.NewTokenRepo(db)
    store := repository.NewStore(users, rooms, reservations)

    reg := prometheus.NewRegistry()
    collector := metrics.NewCollector(reg)
    svc := booking.NewService(store, collector)

    h := router.Handlers{
        Auth:        handler.NewAuthHandler(cfg, users, tokens),
        Rooms:       handler.NewRoomHandler(rooms, reservations),
        Reservation: handler.NewReservationHandler(cfg, svc, store),
        Calendar:    handler.NewCalendarHandler(reservations),
        Stats:       handler.NewStatsHandler(rooms, reservations),
        Admin:       handler.NewAdminHandler(cfg, users, reservations),
    }

    e := echo.New()
    e.HideBanner = true

    // Redis backs both the limiter and the room-catalogue cache. A nil
    // client disables both without affecting the rest of the server.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response cache disabled")
    }
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    e.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))
    router.Register(e, h, cfg.JWTSecret, cacheMW)

    // The consumer runs for the life of the process and reconnects on
    // broker failures.
    go func() {
        if err := queue.StartConfirmedConsumer(cfg.AMQPURL); err != nil {
            log.Printf("reservation consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
