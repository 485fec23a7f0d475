package main // Entry point package

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/group-invite-service/internal/broadcast"
    "github.com/iliyamo/group-invite-service/internal/clients"
    "github.com/iliyamo/group-invite-service/internal/config"
    "github.com/iliyamo/group-invite-service/internal/database"
    "github.com/iliyamo/group-invite-service/internal/guard"
    "github.com/iliyamo/group-invite-service/internal/handler"
    "github.com/iliyamo/group-invite-service/internal/model"
    "github.com/iliyamo/group-invite-service/internal/orchestrator"
    "github.com/iliyamo/group-invite-service/internal/queue"
    "github.com/iliyamo/group-invite-service/internal/router"
    "github.com/iliyamo/group-invite-service/internal/scheduler"
    queue_publisher "github.com/iliyamo/group-invite-service/internal/service"
    "github.com/iliyamo/group-invite-service/internal/store"
)

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win
    cfg := config.Load()

    var st store.InviteStore
    switch cfg.StoreDriver {
    case "memory":
        st = store.NewMemory()
    default:
        db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            log.Fatalf("open database: %v", err)
        }
        st = store.NewMySQL(db)
    }

    hub := broadcast.NewHub()
    orch := orchestrator.New(
        st,
        guard.New(),
        hub,
        clients.NewTicketLedger(cfg.TicketServiceURL),
        clients.NewPaymentCoordinator(cfg.PaymentServiceURL),
        clients.NewChatRoomBinding(cfg.ChatServiceURL),
        orchestrator.Config{
            TTL:            cfg.InviteTTL,
            PaymentTimeout: cfg.PaymentTimeout,
            CASRetries:     cfg.CASRetries,
            Currency:       cfg.Currency,
        },
    )
    orch.OnCompleted(func(s *model.InviteSession) {
        seats := make([]string, 0, len(s.RequestedSeats))
        for _, seat := range s.RequestedSeats {
            seats = append(seats, seat.Number)
        }
        ev := queue.InviteCompletedEvent{
            InviteID:    s.ID,
            HostUserID:  s.HostUserID,
            MovieID:     s.MovieID,
            TheaterID:   s.TheaterID,
            ScreenID:    s.ScreenID,
            ShowtimeID:  s.ShowtimeID,
            ShowDate:    s.ShowDate,
            ShowTime:    s.ShowTime,
            SeatNumbers: seats,
            Slots:       s.TotalSlots,
            TotalAmount: s.TotalAmount,
            PaidAmount:  s.PaidAmount,
            Currency:    s.Currency,
            CompletedAt: time.Now().UTC().Format(time.RFC3339),
        }
        if err := queue_publisher.PublishInviteCompleted(context.Background(), ev); err != nil {
            log.Printf("publish invite.completed failed (ignored): %v", err)
        }
    })

    // Expiration authority: the client countdown is a display hint only.
    sweeper := scheduler.New(st, orch, cfg.SweepInterval)
    go sweeper.Run(context.Background())

    // Background consumer mirrors completed groups into logs/invite.log.
    go func() {
        if err := queue.StartInviteConsumer(); err != nil {
            log.Printf("invite consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e)

    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting and caching disabled")
    }
    router.RegisterInvites(e, handler.NewInviteHandler(orch), hub, cfg.JWTSecret, rdb, config.LoadRateLimitConfig(), config.LoadCacheConfig())

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
