package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // .env loader for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/printhub/printhub/internal/config"
    "github.com/printhub/printhub/internal/database"
    "github.com/printhub/printhub/internal/handler"
    "github.com/printhub/printhub/internal/middleware"
    "github.com/printhub/printhub/internal/queue"
    "github.com/printhub/printhub/internal/repository"
    "github.com/printhub/printhub/internal/router"
    "github.com/printhub/printhub/internal/service"
)

func main() {
    // Load .env if present; real deployments set the environment directly.
    if err := godotenv.Load(); err != nil {
        log.Printf("no .env file loaded: %v", err)
    }
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer func() { _ = db.Close() }()

    // Redis backs the unlock rate limiter and the catalogue response
    // cache. A nil client disables both; the core protocol does not
    // depend on Redis.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable: rate limiting and response caching disabled")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    boxes := repository.NewBoxRepo(db)
    unlocks := repository.NewUnlockRepo(db)
    models := repository.NewPrintModelRepo(db)
    orders := repository.NewOrderRepo(db)
    stats := repository.NewStatsRepo(db)

    unlockSvc := service.NewUnlockService(users, boxes, unlocks)
    orderSvc := service.NewOrderService(orders, boxes)

    authH := handler.NewAuthHandler(cfg, users, tokens)
    userH := handler.NewUserHandler(cfg, users, tokens, boxes, unlocks)
    boxH := handler.NewBoxHandler(boxes, users, unlocks, unlockSvc)
    modelH := handler.NewPrintModelHandler(models)
    orderH := handler.NewOrderHandler(orders, models, boxes, orderSvc)
    unlockH := handler.NewUnlockHandler(unlocks)
    statsH := handler.NewStatsHandler(stats)

    var unlockLimit, cache echo.MiddlewareFunc
    if rdb != nil {
        unlockLimit = middleware.NewTokenBucket(config.LoadUnlockRateLimitConfig(), rdb)
        cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    }

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterPublic(e, modelH, cache)
    router.RegisterUser(e, cfg.JWTSecret, userH, boxH, orderH, unlockLimit)
    router.RegisterAdmin(e, cfg.JWTSecret, userH, boxH, modelH, orderH, unlockH, statsH)

    // Consume box.unlocked events into logs/unlock.log. The consumer
    // reconnects on its own; a missing broker only costs the audit log.
    go func() {
        if err := queue.StartUnlockConsumer(); err != nil {
            log.Printf("unlock consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
