package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"trip-console/internal/adapters/cache"
	"trip-console/internal/adapters/planner"
	"trip-console/internal/api"
	"trip-console/internal/config"
	"trip-console/internal/live"
	"trip-console/internal/mapview"
	"trip-console/internal/platform/db"
	"trip-console/internal/ports"
	"trip-console/internal/services"
	"trip-console/internal/view"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires the planner client (optionally cached) behind ports, starts the
// orchestrator and map, and serves the console.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	baseURL := config.Get("PLANNER_BASE_URL", "")
	if baseURL == "" {
		log.Fatal("PLANNER_BASE_URL is required")
	}
	port := config.Get("PORT", "8080")
	timeout := config.GetDuration("PLANNER_TIMEOUT", 15*time.Second)

	client, err := planner.NewClient(baseURL,
		planner.WithMaxAttempts(config.GetInt("PLANNER_MAX_ATTEMPTS", 1)),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tripPlanner ports.TripPlanner = client
	responseCache, closeCache, err := openResponseCache(ctx, config.Get("CACHE_BACKEND", "none"))
	if err != nil {
		log.Fatal(err)
	}
	defer closeCache()
	if responseCache != nil {
		tripPlanner = planner.NewCachingPlanner(client, responseCache, config.GetDuration("CACHE_TTL", 10*time.Minute), client.BaseURL())
	}

	orch := services.NewTripOrchestrator(tripPlanner, timeout)
	defer orch.Close()

	handle := mapview.NewHandle(mapview.Size{
		Width:  config.GetInt("MAP_WIDTH", mapview.DefaultSize.Width),
		Height: config.GetInt("MAP_HEIGHT", mapview.DefaultSize.Height),
	})
	orch.BindMap(mapview.NewSynchronizer(handle))

	hub := live.NewHub()
	go hub.Run(ctx)
	orch.Subscribe(func(s services.State) {
		hub.Broadcast(live.StateType, view.Build(s))
	})

	if err := orch.Mount(); err != nil {
		log.Printf("initial recalculation rejected: %v", err)
	}

	ws := live.Handler(hub, orch, func() any { return view.Build(orch.Snapshot()) })
	router := api.NewRouter(orch, handle.Ensure(), ws)

	log.Printf("Server listening addr=:%s planner=%s", port, baseURL)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

// openResponseCache builds the configured response cache. A nil cache means
// caching is disabled.
func openResponseCache(ctx context.Context, backend string) (ports.ResponseCache, func(), error) {
	noop := func() {}

	switch backend {
	case "", "none":
		return nil, noop, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: config.Get("REDIS_ADDR", "localhost:6379")})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("open response cache: redis ping: %w", err)
		}
		log.Printf("response cache backend=redis addr=%s", rdb.Options().Addr)
		return cache.NewRedisResponseCache(rdb), func() { rdb.Close() }, nil

	case "postgres":
		databaseURL := config.Get("DATABASE_URL", "")
		if databaseURL == "" {
			return nil, noop, errors.New("open response cache: DATABASE_URL is required for postgres backend")
		}
		conn, err := db.Open(databaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("open response cache: %w", err)
		}
		if err := cache.InitSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, noop, fmt.Errorf("open response cache: %w", err)
		}
		log.Println("response cache backend=postgres")
		return cache.NewSQLResponseCache(conn), func() { conn.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("open response cache: unknown CACHE_BACKEND %q", backend)
	}
}
