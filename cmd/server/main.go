package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shiva/paratransit-scheduler/config"
	"github.com/shiva/paratransit-scheduler/internal/cache"
	"github.com/shiva/paratransit-scheduler/internal/directions"
	"github.com/shiva/paratransit-scheduler/internal/dispatcher"
	"github.com/shiva/paratransit-scheduler/internal/handler"
	"github.com/shiva/paratransit-scheduler/internal/middleware"
	"github.com/shiva/paratransit-scheduler/internal/scheduler"
	"github.com/shiva/paratransit-scheduler/internal/taskstore"
	"github.com/shiva/paratransit-scheduler/internal/tzresolver"
	rediscli "github.com/shiva/paratransit-scheduler/pkg/cache"
	"github.com/shiva/paratransit-scheduler/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to PostgreSQL (task store + audit log) ──
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("✓ PostgreSQL connected")

	// ── Connect to Redis, only if the directions cache needs it ──
	var redisClient *redis.Client
	if cfg.Cache.Enabled && cfg.Cache.Type == "mongodb" {
		redisClient, err = rediscli.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("✓ Redis connected")
	}

	// ── Build the directions cache, the directions client, and the scheduler ──
	directionsCache, err := cache.New(cache.Config{
		Enabled:  cfg.Cache.Enabled,
		Backend:  cache.BackendType(cfg.Cache.Type),
		Capacity: cfg.Cache.MemCapacity,
		TTL:      cfg.Cache.TTL,
		Redis:    redisClient,
	})
	if err != nil {
		log.Fatalf("failed to build directions cache: %v", err)
	}

	routingHTTPClient := &http.Client{Timeout: cfg.Routing.Timeout}
	directionsClient := directions.New(routingHTTPClient, cfg.Routing.BaseURL, cfg.Routing.APIKey, directionsCache)

	margins := scheduler.Margins{
		BeforePickup:     cfg.Scheduler.DefaultBeforePickup,
		AfterPickup:      cfg.Scheduler.DefaultAfterPickup,
		DropoffUnloading: cfg.Scheduler.DefaultDropoffUnloading,
	}
	sched := scheduler.New(directionsClient, tzresolver.DefaultZipTable(), margins)

	// ── Task store + dispatcher ─────────────────────────
	store := taskstore.New(pgPool, cfg.Task.TTL)

	scheduleHandler := handler.NewScheduleHandler(sched, margins, store)

	disp := dispatcher.New(store, scheduleHandler, dispatcher.Config{
		Interval:         cfg.Processor.Interval,
		BatchSize:        cfg.Processor.BatchSize,
		PoolSize:         cfg.Processor.ThreadNumber,
		ReclaimThreshold: cfg.Processor.ReclaimThreshold,
	})
	disp.Start()
	defer disp.Stop()

	// ── Setup router ─────────────────────────────────────
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler(pgPool, redisClient, directionsClient)).Methods(http.MethodGet)
	router.HandleFunc("/", scheduleHandler.Root).Methods(http.MethodGet)

	api := router.PathPrefix("/v1_webapp_auto_scheduling").Subrouter()
	api.HandleFunc("", scheduleHandler.Schedule).Methods(http.MethodPost)
	api.HandleFunc("/enqueue", scheduleHandler.Enqueue).Methods(http.MethodPost)
	api.HandleFunc("/{taskId}", scheduleHandler.TaskStatus).Methods(http.MethodGet)

	var h http.Handler = router
	h = middleware.OriginAllowlist(cfg.Server.EnableOriginCheck, cfg.Server.AcceptableOrigins)(h)
	h = middleware.RequestLogger(h)
	h = middleware.Recoverer(h)

	// ── Start HTTP server ────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler checks PostgreSQL, (if configured) Redis, and the
// directions provider's reachability.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client, directionsClient *directions.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if redisClient != nil {
			if err := rediscli.HealthCheck(r.Context(), redisClient); err != nil {
				resp.Status = "degraded"
				resp.Services["redis"] = "unhealthy: " + err.Error()
			} else {
				resp.Services["redis"] = "healthy"
			}
		} else {
			resp.Services["cache"] = "in-memory"
		}

		if err := directionsClient.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Services["directions"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["directions"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
