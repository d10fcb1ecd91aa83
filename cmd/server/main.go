package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"carpark-data-service/internal/adapters/cache"
	"carpark-data-service/internal/adapters/lta"
	"carpark-data-service/internal/adapters/repositories"
	"carpark-data-service/internal/adapters/ura"
	"carpark-data-service/internal/api"
	"carpark-data-service/internal/config"
	"carpark-data-service/internal/platform/db"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/projection"
	"carpark-data-service/internal/services"
)

// main is the application composition root.
// It wires the agency API clients, Postgres, Redis and the projection
// engine behind ports, then starts the HTTP server and refresh schedules.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	port := config.Get("APP_PORT", "8080")
	redisAddr := config.Get("REDIS_ADDR", "localhost:6379")
	cacheTTL := config.GetDuration("AVAIL_CACHE_TTL", time.Minute)

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	uraKey := strings.TrimSpace(os.Getenv("URA_ACCESS_KEY"))
	ltaKey := strings.TrimSpace(os.Getenv("LTA_ACCOUNT_KEY"))
	if uraKey == "" && ltaKey == "" {
		log.Fatal("at least one of URA_ACCESS_KEY and LTA_ACCOUNT_KEY is required")
	}

	pg, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()

	if err := repositories.InitSchema(pg); err != nil {
		log.Fatal(err)
	}
	repo := repositories.NewPostgresCarparkRepository(pg)

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Cache misses degrade to live fetches, so a broken Redis is a
		// warning rather than a startup failure.
		log.Printf("redis unreachable at %s: %v", redisAddr, err)
	}
	availCache := cache.NewRedisAvailabilityCache(redisClient, cacheTTL)

	proj := projection.NewSVY21()

	var providers []ports.AvailabilityProvider
	var directory ports.CarparkDirectory
	if uraKey != "" {
		uraClient, err := ura.NewClient(uraKey)
		if err != nil {
			log.Fatal(err)
		}
		providers = append(providers, uraClient)
		directory = uraClient
	}
	if ltaKey != "" {
		ltaClient, err := lta.NewClient(ltaKey)
		if err != nil {
			log.Fatal(err)
		}
		providers = append(providers, ltaClient)
	}

	availability := &services.AvailabilityService{
		Providers: providers,
		Cache:     availCache,
		Repo:      repo,
		Proj:      proj,
		MaxAge:    cacheTTL,
	}
	carparks := &services.CarparkService{Directory: directory, Repo: repo, Proj: proj}

	// Scheduled refreshes keep the cache warm and the reference data current.
	schedule := cron.New()
	availSpec := config.Get("AVAIL_REFRESH_SPEC", "@every 1m")
	if _, err := schedule.AddFunc(availSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
		defer cancel()
		if _, err := availability.Refresh(ctx); err != nil {
			log.Printf("scheduled availability refresh failed: %v", err)
		}
	}); err != nil {
		log.Fatal(err)
	}
	if directory != nil {
		syncSpec := config.Get("CARPARK_SYNC_SPEC", "@every 24h")
		if _, err := schedule.AddFunc(syncSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := carparks.Sync(ctx); err != nil {
				log.Printf("scheduled carpark sync failed: %v", err)
			}
		}); err != nil {
			log.Fatal(err)
		}
	}
	schedule.Start()

	router := api.NewRouter(availability, carparks, repo)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")

	cronCtx := schedule.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// Let in-flight scheduled jobs finish, bounded by the same deadline.
	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
	}

	log.Println("Shutdown complete")
}
