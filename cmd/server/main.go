package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/xencrm/crm-server/internal/api"
	"github.com/xencrm/crm-server/internal/audience"
	"github.com/xencrm/crm-server/internal/cache"
	"github.com/xencrm/crm-server/internal/config"
	"github.com/xencrm/crm-server/internal/pkg/distlock"
	"github.com/xencrm/crm-server/internal/repository/postgres"
	"github.com/xencrm/crm-server/internal/service/campaign"
	"github.com/xencrm/crm-server/internal/service/segment"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("XenCRM server (cmd/server/main.go)")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Database
	if cfg.Database.URL == "" {
		log.Fatal("database.url is not configured (set DATABASE_URL or config.yaml)")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.Lifetime())
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database at %s: %v", extractHost(cfg.Database.URL), err)
	}
	defer db.Close()
	log.Printf("Connected to database at %s", extractHost(cfg.Database.URL))

	// Optional Redis-backed preview cache
	var rdb *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable (%v), preview cache disabled", err)
			rdb = nil
		} else {
			log.Printf("Preview cache enabled via Redis at %s", cfg.Redis.Addr)
		}
	}

	// Wiring
	customers := postgres.NewCustomerStore(db)
	resolver := audience.NewResolver(customers)
	previews := cache.NewPreviewCache(rdb, cfg.Preview.CacheTTL())

	segmentRepo := postgres.NewSegmentRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	commLogRepo := postgres.NewCommLogRepo(db)

	segmentSvc := segment.NewService(segmentRepo, campaignRepo, resolver, previews)
	campaignSvc := campaign.NewService(campaignRepo, commLogRepo, segmentSvc, resolver)
	campaignSvc.UseLaunchLock(func(key string) distlock.Lock {
		return distlock.New(rdb, db, key, time.Minute)
	})

	router := api.SetupRoutes(&api.Handlers{
		Segments:  api.NewSegmentHandlers(segmentSvc),
		Campaigns: api.NewCampaignHandlers(campaignSvc),
		Dashboard: api.NewDashboardHandlers(customers),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if rdb != nil {
		rdb.Close()
	}

	log.Println("Server stopped")
}
