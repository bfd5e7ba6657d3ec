package main

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"airtrack/internal/api/middleware"
	"airtrack/internal/automation"
	"airtrack/internal/config"
	database "airtrack/internal/db"
	"airtrack/internal/storage"
	"airtrack/internal/syncer"
	"airtrack/internal/timetable"

	// Use an alias to prevent naming collisions with the 'server' variable
	apiserver "airtrack/internal/api/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting AirTrack API Server...")

	// 1. Setup Configuration
	cfg := config.Load()
	middleware.JwtSecret = []byte(cfg.Auth.JWTSecret)

	loc, err := time.LoadLocation(cfg.Station.Timezone)
	if err != nil {
		log.Printf("⚠️ Unknown station timezone %q, falling back to local time", cfg.Station.Timezone)
		loc = time.Local
	}

	// 2. Initialize Infrastructure
	db := database.New(cfg)

	// 3. Run Database Migrations
	db.AutoMigrate()
	database.SeedAdminUser(db.DB, cfg.Auth.AdminPassword)
	database.SeedIntegrationConfig(db.DB)

	// 4. Storage + Station Timetable
	store := storage.New(cfg)

	shows, err := timetable.Load(cfg.Station.TimetablePath)
	if err != nil {
		log.Printf("⚠️ No station timetable loaded (%v), plays keep the platform's show labels", err)
		shows = nil
	} else {
		log.Println("📅 Station timetable loaded")
	}

	// 5. Sync Orchestrator
	client := automation.NewClient(time.Duration(cfg.Automation.TimeoutSeconds) * time.Second)
	sync := syncer.New(db.DB, client, loc, shows)

	// 6. Setup Metrics
	syncer.RegisterMetrics()
	go func() {
		http.Handle("/_metrics", promhttp.Handler())
		log.Printf("📊 Metrics exposed at http://localhost%s/_metrics", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(cfg.Server.MetricsPort, nil); err != nil {
			log.Printf("⚠️ Metrics server error: %v", err)
		}
	}()

	// 7. Start Server
	srv := apiserver.New(cfg, db, store, sync, loc)

	log.Printf("🚀 API Server starting on %s", cfg.Server.Port)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
