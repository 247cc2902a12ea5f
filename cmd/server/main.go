package main

import (
	"net/http"
	"os"
	"time"

	"poker-canvas/internal/config"
	"poker-canvas/internal/db"
	"poker-canvas/internal/server"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warnf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn := openDatabase(cfg)

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	stop := srv.StartSweeper(time.Duration(cfg.SweepIntervalMinutes) * time.Minute)
	defer stop()

	log.Infof("poker-canvas server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}

// openDatabase connects the Postgres mirror. The server runs memory-only when
// DATABASE_URL is absent.
func openDatabase(cfg config.Config) *gorm.DB {
	conn, err := db.Open()
	if err != nil {
		log.Warnf("running without database mirror: %v", err)
		return nil
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("database handle unavailable: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
	return conn
}
