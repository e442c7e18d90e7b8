package main

import (
	"context"
	"log"
	"time"

	"mgm-billing/config"
	"mgm-billing/internal/database"
	userhandler "mgm-billing/internal/services/user/handler"
	"mgm-billing/internal/utils"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := database.EnsureSettings(ctx, db)
	if err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}
	log.Printf("Settings ready: gold=%s silver=%s gst=%s", settings.GoldRate, settings.SilverRate, settings.GSTRate)

	users := userhandler.NewUserHandler(db, utils.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	if err := users.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	log.Println("Migration complete")
}
