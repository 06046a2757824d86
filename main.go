package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"lendtrack/pkg/notify"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

func main() {
	// .env is optional; deployments normally configure the environment directly.
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
		log.Println("JWT_SECRET not set; using insecure development fallback")
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./lendtrack migrate`
	// It runs AutoMigrate then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		log.Println("migration completed")
		return
	}

	initDB()

	startNotifier()

	r := gin.Default()
	setupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

// startNotifier wires the daily reminder and collection jobs when SMTP is
// configured; without SMTP the app runs fine, just silently.
func startNotifier() {
	cfg := notify.ConfigFromEnv()
	if !cfg.Enabled() {
		log.Println("SMTP not configured; email reminders disabled")
		return
	}
	n := notify.New(db, cfg)
	c := cron.New()
	if err := n.Schedule(c); err != nil {
		log.Printf("failed to schedule notification jobs: %v", err)
		return
	}
	c.Start()
	log.Println("notification jobs scheduled (reminders 09:00, collections 10:00)")
}
