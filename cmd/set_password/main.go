package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lendtrack/models"
)

// Sets or resets the shared admin password directly in the database.
// Useful for first-time setup from the shell and for recovery when the
// password is lost.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./cmd/set_password <new-password>")
		os.Exit(2)
	}
	password := os.Args[1]
	if len(password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}

	var cred models.Credential
	switch err := db.Order("id").First(&cred).Error; {
	case err == nil:
		cred.PasswordHash = hash
		if err := db.Save(&cred).Error; err != nil {
			log.Fatalf("failed to update password: %v", err)
		}
		fmt.Println("password updated")
	case err == gorm.ErrRecordNotFound:
		if err := db.Create(&models.Credential{PasswordHash: hash}).Error; err != nil {
			log.Fatalf("failed to set password: %v", err)
		}
		fmt.Println("password set")
	default:
		log.Fatalf("failed to read credentials: %v", err)
	}
}
