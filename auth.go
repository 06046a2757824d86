package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"lendtrack/models"
)

// The app has a single shared admin password; its bcrypt hash lives in the
// credentials table (at most one row). No user accounts.

func passwordIsSet() (bool, error) {
	var count int64
	if err := db.Model(&models.Credential{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetupPassword stores the hash of the shared password. It can only be
// done once; afterwards setup is rejected.
func SetupPassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	set, err := passwordIsSet()
	if err != nil {
		return err
	}
	if set {
		return fmt.Errorf("password already set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&models.Credential{PasswordHash: hash}).Error
}

// Authenticate compares password against the stored hash.
func Authenticate(password string) error {
	var cred models.Credential
	if err := db.Order("id").First(&cred).Error; err != nil {
		return fmt.Errorf("password not set up yet")
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return fmt.Errorf("invalid password")
	}
	return nil
}

// issueToken signs an admin JWT. Expiry comes from JWT_EXPIRES_IN (Go
// duration syntax, e.g. "12h"), defaulting to 12 hours.
func issueToken() (string, error) {
	ttl := 12 * time.Hour
	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}
