package config

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// InitDB opens the Postgres connection from env vars. Fatal on failure: the
// service cannot do anything without its store.
func InitDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			getenv("DB_HOST", "localhost"),
			getenv("DB_USER", "postgres"),
			getenv("DB_PASSWORD", "postgres"),
			getenv("DB_NAME", "ravehub"),
			getenv("DB_PORT", "5432"),
			getenv("DB_SSLMODE", "disable"),
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}

// JWTSecret returns the token signing key.
func JWTSecret() []byte {
	return []byte(getenv("JWT_SECRET", "dev-secret-change-me"))
}

// UploadDir is the root directory for stored payment proofs.
func UploadDir() string {
	return getenv("UPLOAD_DIR", "./uploads")
}

// PublicBaseURL prefixes stored file paths to build the public proof URL.
func PublicBaseURL() string {
	return getenv("PUBLIC_BASE_URL", "http://localhost:8080")
}
