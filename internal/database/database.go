package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mantonx/harmonia/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize sets up the database connection based on the DATABASE_TYPE environment variable
func Initialize() {
	var err error

	cfg := config.Get()

	switch cfg.DatabaseType {
	case "postgres":
		DB, err = connectPostgres()
	case "sqlite":
		DB, err = connectSQLite(cfg.SQLitePath)
	default:
		log.Fatalf("Unsupported database type: %s", cfg.DatabaseType)
	}

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := DB.AutoMigrate(&Artist{}, &Album{}, &Track{}, &User{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("✅ Database initialized with %s", cfg.DatabaseType)
}

func connectPostgres() (*gorm.DB, error) {
	host := os.Getenv("POSTGRES_HOST")
	port := os.Getenv("POSTGRES_PORT")
	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")
	dbname := os.Getenv("POSTGRES_DB")

	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "5432"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, user, password, dbname, port)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func connectSQLite(dbPath string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
