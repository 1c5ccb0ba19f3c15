package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"marketplace-chat/config"
	"marketplace-chat/internal/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	logLevel := logger.Warn
	if cfg.AppMode == "debug" {
		logLevel = logger.Info
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatalf("Failed to get generic database object: %v", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
}

func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// HealthCheck verifies the pool answers a trivial query.
func HealthCheck() error {
	if err := Ping(); err != nil {
		return err
	}
	var one int
	if err := DB.Raw("SELECT 1").Scan(&one).Error; err != nil {
		return fmt.Errorf("health query failed: %w", err)
	}
	return nil
}

func RunMigrations() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return repository.InitSchema(DB)
}

func TableExists(table string) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database not initialized")
	}
	return DB.Migrator().HasTable(table), nil
}

func GetTableCount(table string) (int64, error) {
	var count int64
	err := DB.Table(table).Count(&count).Error
	return count, err
}

// TruncateChatTables empties every chat table and resets identities.
func TruncateChatTables() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	tables := make([]string, 0, len(repository.Models()))
	for _, model := range repository.Models() {
		stmt := &gorm.Statement{DB: DB}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("resolve table for %T: %w", model, err)
		}
		tables = append(tables, stmt.Schema.Table)
	}
	return DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))).Error
}
