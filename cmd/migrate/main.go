package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"marketplace-chat/config"
	"marketplace-chat/pkg/database"
)

const usage = `
Marketplace Chat - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create or update the chat tables
  status      Show database connection status and table sizes
  seed-dev    Seed a client, a freelancer and one conversation
  truncate    Empty all chat tables (DANGEROUS)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed-dev
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	case "seed-dev":
		runSeedDevelopment()
	case "truncate":
		runTruncate()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("Running migrations...")

	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}

func showStatus() {
	if err := database.Ping(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{"users", "clients", "freelancers", "applications", "messages", "notifications", "outbox_events"}
	for _, table := range tables {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.GetTableCount(table)
			log.Printf("Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("Table %-20s does not exist", table)
		}
	}

	if err := database.HealthCheck(); err != nil {
		log.Printf("Health check warning: %v", err)
	} else {
		log.Println("Health check: PASSED")
	}
}

func runSeedDevelopment() {
	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	result, err := database.SeedDevelopment(database.DB)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seed summary:")
	log.Printf("   - Client user:     %s (id %d)", result.ClientUser.Email, result.ClientUser.ID)
	log.Printf("   - Freelancer user: %s (id %d)", result.FreelancerUser.Email, result.FreelancerUser.ID)
	log.Printf("   - Conversation:    %d (%s)", result.Application.ID, result.Task.Title)
}

func runTruncate() {
	log.Println("WARNING: This will TRUNCATE all chat tables!")

	if err := database.TruncateChatTables(); err != nil {
		log.Fatalf("Truncate failed: %v", err)
	}

	log.Println("All chat tables truncated")
}
