// Package main is a diagnostic tool for database connectivity. It connects
// with the server's configuration, prints the schema version and the row
// counts of the console tables, and exits non-zero on any failure so it can
// gate deployments in CI/CD pipelines.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/admin-console/admin-console/internal/config"
	"github.com/admin-console/admin-console/internal/db"
)

var tables = []string{"updates", "promotions", "organizations", "profiles"}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)

	for _, table := range tables {
		var count int
		// #nosec G202 -- table names come from the fixed list above
		if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			log.Fatalf("Query on %s failed: %v", table, err)
		}
		fmt.Printf("%-14s %d\n", table, count)
	}

	var active int
	if err := database.QueryRow("SELECT COUNT(*) FROM updates WHERE is_active").Scan(&active); err != nil {
		log.Fatalf("Active update query failed: %v", err)
	}
	if active > 1 {
		log.Fatalf("Found %d active updates, expected at most one", active)
	}
	fmt.Printf("Active updates: %d\n", active)
}
