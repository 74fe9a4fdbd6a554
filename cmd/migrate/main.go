package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/yourusername/social-api/internal/config"
)

// Утилита обслуживания схемы: применяет, откатывает и принудительно выставляет версию миграций.
//
//	migrate -cmd up
//	migrate -cmd down -steps 1
//	migrate -cmd force -version 1   (снимает dirty-состояние после упавшей миграции)
//	migrate -cmd version
func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "./config/config.yaml"), "path to config file")
	migrationsPath := flag.String("path", "migrations", "migrations directory")
	command := flag.String("cmd", "up", "up | down | force | version")
	steps := flag.Int("steps", 1, "number of migrations to roll back (down)")
	version := flag.Int("version", -1, "version to force (force)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("База данных недоступна: %v", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+*migrationsPath, "postgres", driver)
	if err != nil {
		log.Fatal(err)
	}

	switch *command {
	case "up":
		err = m.Up()
	case "down":
		if *steps <= 0 {
			log.Fatal("-steps must be positive")
		}
		err = m.Steps(-*steps)
	case "force":
		if *version < 0 {
			log.Fatal("-version is required for force")
		}
		fmt.Printf("Forcing migration version to %d to clean dirty state...\n", *version)
		err = m.Force(*version)
	case "version":
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied")
			return
		}
		if verr != nil {
			log.Fatal(verr)
		}
		fmt.Printf("Version: %d, dirty: %t\n", v, dirty)
		return
	default:
		log.Fatalf("Unknown command %q", *command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No changes")
		return
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", *command, err)
	}
	fmt.Printf("Migration %s completed\n", *command)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
