package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

func DSN(config models.DBConfig) string {
	sslmode := config.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Name, sslmode)
}

// InitDBConnections opens the primary pool (writes and every read that
// takes part in an ownership decision) and the replica pool used for
// listings. Without a configured replica both values are the same pool.
func InitDBConnections(config models.Config) (*sql.DB, *sql.DB, error) {
	primaryDB, err := open(config.DB)
	if err != nil {
		log.Println("Failed to connect to primary DB:", err.Error())
		return nil, nil, err
	}
	if config.Replica.Host == "" {
		return primaryDB, primaryDB, nil
	}

	replicaDB, err := open(config.Replica)
	if err != nil {
		log.Println("Failed to connect to replica DB:", err.Error())
		primaryDB.Close()
		return nil, nil, err
	}
	return primaryDB, replicaDB, nil
}

func open(config models.DBConfig) (*sql.DB, error) {
	DB, err := sql.Open("postgres", DSN(config))
	if err != nil {
		return nil, err
	}
	if config.MaxOpenConns > 0 {
		DB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		DB.SetMaxIdleConns(config.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.PingContext(ctx); err != nil {
		DB.Close()
		return nil, fmt.Errorf("ping %s:%s: %w", config.Host, config.Port, err)
	}
	return DB, nil
}

// ApplyMigrations brings the schema up to date using its own connection,
// closed again before returning.
func ApplyMigrations(config models.DBConfig) error {
	DB, err := sql.Open("postgres", DSN(config))
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(DB, &postgres.Config{})
	if err != nil {
		DB.Close()
		log.Println("Using Same Connection for Migrations failed :", err.Error())
		return err
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		DB.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, config.Name, driver)
	if err != nil {
		DB.Close()
		return err
	}
	defer m.Close()

	// Postgres runs each migration in a transaction, a failure rolls back.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Println("Migration of Database failed: ", err.Error())
		return err
	}
	log.Println("Migrations applied successfully!")
	return nil
}
