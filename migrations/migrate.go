package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedMigrations embed.FS

// Up applies every pending migration for dialect. The migrations for each
// dialect live in the directory of the same name.
func Up(db *sql.DB, dialect string) error {
	gooseDialect := map[string]string{Postgres: "postgres", SQLite: "sqlite3"}[dialect]
	if gooseDialect == "" {
		return fmt.Errorf("unknown migration dialect %q", dialect)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, dialect); err != nil {
		return fmt.Errorf("run up migrations: %w", err)
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info().Str("dialect", dialect).Int64("version", version).Msg("migrations applied")
	return nil
}

// MigratePostgres opens a short-lived database/sql handle through the pgx
// driver just for the migration run.
func MigratePostgres(pgurl string) error {
	db, err := sql.Open("pgx", pgurl)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()
	return Up(db, Postgres)
}
