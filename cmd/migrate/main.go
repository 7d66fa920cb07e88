// Command migrate manages the run-history ledger schema outside the
// mirror binary, for deployments that apply migrations separately.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"slack_line_mirror/internal/config"
	"slack_line_mirror/migrations"
)

const usage = `Usage: migrate [-db path] <command>

Manages the mirror run-history ledger schema ($DATABASE_PATH by default).

Commands:
  up          Apply all pending migrations
  up-one      Apply the next pending migration
  down        Roll back the last migration
  status      Show migration status
  version     Show current schema version
  reset       Roll back everything
`

func main() {
	dbPath := flag.String("db", config.LoadPaths().DatabasePath, "path to the ledger database")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *dbPath); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func run(cmd, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	switch cmd {
	case "up":
		return goose.Up(db, ".")
	case "up-one":
		return goose.UpByOne(db, ".")
	case "down":
		return goose.Down(db, ".")
	case "status":
		return goose.Status(db, ".")
	case "version":
		return goose.Version(db, ".")
	case "reset":
		return goose.Reset(db, ".")
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
