// Command migrate applies the embedded schema migrations and exits. The api
// binary also migrates on boot; this exists for running migrations from CI
// or against a database the service is not pointed at yet.
package main

import (
	"log/slog"
	"os"

	"github.com/NotJalaAl00/Flint/internal/stores/postgres"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", slog.String(logkey.ERROR, err.Error()))
	}

	db, err := postgres.OpenDB()
	if err != nil {
		slog.Error("opening database", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		slog.Error("running migrations", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
	slog.Info("migrations applied")
}
