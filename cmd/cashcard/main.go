package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alovak/cashcard-service/cashcard"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

func main() {
	// a missing .env is fine; the environment wins either way
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app := cashcard.NewApp(logger, cashcard.ConfigFromEnv())
	if err := app.Start(); err != nil {
		logger.Error("starting app", "err", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.Shutdown()
}
