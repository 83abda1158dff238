package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alovak/cardflow-atm/atm"
	"golang.org/x/exp/slog"
)

func main() {
	cfg := atm.LoadConfig()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	app := atm.NewApp(logger, cfg)
	if err := app.Start(); err != nil {
		logger.Error("starting app", "err", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.Shutdown()
}
