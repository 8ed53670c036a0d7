package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"

	"github.com/Mr-Jack-Tung/private-poker/pkg/poker"
	"github.com/Mr-Jack-Tung/private-poker/pkg/server"
)

func main() {
	var (
		bind       string
		buyIn      int64
		configPath string
	)
	flag.StringVar(&bind, "bind", server.DefaultBind, "server socket bind address (IP:PORT)")
	flag.Int64Var(&buyIn, "buy_in", poker.DefaultBuyIn, "new user starting money (USD)")
	flag.StringVar(&configPath, "config", "", "optional TOML config file")
	flag.Parse()

	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("SRVR")
	gameLog := backend.Logger("GAME")

	level := slog.LevelInfo
	if env := os.Getenv("PP_DEBUGLEVEL"); env != "" {
		if parsed, ok := slog.LevelFromString(env); ok {
			level = parsed
		}
	}
	log.SetLevel(level)
	gameLog.SetLevel(level)

	cfg := server.NewConfig(buyIn)
	cfg.Bind = bind
	cfg.Log = log
	cfg.Game.Log = gameLog
	if configPath != "" {
		if err := server.LoadConfig(configPath, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	// Terminating signals end the process with the signal number as
	// its exit status.
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		sig := <-sigCh
		log.Infof("caught %v, shutting down", sig)
		cancel()
		if num, ok := sig.(syscall.Signal); ok {
			os.Exit(int(num))
		}
		os.Exit(1)
	}()

	log.Infof("starting at %s", cfg.Bind)
	if err := server.New(cfg).Run(ctx); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
