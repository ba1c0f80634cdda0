package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SwarajMP/Bankbot/internal/bridge"
	"github.com/SwarajMP/Bankbot/internal/config"
	"github.com/SwarajMP/Bankbot/internal/dispatch"
	"github.com/SwarajMP/Bankbot/internal/logger"
)

func main() {
	log := logger.New()
	log.WithField("service", "bankbot-call").Info("starting outbound payment call")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	var (
		to          = flag.String("to", "", "phone number to call")
		skipCleanup = flag.Bool("skip-cleanup", false, "skip the stale room sweep")
	)
	flag.Parse()
	if *to == "" {
		fmt.Fprintln(os.Stderr, "usage: call -to <number> [-skip-cleanup]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lk := bridge.NewLiveKit(cfg.LiveKitURL, cfg.APIKey, cfg.APISecret, log)
	svc := dispatch.New(lk, cfg.AgentName, cfg.AgentDisplayName, cfg.Company, log.Entry)

	if err := svc.Preflight(ctx); err != nil {
		log.WithError(err).Fatal("bridge is unreachable")
	}

	if !*skipCleanup {
		if n, err := svc.CleanupOldRooms(ctx, dispatch.DefaultMaxRoomAge); err != nil {
			log.WithError(err).Warn("stale room sweep failed")
		} else if n > 0 {
			log.WithField("deleted", n).Info("swept stale rooms")
		}
	}

	d, err := svc.CreateCall(ctx, *to)
	if err != nil {
		log.WithError(err).Fatal("failed to create call")
	}
	log.WithField("dispatch_id", d.ID).
		WithField("room", d.Room).
		Info("dispatch created")
}
