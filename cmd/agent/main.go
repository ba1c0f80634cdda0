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
	"github.com/SwarajMP/Bankbot/internal/dialogue"
	"github.com/SwarajMP/Bankbot/internal/logger"
	"github.com/SwarajMP/Bankbot/internal/orchestrator"
	"github.com/SwarajMP/Bankbot/internal/report"
)

func main() {
	log := logger.New()
	log.WithField("service", "bankbot-agent").Info("starting agent worker")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	var (
		room     = flag.String("room", "", "room name of the dispatched job")
		metadata = flag.String("metadata", "", "dispatch metadata JSON")
		ledger   = flag.String("report", cfg.ReportPath, "optional .xlsx call ledger path")
	)
	flag.Parse()
	if *room == "" {
		fmt.Fprintln(os.Stderr, "usage: agent -room <name> [-metadata <json>] [-report <path>]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lk := bridge.NewLiveKit(cfg.LiveKitURL, cfg.APIKey, cfg.APISecret, log)

	// The console engine stands in for the voice pipeline so the call flow
	// can be exercised end to end; a production deployment plugs its
	// STT/TTS/VAD stack in behind dialogue.Engine instead.
	engines := func(context.Context, string) (dialogue.Engine, error) {
		return dialogue.NewConsoleEngine(os.Stdin, os.Stdout), nil
	}

	var opts []orchestrator.Option
	if *ledger != "" {
		opts = append(opts, orchestrator.WithRecorder(report.NewWriter(*ledger)))
	}

	o := orchestrator.New(cfg, lk, engines, log, opts...)
	sum, err := o.RunCall(ctx, orchestrator.Job{RoomName: *room, Metadata: *metadata})
	if err != nil {
		log.WithError(err).Error("call job failed")
		os.Exit(1)
	}
	log.WithField("room", sum.Room).
		WithField("interactions", sum.Interactions).
		Info("job finished")
}
