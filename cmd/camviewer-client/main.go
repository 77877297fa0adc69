package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nordlyslabs/camviewer/internal/client"
	"github.com/nordlyslabs/camviewer/internal/config"
	"github.com/nordlyslabs/camviewer/internal/core"
	"github.com/nordlyslabs/camviewer/internal/httpdebug"
	"github.com/nordlyslabs/camviewer/internal/logger"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	tier, _ := cfg.deviceTier()

	var store core.ConfigStore
	if cfg.profilePath != "" {
		store = config.NewFileStore(cfg.profilePath)
	}

	orch := client.New(client.Config{
		Host:      cfg.host,
		Port:      int(cfg.port),
		Password:  cfg.password,
		Tier:      tier,
		Decoder:   core.NewFakeDecoderSink(),
		AudioSink: core.NewFakeAudioSink(),
		Observers: core.NoopObservers{},
		Clock:     core.SystemClock{},
		Config:    store,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var debugSrv *httpdebug.Server
	if cfg.debugAddr != "" {
		debugSrv = httpdebug.New(cfg.debugAddr, orch.Session())
		go func() {
			if err := debugSrv.ListenAndServe(); err != nil {
				log.Warn("debug server stopped", "error", err)
			}
		}()
		log.Info("debug http server listening", "addr", cfg.debugAddr)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- orch.Run(ctx) }()

	log.Info("connecting", "host", cfg.host, "port", cfg.port, "tier", cfg.tier)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		orch.Shutdown()
	case err := <-runDone:
		if err != nil {
			log.Error("orchestrator stopped", "error", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		<-runDone
		if debugSrv != nil {
			_ = debugSrv.Shutdown(shutdownCtx)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}
