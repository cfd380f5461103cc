package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpx "github.com/gofanout/track/internal/http"
	"github.com/gofanout/track/internal/metrics"
	"github.com/gofanout/track/internal/provider"
	"github.com/gofanout/track/pkg/config"
	"github.com/gofanout/track/pkg/track"
)

// initializeProviders builds the providers named in PROVIDERS, keeping
// the configured order.
func initializeProviders(cfg config.Config) []track.Provider {
	var providers []track.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "log":
			providers = append(providers, provider.NewLogProvider())
		case "kafka":
			providers = append(providers, provider.NewKafkaProviderFromEnv())
		case "postgres":
			providers = append(providers, provider.NewPGProvider(provider.LoadPGConfig()))
		default:
			log.Printf("unknown provider %q, skipping", name)
		}
	}
	return providers
}

func initializeHMACAuth(cfg config.Config) *httpx.HMACAuth {
	if cfg.HMACSecret == "" {
		return nil
	}
	return httpx.NewHMACAuth(cfg.HMACSecret, os.Getenv("HMAC_PUBLIC_KEY"), cfg.HMACRequire)
}

func waitForShutdown() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}

func main() {
	demo := flag.Bool("demo", false, "emit sample tracking calls and exit")
	flag.Parse()

	cfg := config.Load()
	metrics.Init()

	tracker := track.NewTracker()
	tracker.Register(initializeProviders(cfg)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tracker.Start(ctx); err != nil {
		log.Fatalf("provider start failed: %v", err)
	}

	if *demo {
		runDemo(tracker)
		if err := tracker.Close(); err != nil {
			log.Printf("provider close: %v", err)
		}
		return
	}

	metricsSrv := metrics.NewServer(metrics.LoadConfig())
	_ = metricsSrv.Start(ctx)

	env := httpx.Env{
		Cfg:      cfg,
		Track:    tracker,
		HMACAuth: initializeHMACAuth(cfg),
	}

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: httpx.NewMux(env),
	}

	go func() {
		log.Printf("trackd listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	waitForShutdown()

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	if err := tracker.Close(); err != nil {
		log.Printf("provider close: %v", err)
	}
}
