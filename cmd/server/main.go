package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vendormesh/wabridge/client"
	"github.com/vendormesh/wabridge/internal/config"
	"github.com/vendormesh/wabridge/server"
	"github.com/vendormesh/wabridge/sessions"
	"github.com/vendormesh/wabridge/sessions/redisrepo"
	"github.com/vendormesh/wabridge/token"
	"github.com/vendormesh/wabridge/token/secrets"
	"github.com/vendormesh/wabridge/usage"
	"github.com/vendormesh/wabridge/vendors"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	cfg := config.New()

	logger := newLogger(cfg)
	displayAppname(cfg.GetAppName())

	srv, err := buildServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: srv}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

func buildServer(cfg config.Config, logger zerolog.Logger) (*server.Server, error) {
	secretStore, err := secrets.NewMemoryStore(cfg.GetSigningSecret())
	if err != nil {
		return nil, fmt.Errorf("secrets.NewMemoryStore: %w", err)
	}

	issuer, err := token.NewIssuer(
		token.NewHMACSigner(secretStore),
		cfg.GetTokenIssuer(),
		cfg.GetAllowedRoles(),
		token.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("token.NewIssuer: %w", err)
	}

	var sink usage.Sink = usage.NopSink{}
	if cfg.GetUsageTracking() {
		sink = usage.NewLogSink(logger)
	}

	apiClient, err := client.New(cfg, issuer,
		client.WithUsageSink(sink),
		client.WithClientLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("client.New: %w", err)
	}

	var sessionRepo sessions.Repo = redisrepo.New(redisrepo.NewClient(cfg, logger))
	tracker, err := sessions.NewTracker(sessionRepo, apiClient, sessions.WithTrackerLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("sessions.NewTracker: %w", err)
	}

	static := vendors.NewStaticResolver("static", staticVendors())
	registry := vendors.NewRegistry(static)
	resolver, err := registry.Select()
	if err != nil {
		// No vendor mappings configured yet; callers resolve as non-vendors.
		logger.Warn().Msg("no vendor resolver available, VENDORS is empty")
		resolver = static
	}
	logger.Info().Str("resolver", resolver.Name()).Msg("vendor resolver selected")

	return server.New(cfg, issuer, secretStore, tracker, apiClient, resolver, logger)
}

// staticVendors reads the vendor table pushed by the host platform:
// VENDORS="userID:vendorID:Store Name,userID2:vendorID2:Other Store"
func staticVendors() map[string]vendors.VendorInfo {
	table := make(map[string]vendors.VendorInfo)
	raw := os.Getenv("VENDORS")
	if raw == "" {
		return table
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 {
			continue
		}
		table[strings.TrimSpace(parts[0])] = vendors.VendorInfo{
			VendorID:  strings.TrimSpace(parts[1]),
			StoreName: strings.TrimSpace(parts[2]),
		}
	}
	return table
}

func newLogger(cfg config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.GetDebug() {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
