package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/joho/godotenv"

	bridge "github.com/goliatone/go-identity-bridge"
	"github.com/goliatone/go-identity-bridge/provider/source"
	"github.com/goliatone/go-identity-bridge/store/adminapi"
	"github.com/goliatone/go-identity-bridge/store/dbstore"
)

const shutdownGrace = 10 * time.Second

func main() {
	godotenv.Load()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("bridge"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := bridge.LoadConfig()
	if err != nil {
		lgr.GetLogger("config").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	verifier, err := newClaimsVerifier(cfg)
	if err != nil {
		lgr.GetLogger("source").Error("claims verifier setup failed", "error", err)
		os.Exit(1)
	}

	creds := source.NewPasswordClient(source.PasswordConfig{
		BaseURL:       cfg.CredentialVerifierURL,
		MemoryCost:    cfg.HashMemoryCost,
		Rounds:        cfg.HashRounds,
		SaltSeparator: cfg.HashSaltSeparator,
		SignerKey:     cfg.HashSignerKey,
	})

	adminStore := adminapi.NewStore(adminapi.NewClient(adminapi.Config{
		BaseURL:    cfg.StoreBaseURL,
		ServiceKey: cfg.StoreServiceKey,
	})).WithLogger(lgr.GetLogger("store:admin"))

	// Sessions always go through the admin API. User reads and writes go
	// direct to the database when a DSN is configured.
	var users bridge.UserStore = adminStore
	if cfg.StoreDSN != "" {
		db, err := dbstore.Open(cfg.StoreDSN)
		if err != nil {
			lgr.GetLogger("store:db").Error("database open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		users = dbstore.NewStore(db, dbstore.WithLogger(lgr.GetLogger("store:db")))
	}

	matcher := bridge.NewMatcher(users).
		WithLogger(lgr.GetLogger("matcher"))

	minter := bridge.NewMinter(adminStore).
		WithLogger(lgr.GetLogger("minter"))

	tracker := bridge.NewTracker(users).
		WithLogger(lgr.GetLogger("tracker"))

	exchanger := bridge.NewExchanger(verifier, matcher, minter).
		WithLogger(lgr.GetLogger("exchange")).
		WithTracker(tracker)

	migrator := bridge.NewMigrator(users, adminStore, creds).
		WithLogger(lgr.GetLogger("migrate"))

	controller := bridge.NewController(exchanger, migrator, users,
		bridge.WithControllerLogger(lgr.GetLogger("http")),
		bridge.WithDebug(os.Getenv("BRIDGE_DEBUG") == "true"),
	)

	app := fiber.New(fiber.Config{
		AppName:      "identity-bridge",
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	})
	app.Use(cors.New())

	bridge.RegisterRoutes(app, controller)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			lgr.GetLogger("http").Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		lgr.GetLogger("http").Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownGrace); err != nil {
			lgr.GetLogger("http").Error("shutdown error", "error", err)
		}
	}

	// Let in-flight exchange bookkeeping drain before exit.
	tracker.Wait()
}

func newClaimsVerifier(cfg *bridge.Config) (bridge.ClaimsVerifier, error) {
	if cfg.SourceJWKSURL != "" {
		return source.NewJWKSVerifier(source.JWKSConfig{
			JWKSetURL: cfg.SourceJWKSURL,
			Issuer:    cfg.SourceIssuer,
		})
	}

	return source.NewClaimsClient(source.ClaimsConfig{
		BaseURL: cfg.ClaimsVerifierURL,
		APIKey:  cfg.ClaimsVerifierKey,
	}), nil
}
