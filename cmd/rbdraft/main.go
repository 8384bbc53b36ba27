package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/rbdraft/internal/adapter/driven/pagestate"
	"github.com/ericfisherdev/rbdraft/internal/adapter/driven/rbapi"
	sqliteadapter "github.com/ericfisherdev/rbdraft/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/rbdraft/internal/adapter/driving/http"
	"github.com/ericfisherdev/rbdraft/internal/application"
	"github.com/ericfisherdev/rbdraft/internal/config"
	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

var version = "dev"

type flags struct {
	ConfigPath string
	LogLevel   string
}

func main() {
	f := &flags{}

	app := &cli.Command{
		Name:  "rbdraft",
		Usage: "Edit the draft of a Review Board review request through a local API",
		Description: `rbdraft holds the editing session of one review request page: draft
fields, the comment dialog, the review form, reply drafts and diff fragments.
The session is driven through a JSON API on the listen address and talks to
the Review Board server's JSON API on the user's behalf.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to YAML config file; RBDRAFT_* variables override it",
				Sources:     cli.EnvVars("RBDRAFT_CONFIG"),
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("RBDRAFT_LOG_LEVEL"),
				Value:       "info",
				Destination: &f.LogLevel,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			return run(ctx, f)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.LoadFile(f.ConfigPath)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"server_url", cfg.ServerURL,
		"review_request_id", cfg.ReviewRequestID,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"read_only", cfg.ReadOnly,
	)

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete", "path", cfg.DBPath)

	ref := model.NewReviewRequestRef(cfg.ReviewRequestID, cfg.SiteRoot)
	page := pagestate.New(ref.PagePath())

	client, err := rbapi.NewClient(cfg.ServerURL, ref.SiteRoot, cfg.RequestTimeout, page, slog.Default())
	if err != nil {
		return err
	}

	fieldStore := sqliteadapter.NewFieldRepo(db)
	fragmentStore := sqliteadapter.NewFragmentRepo(db)

	session := application.NewPageSession(application.SessionDeps{
		Ref:           ref,
		Transport:     client,
		Fetcher:       client,
		Displays:      fieldStore,
		Fragments:     fragmentStore,
		Navigator:     page,
		Alerter:       page,
		Banners:       page,
		DraftButtons:  page.Controls(httphandler.ControlsDraft),
		ReviewButtons: page.Controls(httphandler.ControlsReview),
		ReplyButtons:  page.Controls(httphandler.ControlsReply),
		BugTrackerURL: cfg.BugTrackerURL,
		AjaxSerial:    cfg.AjaxSerial,
		ReadOnly:      cfg.ReadOnly,
		Listener: application.DialogListenerFunc(func(ev application.DialogEvent) {
			slog.Debug("dialog event", "event", fmt.Sprintf("%T", ev))
		}),
		Logger: slog.Default(),
	})

	apiHandler := httphandler.NewHandler(session, page, fieldStore, fragmentStore, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		// Let in-flight server calls finish so their callbacks land before
		// the database closes.
		client.Wait()
		return nil
	})

	slog.Info("rbdraft started",
		"version", version,
		"page", ref.PagePath(),
	)

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}
