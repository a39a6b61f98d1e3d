package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/auth"
	"github.com/DoyleJ11/duo-trivia-backend/internal/config"
	"github.com/DoyleJ11/duo-trivia-backend/internal/game"
	"github.com/DoyleJ11/duo-trivia-backend/internal/httpapi"
	"github.com/DoyleJ11/duo-trivia-backend/internal/hub"
	"github.com/DoyleJ11/duo-trivia-backend/internal/logging"
	"github.com/DoyleJ11/duo-trivia-backend/internal/store"
	"github.com/DoyleJ11/duo-trivia-backend/internal/ws"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type gameStore interface {
	game.Store
	store.Seeder
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config.Config
	if err := newCmd(&cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "duo-server",
		Short:         "Two-player trivia and prediction game server.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), *cfg)
		},
	}
	config.BindFlags(cmd.Flags(), cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func run(ctx context.Context, cfg config.Config) (err error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	h := hub.NewHub(ctx, cfg.HubInboxSize, log)
	jwt := auth.NewJWT(cfg.JWTSecret)
	svc := game.NewService(st, h, log)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Games:    svc,
			Rooms:    svc.Assembler(),
			Hub:      h,
			Verifier: jwt,
			WS: ws.Options{
				OriginPatterns: cfg.AllowedOrigins,
				OutboxSize:     cfg.ClientOutboxSize,
				WriteTimeout:   cfg.WriteTimeout,
				PingInterval:   cfg.PingInterval,
			},
			Ping: st.Ping,
			Log:  log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("db_driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Websocket handlers end when the hub closes their outboxes.
		h.Shutdown()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (gameStore, error) {
	var st gameStore
	if cfg.DBDriver == config.DriverMemory {
		st = store.NewMemory()
	} else {
		sql, err := store.Open(cfg.DBDriver, cfg.DatabaseURL, store.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := sql.Migrate(); err != nil {
				return nil, multierr.Append(fmt.Errorf("auto-migrate: %w", err), sql.Close())
			}
		}
		st = sql
	}

	if cfg.SeedFile != "" {
		n, err := seed(ctx, st, cfg.SeedFile)
		if err != nil {
			return nil, multierr.Append(err, st.Close())
		}
		log.Info("seeded questions", zap.String("file", cfg.SeedFile), zap.Int("questions", n))
	}
	return st, nil
}

func seed(ctx context.Context, s store.Seeder, path string) (int, error) {
	f, err := store.LoadQuestionFile(path)
	if err != nil {
		return 0, fmt.Errorf("seed file: %w", err)
	}
	return store.SeedQuestions(ctx, s, f)
}
