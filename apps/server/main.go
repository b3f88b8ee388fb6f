package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"holdem-rooms/apps/server/internal/api"
	"holdem-rooms/apps/server/internal/config"
	"holdem-rooms/apps/server/internal/gateway"
	"holdem-rooms/apps/server/internal/ledger"
	"holdem-rooms/apps/server/internal/lobby"
	"holdem-rooms/apps/server/internal/logger"
	"holdem-rooms/apps/server/internal/room"
	"holdem-rooms/apps/server/internal/roomstore"
)

// version is set by ldflags during build
var version = "dev"

const shutdownTimeout = 10 * time.Second

type CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Config      string           `short:"c" type:"path" help:"Config file (yaml, toml or json); HOLDEM_* env vars override it"`
	Serve       ServeCmd         `cmd:"" default:"withargs" help:"Run the rooms server"`
	Leaderboard LeaderboardCmd   `cmd:"" help:"Print the top players from the hand ledger"`
}

type ServeCmd struct {
	Port int `help:"Override server.port"`
}

func (s *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if s.Port > 0 {
		cfg.Server.Port = s.Port
	}

	log, err := logger.New(cfg.Server.Production, cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, log)
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	history, ledgerMode, err := ledger.New(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer history.Close()

	clock := quartz.NewReal()
	store, err := roomstore.New(ctx, cfg, clock)
	if err != nil {
		return fmt.Errorf("init room store: %w", err)
	}
	defer store.Close()

	lby := lobby.New(cfg.Rooms, room.Deps{
		Ledger: history,
		Store:  store,
		Clock:  clock,
		Log:    log,
	})
	defer lby.Close()
	restored, err := lby.Restore(ctx)
	if err != nil {
		log.Warn("restore rooms failed", zap.Error(err))
	}

	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), api.RequestLogger(log.Named("http")), api.CORS(cfg.Server))
	api.RegisterRoutes(engine, lby, history, log)
	gw := gateway.New(lby, cfg.Server, log)
	gw.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting server",
		zap.String("addr", srv.Addr),
		zap.String("version", version),
		zap.String("ledger", ledgerMode),
		zap.String("room_store", cfg.Rooms.Store),
		zap.Int("rooms_restored", restored),
		zap.Duration("persist_interval", cfg.Rooms.PersistInterval),
		zap.Duration("action_timeout", cfg.Rooms.ActionTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return lby.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		gw.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type LeaderboardCmd struct {
	Limit int  `default:"10" help:"Number of players"`
	JSON  bool `help:"Print JSON instead of a table"`
}

func (l *LeaderboardCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	history, _, err := ledger.New(cfg.Ledger)
	if err != nil {
		return err
	}
	defer history.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	top, err := history.Leaderboard(ctx, l.Limit)
	if err != nil {
		return err
	}

	if l.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(top)
	}
	fmt.Printf("%-4s %-20s %8s %8s %10s\n", "#", "PLAYER", "HANDS", "WON", "PROFIT")
	for i, p := range top {
		fmt.Printf("%-4d %-20s %8d %8d %+10d\n", i+1, p.PlayerName, p.HandsPlayed, p.HandsWon, p.TotalProfit)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdemd"),
		kong.Description("Texas Hold'em rooms server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
