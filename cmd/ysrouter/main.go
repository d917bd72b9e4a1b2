package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/adapter"
	"github.com/Behodler/yield-strategy-router/internal/config"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
	"github.com/Behodler/yield-strategy-router/internal/observability"
	"github.com/Behodler/yield-strategy-router/internal/persistence"
	"github.com/Behodler/yield-strategy-router/internal/publish"
	"github.com/Behodler/yield-strategy-router/internal/query"
	"github.com/Behodler/yield-strategy-router/internal/router"
	"github.com/Behodler/yield-strategy-router/internal/server"
	"github.com/Behodler/yield-strategy-router/internal/surplus"
	"github.com/Behodler/yield-strategy-router/internal/vault"
)

func main() {
	log := observability.NewLogger("ysrouter")
	log.Info().Msg("yield strategy router starting")

	cfg, err := config.Load(os.Getenv("YSR_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	owner := uuid.New()
	if cfg.Owner != "" {
		owner = uuid.MustParse(cfg.Owner)
	} else {
		log.Warn().Stringer("owner", owner).Msg("no owner configured, generated fresh identity")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics()
	health := observability.NewHealthChecker()

	// --- Postgres ---
	var (
		db      *sql.DB
		snapMgr *persistence.SnapshotManager
		queries *query.Service
	)
	if cfg.Postgres.Enabled {
		db, err = sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		defer db.Close()

		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping")
		}
		log.Info().Msg("postgres connected")

		migrationsDir := os.Getenv("YSR_MIGRATIONS_DIR")
		if migrationsDir == "" {
			migrationsDir = "migrations"
		}
		migrator := persistence.NewMigrator(db, migrationsDir, log)
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
		log.Info().Msg("migrations applied")

		snapMgr = persistence.NewSnapshotManager(db)
		queries = query.NewService(db)
	}

	// --- Recovery ---
	var snap *persistence.SnapshotData
	if snapMgr != nil {
		snap, err = snapMgr.LoadLatestSnapshot(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("load snapshot failed, cold start")
		}
		if snap != nil {
			log.Info().Int64("sequence", snap.Sequence).Msg("loaded snapshot")
		} else {
			log.Info().Msg("no snapshot found, cold start")
		}
	}

	// --- Sinks ---
	var sinks router.MultiSink

	persistChan := make(chan persistence.Record, cfg.Persist.ChannelSize)
	if db != nil {
		sinks = append(sinks, persistence.NewChannelSink(persistChan))
	}

	publishChan := make(chan publish.Message, 4096)

	// --- NATS ---
	var js jetstream.JetStream
	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer nc.Close()

		js, err = jetstream.New(nc)
		if err != nil {
			log.Fatal().Err(err).Msg("jetstream init")
		}
		if err := publish.EnsureStream(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure outbound stream")
		}
		log.Info().Msg("nats connected")

		sinks = append(sinks, publish.NewChannelSink(publishChan, metrics))
	}

	// --- Router + vault adapters ---
	book := ledger.NewPrincipalBook()

	rt, err := router.New(owner, sinks, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("router init")
	}

	for _, ac := range cfg.Assets {
		token := vault.NewSimToken(ac.Symbol)
		pool := vault.NewSimPool(token)
		var staking vault.Staking
		if ac.Staking {
			staking = vault.NewSimStaking(pool, vault.NewSimToken(ac.RewardToken))
		}
		a, err := adapter.New(owner, ac.Symbol, token, pool, staking, book, log)
		if err != nil {
			log.Fatal().Err(err).Str("asset", ac.Symbol).Msg("adapter init")
		}
		if err := rt.RegisterRedeemer(a); err != nil {
			log.Fatal().Err(err).Str("asset", ac.Symbol).Msg("register redeemer")
		}
		log.Info().Str("asset", ac.Symbol).Bool("staking", ac.Staking).Msg("asset registered")
	}

	// --- Surplus extractor ---
	extractor, err := surplus.New(owner, rt, log)
	if err != nil {
		log.Fatal().Err(err).Msg("extractor init")
	}

	// --- Restore state ---
	if snap != nil {
		rt.Restore(snap.Router)
		if err := book.Restore(snap.Principal); err != nil {
			log.Fatal().Err(err).Msg("restore principal book")
		}
		extractor.Restore(snap.Extractor)
		log.Info().Int64("sequence", snap.Sequence).Msg("state restored")
	}
	if err := rt.SetWithdrawer(owner, extractor.Identity(), true); err != nil {
		log.Fatal().Err(err).Msg("grant extractor withdrawer role")
	}

	// --- HTTP server ---
	srv := server.New(rt, extractor, queries, health, metrics, log)

	errChan := make(chan error, 8)

	// Ops loop: the single goroutine that touches the router.
	go func() {
		errChan <- srv.RunOps(ctx)
	}()

	if db != nil {
		worker := persistence.NewWorker(db, persistChan, cfg.Persist.BatchSize, cfg.Persist.FlushTimeout, metrics, log)
		go func() {
			errChan <- worker.Run(ctx)
		}()
	}

	if js != nil {
		publisher := publish.NewPublisher(js, publishChan, metrics, log)
		go func() {
			errChan <- publisher.Run(ctx)
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Engine(),
	}
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:    cfg.Server.MetricsAddr,
			Handler: metricsMux,
		}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		log.Info().Str("addr", cfg.Server.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	if snapMgr != nil {
		go runPeriodicSnapshots(ctx, srv, rt, book, extractor, snapMgr, metrics, cfg.Snapshot.Interval, log)
	}

	health.SetReady(true)
	log.Info().
		Str("http", cfg.Server.HTTPAddr).
		Str("metrics", cfg.Server.MetricsAddr).
		Int("assets", len(cfg.Assets)).
		Msg("yield strategy router ready")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("goroutine failed, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Final snapshot before cancelling the ops loop, while it can still
	// serialize the read.
	if snapMgr != nil {
		if err := takeSnapshot(shutdownCtx, srv, rt, book, extractor, snapMgr, metrics); err != nil {
			log.Error().Err(err).Msg("final snapshot failed")
		} else {
			log.Info().Msg("final snapshot saved")
		}
	}

	cancel()
	close(persistChan)
	close(publishChan)

	// Give the workers a moment for their shutdown flush.
	time.Sleep(200 * time.Millisecond)

	log.Info().Msg("shutdown complete")
}

func runPeriodicSnapshots(
	ctx context.Context,
	srv *server.Server,
	rt *router.Router,
	book *ledger.PrincipalBook,
	extractor *surplus.Extractor,
	snapMgr *persistence.SnapshotManager,
	metrics *observability.Metrics,
	interval time.Duration,
	log zerolog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := takeSnapshot(ctx, srv, rt, book, extractor, snapMgr, metrics); err != nil {
				log.Error().Err(err).Msg("periodic snapshot failed")
			}
		}
	}
}

func takeSnapshot(
	ctx context.Context,
	srv *server.Server,
	rt *router.Router,
	book *ledger.PrincipalBook,
	extractor *surplus.Extractor,
	snapMgr *persistence.SnapshotManager,
	metrics *observability.Metrics,
) error {
	start := time.Now()

	var snap persistence.SnapshotData
	if err := srv.Submit(ctx, func() {
		state := rt.Snapshot()
		snap = persistence.SnapshotData{
			Sequence:  state.Sequence,
			Router:    state,
			Principal: book.Snapshot(),
			Extractor: extractor.Config(),
			CreatedAt: time.Now().UTC(),
		}
	}); err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	if err := snapMgr.SaveSnapshot(ctx, &snap); err != nil {
		return err
	}

	if metrics != nil {
		metrics.SnapshotTaken.Inc()
		metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
		metrics.SnapshotLastSeq.Set(float64(snap.Sequence))
		metrics.Sequence.Set(float64(snap.Sequence))
	}
	return nil
}
