package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nandahq/agentdir/internal/api"
	"github.com/nandahq/agentdir/internal/config"
	"github.com/nandahq/agentdir/internal/events"
	"github.com/nandahq/agentdir/internal/facts"
	"github.com/nandahq/agentdir/internal/federation"
	"github.com/nandahq/agentdir/internal/health"
	"github.com/nandahq/agentdir/internal/registry"
	pgstore "github.com/nandahq/agentdir/internal/store"
	"github.com/nandahq/agentdir/internal/taxonomy"
	"github.com/nandahq/agentdir/internal/translate"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting agentdir...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/agentdir.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Load the skill taxonomy. Catalog problems degrade matching but never
	// stop the service.
	index, warnings := taxonomy.Load(cfg.Taxonomy.CatalogDir)
	for _, w := range warnings {
		logger.Warn("taxonomy catalog issue", zap.String("detail", w.String()))
	}
	logger.Info("Taxonomy loaded",
		zap.String("dir", cfg.Taxonomy.CatalogDir),
		zap.Int("skills", index.Len()))

	// The AgentFacts schema is required; a broken schema is fatal.
	validator, err := facts.NewValidator(cfg.Schema.Path)
	if err != nil {
		logger.Fatal("failed to load AgentFacts schema", zap.String("path", cfg.Schema.Path), zap.Error(err))
	}

	translator, err := translate.New(index, validator, logger)
	if err != nil {
		logger.Fatal("failed to build translator", zap.Error(err))
	}

	regIndex := registry.NewIndex(logger)

	// Initialize PostgreSQL store
	ctx := context.Background()
	var store *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(ctx, cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(ctx, "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			store = ps

			agents, loadErr := ps.LoadAgents(ctx)
			if loadErr != nil {
				logger.Warn("failed to load agents from DB", zap.Error(loadErr))
			} else {
				for _, rec := range agents {
					regIndex.Restore(rec)
				}
				logger.Info("Loaded agents from DB", zap.Int("count", len(agents)))
			}
		}
	}

	// Initialize sync event bus
	var bus *events.Bus
	if cfg.Database.Redis.URL != "" {
		b, busErr := events.NewBus(cfg.Database.Redis.URL, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, running without sync events", zap.Error(busErr))
		} else {
			bus = b
		}
	}

	// Connect federation peers
	fedRouter := federation.NewRouter(logger)
	var peers []*federation.PeerAdapter
	for _, pc := range cfg.Federation {
		peer, peerErr := federation.NewPeerAdapter(pc.RegistryID, pc.BaseURL, pc.HealthAddr, translator, logger)
		if peerErr != nil {
			logger.Warn("peer directory unavailable", zap.String("registry_id", pc.RegistryID), zap.Error(peerErr))
			continue
		}
		info := peer.Info(ctx)
		logger.Info("Peer directory configured",
			zap.String("registry_id", info.RegistryID),
			zap.String("base_url", info.BaseURL),
			zap.Bool("healthy", info.Healthy))
		fedRouter.Register(peer)
		peers = append(peers, peer)
	}

	// Start the health monitor when persistence is available; archiving an
	// unresponsive agent needs the deleted_agents audit table.
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	if store != nil {
		interval := time.Duration(cfg.Health.IntervalSeconds) * time.Second
		monitor := health.New(regIndex, store, bus, interval, cfg.Health.Threshold, logger)
		go monitor.Run(monitorCtx)
		logger.Info("Health monitor started", zap.String("monitor", monitor.String()))
	}

	// Periodic registry snapshot to PostgreSQL
	if store != nil {
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-monitorCtx.Done():
					return
				case <-ticker.C:
					persistSnapshot(ctx, store, regIndex, logger)
				}
			}
		}()
	}

	// Build HTTP handler
	handler := api.NewHandler(regIndex, translator, bus, fedRouter, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "6900"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("agentdir listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down agentdir...")
	stopMonitor()
	srv.Shutdown(ctx)
	if store != nil {
		persistSnapshot(ctx, store, regIndex, logger)
		store.Close()
	}
	if bus != nil {
		bus.Close()
	}
	for _, p := range peers {
		p.Close()
	}
}

// persistSnapshot writes the current registry contents through the store.
func persistSnapshot(ctx context.Context, store *pgstore.Store, ix *registry.Index, logger *zap.Logger) {
	for _, rec := range ix.Snapshot() {
		if err := store.SaveAgent(ctx, &rec); err != nil {
			logger.Warn("snapshot save failed", zap.String("agent_id", rec.AgentID), zap.Error(err))
		}
	}
	for _, name := range ix.Clients() {
		c, ok := ix.Client(name)
		if !ok {
			continue
		}
		if err := store.SaveClient(ctx, c); err != nil {
			logger.Warn("client save failed", zap.String("client", name), zap.Error(err))
		}
	}
}
