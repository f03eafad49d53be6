// Command shardd runs one Emberwild shard: the zone simulation, the HTTP
// surface, the merchant economy, and (when configured) the chain-backed gold
// ledger, auction cache, and LLM-driven agents.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emberwild/shard/internal/agent"
	"github.com/emberwild/shard/internal/api"
	"github.com/emberwild/shard/internal/auction"
	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/config"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/game"
	"github.com/emberwild/shard/internal/ledger"
	"github.com/emberwild/shard/internal/llm"
	"github.com/emberwild/shard/internal/merchant"
	"github.com/emberwild/shard/internal/store"
	"github.com/emberwild/shard/internal/techniques"
	"github.com/emberwild/shard/internal/world"
)

const auctionRefreshInterval = 15 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Emberwild shard starting")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Catalog ───────────────────────────────────────────────────────
	cat, err := catalog.Load("")
	if err != nil {
		slog.Error("catalog load failed", "err", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded",
		"items", len(cat.Items()),
		"recipes", len(cat.Recipes()),
		"techniques", len(cat.Techniques()),
		"zones", len(cat.ZoneIDs()),
	)

	// ── Chain driver ──────────────────────────────────────────────────
	var driver chain.Driver
	var eth *chain.Eth
	if cfg.ChainRPCURL != "" {
		eth, err = chain.NewEth(chain.EthConfig{
			RPCURL:            cfg.ChainRPCURL,
			ChainID:           cfg.ChainID,
			ServerPrivateKey:  cfg.ServerPrivateKey,
			GoldContract:      cfg.GoldContract,
			ItemContract:      cfg.ItemContract,
			CharacterContract: cfg.CharacterContract,
		})
		if err != nil {
			slog.Error("chain driver init failed", "err", err)
			os.Exit(1)
		}
		if err := eth.RebuildCache(ctx); err != nil {
			slog.Warn("item cache rebuild failed, balances fall back to view calls", "err", err)
		}
		driver = eth
	} else {
		slog.Info("CHAIN_RPC_URL not set, using stub ledger")
		driver = chain.NewStub()
	}

	// ── Persistence ───────────────────────────────────────────────────
	var st *store.Store
	if cfg.RedisURL != "" {
		kv, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		st = store.New(kv)
		slog.Info("store backed by redis")
	} else {
		st = store.New(nil)
		slog.Warn("REDIS_URL not set, using in-memory store (state lost on restart)")
	}

	// ── World ─────────────────────────────────────────────────────────
	bus := events.NewBus(500)
	reg := techniques.NewRegistry(cat)
	rt := world.NewRuntime(cat, driver, bus, reg, 0)

	merchants := merchant.NewManager(cat, driver, bus)
	for _, zoneID := range cat.ZoneIDs() {
		layout, err := cat.ZoneLayout(zoneID)
		if err != nil {
			slog.Error("zone layout missing", "zone", zoneID, "err", err)
			os.Exit(1)
		}
		if _, err := rt.GetOrCreateZone(zoneID); err != nil {
			slog.Error("zone materialize failed", "zone", zoneID, "err", err)
			os.Exit(1)
		}
		for _, npc := range layout.NPCs {
			if npc.Type == "merchant" {
				merchants.Register(zoneID, npc.Name, "", npc.Stock)
			}
		}
	}
	go merchants.Run(ctx)

	svc := game.NewService(rt, cat, driver, ledger.New(), st, bus, merchants)

	// ── Auction cache ─────────────────────────────────────────────────
	var auctions *auction.Cache
	if eth != nil && cfg.AuctionHouseContract != "" {
		os.MkdirAll("data", 0755)
		auctions, err = auction.Open("data/auction.db", eth.Client(), cfg.AuctionHouseContract)
		if err != nil {
			slog.Error("auction cache open failed", "err", err)
			os.Exit(1)
		}
		defer auctions.Close()
		if err := auctions.Rebuild(ctx); err != nil {
			slog.Warn("auction cache rebuild failed", "err", err)
		}
		go auctions.Watch(ctx, auctionRefreshInterval)
	} else {
		slog.Info("auction house cache disabled (no chain or contract configured)")
	}

	// ── Agents ────────────────────────────────────────────────────────
	llmClient := llm.NewClient(cfg.LLMAPIKey, cfg.LLMModel)
	if llmClient.Enabled() {
		slog.Info("llm client enabled", "model", cfg.LLMModel)
	} else {
		slog.Warn("LLM_API_KEY not set, agent chat uses scripted replies")
	}

	var agents *agent.Manager
	if cfg.EncryptionKey != "" {
		agents = agent.NewManager(svc, st, driver, llmClient, cfg.EncryptionKey)
	} else {
		slog.Warn("ENCRYPTION_KEY not set, agent deployment disabled")
	}

	// ── Tick loop ─────────────────────────────────────────────────────
	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rt.TickAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	slog.Info("tick loop running", "interval", cfg.TickInterval)

	// ── HTTP API ──────────────────────────────────────────────────────
	srv := &api.Server{
		Svc:     svc,
		Agents:  agents,
		Auction: auctions,
		Bus:     bus,
		Port:    cfg.Port,
	}
	srv.Start()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "err", err)
	}
	if agents != nil {
		agents.StopAll()
	}
	slog.Info("shard stopped")
}
