// Package config loads shard configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the shard reads from the environment.
type Config struct {
	Port   int
	APIURL string

	// Chain connection. Empty RPCURL selects the stub driver.
	ChainRPCURL      string
	ChainID          int64
	ServerPrivateKey string

	// Contract addresses.
	GoldContract         string
	ItemContract         string
	CharacterContract    string
	ReputationContract   string
	AuctionHouseContract string

	// Persistence. Empty RedisURL falls back to the in-memory store.
	RedisURL      string
	EncryptionKey string

	// LLM provider.
	LLMAPIKey string
	LLMModel  string

	// Simulation.
	TickInterval time.Duration
}

// Load reads configuration from the environment. Missing optional values get
// defaults; a missing encryption key is an error only when agents are deployed,
// so it is not validated here.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg := &Config{
		Port:                 envInt("PORT", 3001),
		APIURL:               envStr("API_URL", ""),
		ChainRPCURL:          os.Getenv("CHAIN_RPC_URL"),
		ServerPrivateKey:     os.Getenv("SERVER_PRIVATE_KEY"),
		GoldContract:         os.Getenv("GOLD_CONTRACT_ADDRESS"),
		ItemContract:         os.Getenv("ITEM_CONTRACT_ADDRESS"),
		CharacterContract:    os.Getenv("CHARACTER_CONTRACT_ADDRESS"),
		ReputationContract:   os.Getenv("REPUTATION_CONTRACT_ADDRESS"),
		AuctionHouseContract: os.Getenv("AUCTION_HOUSE_CONTRACT_ADDRESS"),
		RedisURL:             os.Getenv("REDIS_URL"),
		EncryptionKey:        os.Getenv("ENCRYPTION_KEY"),
		LLMAPIKey:            os.Getenv("LLM_API_KEY"),
		LLMModel:             envStr("LLM_MODEL", "claude-haiku-4-5-20251001"),
		TickInterval:         time.Duration(envInt("SHARD_TICK_MS", 1000)) * time.Millisecond,
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse CHAIN_ID: %w", err)
		}
		cfg.ChainID = id
	}

	if cfg.APIURL == "" {
		cfg.APIURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	if cfg.ChainRPCURL != "" && cfg.ServerPrivateKey == "" {
		return nil, fmt.Errorf("CHAIN_RPC_URL set but SERVER_PRIVATE_KEY missing")
	}

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
