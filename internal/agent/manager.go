// Package agent runs autonomous characters: custodial wallets acting through
// the same action pipeline as human players, steered by per-focus policies
// and, when configured, an LLM.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/game"
	"github.com/emberwild/shard/internal/llm"
	"github.com/emberwild/shard/internal/store"
	"github.com/google/uuid"
)

// Starter grant for a freshly deployed agent: 1 gold.
const starterCopper = 10_000

// Manager owns every agent runner, one per custodial wallet.
type Manager struct {
	svc     *game.Service
	store   *store.Store
	chain   chain.Driver
	llm     *llm.Client
	keyAuth string // passphrase for custodial key encryption

	mu      sync.Mutex
	runners map[string]*Runner
}

func NewManager(svc *game.Service, st *store.Store, driver chain.Driver, client *llm.Client, keyAuth string) *Manager {
	return &Manager{
		svc:     svc,
		store:   st,
		chain:   driver,
		llm:     client,
		keyAuth: keyAuth,
		runners: make(map[string]*Runner),
	}
}

// DeployRequest describes a new autonomous character.
type DeployRequest struct {
	Name     string `json:"name"`
	RaceID   string `json:"raceId"`
	ClassID  string `json:"classId"`
	ZoneID   string `json:"zoneId"`
	Focus    string `json:"focus"`
	Strategy string `json:"strategy"`
}

// DeployResult reports the provisioned agent.
type DeployResult struct {
	Wallet           string `json:"wallet"`
	CharacterTokenID int64  `json:"characterTokenId"`
	EntityID         string `json:"entityId"`
	ZoneID           string `json:"zoneId"`
	State            string `json:"state"`
}

// Deploy provisions an agent end to end: custodial wallet, starter gold,
// character NFT, spawn, config, runner. Fails if the first loop iteration
// doesn't confirm within its deadline.
func (m *Manager) Deploy(ctx context.Context, req *DeployRequest) (*DeployResult, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if req.ZoneID == "" {
		return nil, fmt.Errorf("zoneId is required")
	}
	if req.Focus == "" {
		req.Focus = "gathering"
	}
	if req.Strategy == "" {
		req.Strategy = "balanced"
	}

	wallet, err := m.createCustodialWallet()
	if err != nil {
		return nil, fmt.Errorf("create custodial wallet: %w", err)
	}

	if _, err := m.chain.MintGold(ctx, wallet, starterCopper); err != nil {
		return nil, fmt.Errorf("starter gold: %w", err)
	}
	charID, _, err := m.chain.MintCharacter(ctx, wallet, req.Name)
	if err != nil {
		return nil, fmt.Errorf("mint character: %w", err)
	}

	spawned, err := m.svc.Spawn(ctx, wallet, &game.SpawnRequest{
		ZoneID:  req.ZoneID,
		Name:    req.Name,
		RaceID:  req.RaceID,
		ClassID: req.ClassID,
	})
	if err != nil {
		return nil, fmt.Errorf("spawn agent: %w", err)
	}

	m.store.SaveAgentConfig(wallet, &store.AgentConfig{
		Enabled:  true,
		Focus:    req.Focus,
		Strategy: req.Strategy,
		ZoneID:   spawned.Zone,
		EntityID: spawned.Spawned.ID,
	})

	runner := newRunner(m, wallet)
	m.mu.Lock()
	m.runners[strings.ToLower(wallet)] = runner
	m.mu.Unlock()

	if err := runner.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.runners, strings.ToLower(wallet))
		m.mu.Unlock()
		return nil, fmt.Errorf("start runner: %w", err)
	}

	slog.Info("agent deployed", "wallet", wallet, "name", req.Name, "focus", req.Focus)
	return &DeployResult{
		Wallet:           wallet,
		CharacterTokenID: charID,
		EntityID:         spawned.Spawned.ID,
		ZoneID:           spawned.Zone,
		State:            runner.State(),
	}, nil
}

// createCustodialWallet generates a key, encrypts it with the server
// passphrase, and persists the keystore blob.
func (m *Manager) createCustodialWallet() (string, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	addr := crypto.PubkeyToAddress(pk.PublicKey)
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    addr,
		PrivateKey: pk,
	}
	blob, err := keystore.EncryptKey(key, m.keyAuth, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return "", err
	}
	wallet := strings.ToLower(addr.Hex())
	m.store.SaveCustodialKey(wallet, blob)
	return wallet, nil
}

// Stop halts the wallet's runner, observing the loop exit before returning.
func (m *Manager) Stop(ctx context.Context, wallet string) error {
	m.mu.Lock()
	runner, ok := m.runners[strings.ToLower(wallet)]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no agent running for %s", wallet)
	}
	runner.Stop()

	if cfg, err := m.store.LoadAgentConfig(ctx, wallet); err == nil {
		cfg.Enabled = false
		m.store.SaveAgentConfig(wallet, cfg)
	}

	m.mu.Lock()
	delete(m.runners, strings.ToLower(wallet))
	m.mu.Unlock()
	return nil
}

// StopAll halts every runner; used at shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.runners = make(map[string]*Runner)
	m.mu.Unlock()

	for _, r := range runners {
		r.Stop()
	}
}

// Status reports the runner state and config for a wallet.
type Status struct {
	Wallet     string             `json:"wallet"`
	State      string             `json:"state"`
	Config     *store.AgentConfig `json:"config,omitempty"`
	Iterations int64              `json:"iterations"`
	LastError  string             `json:"lastError,omitempty"`
	LastAction string             `json:"lastAction,omitempty"`
	LastActive time.Time          `json:"lastActive,omitempty"`
}

func (m *Manager) Status(ctx context.Context, wallet string) *Status {
	st := &Status{Wallet: wallet, State: StateStopped}
	m.mu.Lock()
	runner, ok := m.runners[strings.ToLower(wallet)]
	m.mu.Unlock()
	if ok {
		st.State = runner.State()
		st.Iterations, st.LastAction, st.LastError, st.LastActive = runner.Telemetry()
	}
	if cfg, err := m.store.LoadAgentConfig(ctx, wallet); err == nil {
		st.Config = cfg
	}
	return st
}
