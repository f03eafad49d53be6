package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// listCap bounds every per-wallet list (diary, chat history).
const listCap = 200

// Store composes the in-memory backend with an optional external one.
type Store struct {
	memory   *Memory
	external KV // nil when REDIS_URL is not configured
}

// New creates a Store. external may be nil.
func New(external KV) *Store {
	return &Store{memory: NewMemory(), external: external}
}

// External reports whether an external backend is configured.
func (s *Store) External() bool { return s.external != nil }

func walletKey(prefix, wallet string) string {
	return prefix + ":" + strings.ToLower(wallet)
}

// hset writes memory synchronously and the external store fire-and-forget.
func (s *Store) hset(key string, fields map[string]string) {
	_ = s.memory.HSet(context.Background(), key, fields)
	if s.external == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.external.HSet(ctx, key, fields); err != nil {
			slog.Warn("external store write failed", "key", key, "error", err)
		}
	}()
}

func (s *Store) hgetall(ctx context.Context, key string) (map[string]string, error) {
	if s.external != nil {
		m, err := s.external.HGetAll(ctx, key)
		if err == nil {
			return m, nil
		}
		if err != ErrMissing {
			slog.Warn("external store read failed, using memory", "key", key, "error", err)
		} else {
			// Authoritative miss from the external store still consults
			// memory: a write may not have landed externally yet.
			if m, memErr := s.memory.HGetAll(ctx, key); memErr == nil {
				return m, nil
			}
			return nil, ErrMissing
		}
	}
	return s.memory.HGetAll(ctx, key)
}

func (s *Store) lpushTrim(key string, value string) {
	ctx := context.Background()
	_ = s.memory.LPush(ctx, key, value)
	_ = s.memory.LTrim(ctx, key, 0, listCap-1)
	if s.external == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.external.LPush(ctx, key, value); err != nil {
			slog.Warn("external store push failed", "key", key, "error", err)
			return
		}
		_ = s.external.LTrim(ctx, key, 0, listCap-1)
	}()
}

func (s *Store) lrange(ctx context.Context, key string, limit int64) []string {
	if s.external != nil {
		if vals, err := s.external.LRange(ctx, key, 0, limit-1); err == nil && len(vals) > 0 {
			return vals
		}
	}
	vals, _ := s.memory.LRange(ctx, key, 0, limit-1)
	return vals
}

// ── Character saves ───────────────────────────────────────────────

// CharacterSave is the durable projection of a player character, written on
// mutation and read back at spawn.
type CharacterSave struct {
	Name                  string   `json:"name"`
	Level                 int      `json:"level"`
	XP                    int64    `json:"xp"`
	RaceID                string   `json:"raceId"`
	ClassID               string   `json:"classId"`
	Gender                string   `json:"gender"`
	Zone                  string   `json:"zone"`
	X                     float64  `json:"x"`
	Y                     float64  `json:"y"`
	Kills                 int      `json:"kills"`
	CompletedQuests       []string `json:"completedQuests"`
	LearnedTechniques     []string `json:"learnedTechniques"`
	Professions           []string `json:"professions"`
	SignatureTechniqueID  string   `json:"signatureTechniqueId,omitempty"`
	UltimateTechniqueID   string   `json:"ultimateTechniqueId,omitempty"`
	CharacterTokenID      int64    `json:"characterTokenId,omitempty"`
}

// SaveCharacter persists the save under the lowercase wallet.
func (s *Store) SaveCharacter(wallet string, save *CharacterSave) {
	quests, _ := json.Marshal(save.CompletedQuests)
	techs, _ := json.Marshal(save.LearnedTechniques)
	profs, _ := json.Marshal(save.Professions)
	s.hset(walletKey("char", wallet), map[string]string{
		"name":                 save.Name,
		"level":                strconv.Itoa(save.Level),
		"xp":                   strconv.FormatInt(save.XP, 10),
		"raceId":               save.RaceID,
		"classId":              save.ClassID,
		"gender":               save.Gender,
		"zone":                 save.Zone,
		"x":                    strconv.FormatFloat(save.X, 'f', 2, 64),
		"y":                    strconv.FormatFloat(save.Y, 'f', 2, 64),
		"kills":                strconv.Itoa(save.Kills),
		"completedQuests":      string(quests),
		"learnedTechniques":    string(techs),
		"professions":          string(profs),
		"signatureTechniqueId": save.SignatureTechniqueID,
		"ultimateTechniqueId":  save.UltimateTechniqueID,
		"characterTokenId":     strconv.FormatInt(save.CharacterTokenID, 10),
	})
}

// LoadCharacter fetches the wallet's save, or ErrMissing.
func (s *Store) LoadCharacter(ctx context.Context, wallet string) (*CharacterSave, error) {
	m, err := s.hgetall(ctx, walletKey("char", wallet))
	if err != nil {
		return nil, err
	}
	save := &CharacterSave{
		Name:                 m["name"],
		RaceID:               m["raceId"],
		ClassID:              m["classId"],
		Gender:               m["gender"],
		Zone:                 m["zone"],
		SignatureTechniqueID: m["signatureTechniqueId"],
		UltimateTechniqueID:  m["ultimateTechniqueId"],
	}
	save.Level, _ = strconv.Atoi(m["level"])
	save.XP, _ = strconv.ParseInt(m["xp"], 10, 64)
	save.X, _ = strconv.ParseFloat(m["x"], 64)
	save.Y, _ = strconv.ParseFloat(m["y"], 64)
	save.Kills, _ = strconv.Atoi(m["kills"])
	save.CharacterTokenID, _ = strconv.ParseInt(m["characterTokenId"], 10, 64)
	_ = json.Unmarshal([]byte(m["completedQuests"]), &save.CompletedQuests)
	_ = json.Unmarshal([]byte(m["learnedTechniques"]), &save.LearnedTechniques)
	_ = json.Unmarshal([]byte(m["professions"]), &save.Professions)
	if save.Name == "" {
		return nil, ErrMissing
	}
	return save, nil
}

// ── Diary ─────────────────────────────────────────────────────────

// DiaryEntry is one narrative record of a character's gameplay.
type DiaryEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	ZoneID    string         `json:"zoneId"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Action    string         `json:"action"`
	Headline  string         `json:"headline"`
	Narrative string         `json:"narrative,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// AppendDiary records an entry, newest first, capped at 200.
func (s *Store) AppendDiary(wallet string, entry *DiaryEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("diary marshal failed", "wallet", wallet, "error", err)
		return
	}
	s.lpushTrim(walletKey("diary", wallet), string(data))
}

// Diary returns up to limit entries, newest first.
func (s *Store) Diary(ctx context.Context, wallet string, limit int64) []DiaryEntry {
	if limit <= 0 || limit > listCap {
		limit = listCap
	}
	raw := s.lrange(ctx, walletKey("diary", wallet), limit)
	entries := make([]DiaryEntry, 0, len(raw))
	for _, r := range raw {
		var e DiaryEntry
		if json.Unmarshal([]byte(r), &e) == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

// ── Agent config ──────────────────────────────────────────────────

// AgentConfig is the per-wallet autonomous-agent configuration.
type AgentConfig struct {
	Enabled     bool      `json:"enabled"`
	Focus       string    `json:"focus"`    // questing, combat, enchanting, crafting, gathering, alchemy, cooking, trading, idle
	Strategy    string    `json:"strategy"` // aggressive, balanced, defensive
	TargetZone  string    `json:"targetZone,omitempty"`
	ZoneID      string    `json:"zoneId,omitempty"`
	EntityID    string    `json:"entityId,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SaveAgentConfig persists the wallet's agent configuration.
func (s *Store) SaveAgentConfig(wallet string, cfg *AgentConfig) {
	cfg.LastUpdated = time.Now()
	data, _ := json.Marshal(cfg)
	s.hset(walletKey("agent", wallet), map[string]string{"config": string(data)})
}

// LoadAgentConfig fetches the wallet's agent configuration, or ErrMissing.
func (s *Store) LoadAgentConfig(ctx context.Context, wallet string) (*AgentConfig, error) {
	m, err := s.hgetall(ctx, walletKey("agent", wallet))
	if err != nil {
		return nil, err
	}
	var cfg AgentConfig
	if err := json.Unmarshal([]byte(m["config"]), &cfg); err != nil {
		return nil, fmt.Errorf("parse agent config: %w", err)
	}
	return &cfg, nil
}

// ChatMessage is one exchange in the agent chat transcript.
type ChatMessage struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendChat records a chat message, newest first, capped at 200.
func (s *Store) AppendChat(wallet string, msg *ChatMessage) {
	data, _ := json.Marshal(msg)
	s.lpushTrim(walletKey("agentchat", wallet), string(data))
}

// ChatHistory returns up to limit messages, newest first.
func (s *Store) ChatHistory(ctx context.Context, wallet string, limit int64) []ChatMessage {
	if limit <= 0 || limit > listCap {
		limit = listCap
	}
	raw := s.lrange(ctx, walletKey("agentchat", wallet), limit)
	msgs := make([]ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m ChatMessage
		if json.Unmarshal([]byte(r), &m) == nil {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// ── Custodial wallets ─────────────────────────────────────────────

// SaveCustodialKey stores the encrypted keystore blob for an agent wallet.
func (s *Store) SaveCustodialKey(wallet string, blob []byte) {
	s.hset(walletKey("wallet", wallet), map[string]string{"keystore": string(blob)})
}

// LoadCustodialKey fetches the encrypted keystore blob, or ErrMissing.
func (s *Store) LoadCustodialKey(ctx context.Context, wallet string) ([]byte, error) {
	m, err := s.hgetall(ctx, walletKey("wallet", wallet))
	if err != nil {
		return nil, err
	}
	blob, ok := m["keystore"]
	if !ok || blob == "" {
		return nil, ErrMissing
	}
	return []byte(blob), nil
}

// ── Reputation ────────────────────────────────────────────────────

// SaveReputation stores a wallet's standing with one faction.
func (s *Store) SaveReputation(wallet, faction string, score int) {
	s.hset(walletKey("reputation", wallet), map[string]string{faction: strconv.Itoa(score)})
}

// Reputation returns every faction standing for a wallet.
func (s *Store) Reputation(ctx context.Context, wallet string) map[string]int {
	out := make(map[string]int)
	m, err := s.hgetall(ctx, walletKey("reputation", wallet))
	if err != nil {
		return out
	}
	for faction, v := range m {
		if n, err := strconv.Atoi(v); err == nil {
			out[faction] = n
		}
	}
	return out
}
