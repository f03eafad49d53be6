package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emberwild/shard/internal/llm"
	"github.com/emberwild/shard/internal/store"
)

const chatMaxTokens = 512

var chatTools = []llm.Tool{
	{
		Name:        "update_focus",
		Description: "Change what the agent spends its time on. Optionally set a strategy or a zone to travel to.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"focus": map[string]any{
					"type": "string",
					"enum": []string{"gathering", "combat", "crafting", "alchemy", "cooking",
						"enchanting", "trading", "questing", "idle"},
				},
				"strategy": map[string]any{
					"type": "string",
					"enum": []string{"aggressive", "balanced", "defensive"},
				},
				"targetZone": map[string]any{"type": "string"},
			},
			"required": []string{"focus"},
		},
	},
	{
		Name:        "take_action",
		Description: "Perform one immediate action instead of waiting for the next loop iteration.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{"gather", "attack", "craft", "sell", "travel", "learn_profession"},
				},
				"professionId": map[string]any{"type": "string"},
			},
			"required": []string{"action"},
		},
	},
}

// Chat relays a player message to their agent. Tool calls emitted by the
// model are applied synchronously before the reply is returned, so "go mine
// ore" changes behavior by the next loop iteration.
func (m *Manager) Chat(ctx context.Context, wallet, message string) (string, error) {
	cfg, err := m.store.LoadAgentConfig(ctx, wallet)
	if err != nil {
		return "", fmt.Errorf("no agent for this wallet")
	}

	m.store.AppendChat(wallet, &store.ChatMessage{Role: "user", Content: message, Timestamp: time.Now()})

	reply := m.cannedReply(cfg)
	if m.llm.Enabled() {
		if r, err := m.llmReply(ctx, wallet, cfg, message); err == nil {
			reply = r
		} else {
			slog.Warn("agent chat fell back to canned reply", "wallet", wallet, "err", err)
		}
	}

	m.store.AppendChat(wallet, &store.ChatMessage{Role: "assistant", Content: reply, Timestamp: time.Now()})
	return reply, nil
}

func (m *Manager) llmReply(ctx context.Context, wallet string, cfg *store.AgentConfig, message string) (string, error) {
	sheet, err := m.svc.Character(ctx, wallet)
	if err != nil {
		return "", err
	}

	system := fmt.Sprintf(
		"You are %s, a level %d %s %s adventuring in the world of Emberwild. "+
			"You are currently in %s, focused on %s with a %s strategy. "+
			"You have %s. Stay in character: you are a fantasy adventurer, not an assistant. "+
			"When the player asks you to change what you're doing, call update_focus. "+
			"When they ask for one specific action right now, call take_action. "+
			"Keep replies to a sentence or two.",
		sheet.Entity.Name, sheet.Entity.Level, sheet.Entity.RaceID, sheet.Entity.ClassID,
		cfg.ZoneID, cfg.Focus, cfg.Strategy, sheet.GoldLabel,
	)

	// Replay recent history oldest-first so the model sees the conversation.
	history := m.store.ChatHistory(ctx, wallet, 10)
	msgs := make([]llm.Message, 0, len(history)+1)
	for i := len(history) - 1; i >= 0; i-- {
		msgs = append(msgs, llm.Message{Role: history[i].Role, Content: history[i].Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: message})

	res, err := m.llm.Call(ctx, system, msgs, chatTools, chatMaxTokens)
	if err != nil {
		return "", err
	}
	res.Text = llm.StripFences(res.Text)

	for _, call := range res.ToolCalls {
		if note := m.applyToolCall(ctx, wallet, cfg, call); note != "" {
			if res.Text != "" {
				res.Text += " "
			}
			res.Text += note
		}
	}
	if res.Text == "" {
		res.Text = m.cannedReply(cfg)
	}
	return res.Text, nil
}

// applyToolCall executes one model-requested change and returns a short
// confirmation to append to the reply.
func (m *Manager) applyToolCall(ctx context.Context, wallet string, cfg *store.AgentConfig, call llm.ToolCall) string {
	switch call.Name {
	case "update_focus":
		var in struct {
			Focus      string `json:"focus"`
			Strategy   string `json:"strategy"`
			TargetZone string `json:"targetZone"`
		}
		if err := json.Unmarshal(call.Input, &in); err != nil || in.Focus == "" {
			return ""
		}
		cfg.Focus = in.Focus
		if in.Strategy != "" {
			cfg.Strategy = in.Strategy
		}
		if in.TargetZone != "" {
			cfg.TargetZone = in.TargetZone
		}
		m.store.SaveAgentConfig(wallet, cfg)
		return fmt.Sprintf("(focus set to %s)", in.Focus)

	case "take_action":
		var in struct {
			Action       string `json:"action"`
			ProfessionID string `json:"professionId"`
		}
		if err := json.Unmarshal(call.Input, &in); err != nil || in.Action == "" {
			return ""
		}
		return m.immediateAction(ctx, wallet, cfg, in.Action, in.ProfessionID)
	}
	return ""
}

func (m *Manager) immediateAction(ctx context.Context, wallet string, cfg *store.AgentConfig, action, professionID string) string {
	m.mu.Lock()
	runner, ok := m.runners[strings.ToLower(wallet)]
	m.mu.Unlock()
	if !ok {
		return "(agent is not running)"
	}

	var (
		note string
		err  error
	)
	switch action {
	case "gather":
		note, err = runner.actGathering(ctx, cfg.ZoneID, cfg.EntityID)
	case "attack":
		note, err = runner.actCombat(ctx, cfg.ZoneID, cfg.EntityID, cfg.Strategy)
	case "craft":
		note, err = runner.actCrafting(ctx, cfg.ZoneID, cfg.EntityID)
	case "sell":
		note, err = runner.actTrading(ctx, cfg.ZoneID, cfg.EntityID)
	case "travel":
		note, err = runner.travelToward(ctx, cfg)
	case "learn_profession":
		if professionID == "" {
			return "(no profession named)"
		}
		err = m.svc.LearnProfession(ctx, wallet, cfg.ZoneID, cfg.EntityID, professionID)
		note = fmt.Sprintf("learned %s", professionID)
	default:
		return ""
	}
	if err != nil {
		return fmt.Sprintf("(tried to %s but: %v)", action, err)
	}
	runner.note(note)
	return fmt.Sprintf("(%s)", note)
}

// cannedReply keeps the chat surface alive through LLM outages.
func (m *Manager) cannedReply(cfg *store.AgentConfig) string {
	switch cfg.Focus {
	case "combat":
		return "Steel stays sharp. I'm hunting whatever crosses my path out here."
	case "crafting", "alchemy", "cooking", "enchanting":
		return "Busy at the bench. The materials won't work themselves."
	case "trading":
		return "Coin for goods, goods for coin. I'm making the rounds of the merchants."
	case "questing":
		return "Running errands for the locals. The quest giver always has more work."
	case "idle":
		return "Resting for now. Say the word and I'll get moving."
	default:
		return "Out in the field gathering what the land offers. What do you need?"
	}
}
