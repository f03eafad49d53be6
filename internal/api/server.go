// Package api is the shard's HTTP surface. Reads are public; every mutating
// endpoint requires a wallet-signature bearer token, and the ownership checks
// downstream compare that wallet to the controlled entity's owner.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emberwild/shard/internal/agent"
	"github.com/emberwild/shard/internal/auction"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/game"
)

// Server wires the game service and its satellites to HTTP.
type Server struct {
	Svc     *game.Service
	Agents  *agent.Manager
	Auction *auction.Cache
	Bus     *events.Bus
	Auth    *Auth
	Port    int

	http *http.Server
}

// Start builds the mux and begins serving in a goroutine.
func (s *Server) Start() {
	if s.Auth == nil {
		s.Auth = NewAuth()
	}

	// Action endpoints share one limiter; chain writes are the scarce
	// resource behind them.
	actions := NewRateLimiter(120, time.Minute)
	agentOps := NewRateLimiter(20, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	// Auth.
	mux.HandleFunc("GET /auth/challenge", s.handleAuthChallenge)
	mux.HandleFunc("POST /auth/verify", s.handleAuthVerify)

	// Session.
	mux.HandleFunc("POST /spawn", s.limited(actions, s.handleSpawn))
	mux.HandleFunc("POST /logout", s.limited(actions, s.handleLogout))
	mux.HandleFunc("POST /command", s.limited(actions, s.handleCommand))

	// World reads.
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /items/catalog", s.handleItemCatalog)
	mux.HandleFunc("GET /techniques/catalog", s.handleTechniqueCatalog)
	mux.HandleFunc("GET /ws", s.handleWS)

	// Character.
	mux.HandleFunc("GET /character", s.authed(s.handleCharacter))
	mux.HandleFunc("GET /diary", s.authed(s.handleDiary))

	// Techniques.
	mux.HandleFunc("GET /techniques/known", s.authed(s.handleKnownTechniques))
	mux.HandleFunc("POST /techniques/learn", s.limited(actions, s.handleLearnTechnique))
	mux.HandleFunc("POST /techniques/use", s.limited(actions, s.handleUseTechnique))

	// Combat.
	mux.HandleFunc("POST /combat/attack", s.limited(actions, s.handleAttack))

	// Gathering.
	mux.HandleFunc("POST /mining/mine", s.limited(actions, s.handleMine))
	mux.HandleFunc("POST /herbalism/gather", s.limited(actions, s.handleHerb))
	mux.HandleFunc("POST /skinning/skin", s.limited(actions, s.handleSkin))
	mux.HandleFunc("POST /professions/learn", s.limited(actions, s.handleLearnProfession))

	// Crafting. Cooking and alchemy are the same pipeline at different
	// stations; the paths exist so clients can group by profession.
	mux.HandleFunc("POST /crafting/craft", s.limited(actions, s.handleCraft))
	mux.HandleFunc("POST /cooking/craft", s.limited(actions, s.handleCraft))
	mux.HandleFunc("POST /cooking/cook", s.limited(actions, s.handleCook))
	mux.HandleFunc("POST /alchemy/craft", s.limited(actions, s.handleCraft))
	mux.HandleFunc("POST /crafting/consume", s.limited(actions, s.handleConsume))

	// Equipment.
	mux.HandleFunc("POST /equipment/equip", s.limited(actions, s.handleEquip))
	mux.HandleFunc("POST /equipment/unequip", s.limited(actions, s.handleUnequip))
	mux.HandleFunc("POST /equipment/repair", s.limited(actions, s.handleRepair))

	// Shops.
	mux.HandleFunc("GET /shop/listings", s.handleShopListings)
	mux.HandleFunc("POST /shop/buy", s.limited(actions, s.handleBuy))
	mux.HandleFunc("POST /shop/sell", s.limited(actions, s.handleSell))

	// Auction house (event-sourced cache reads).
	mux.HandleFunc("GET /auctionhouse/listings", s.handleAuctionListings)
	mux.HandleFunc("GET /auctionhouse/listing/{id}", s.handleAuctionListing)
	mux.HandleFunc("GET /auctionhouse/mine", s.authed(s.handleAuctionMine))

	// Party & guild.
	mux.HandleFunc("GET /party", s.authed(s.handleParty))
	mux.HandleFunc("POST /party/create", s.limited(actions, s.handlePartyCreate))
	mux.HandleFunc("POST /party/join", s.limited(actions, s.handlePartyJoin))
	mux.HandleFunc("POST /party/leave", s.limited(actions, s.handlePartyLeave))
	mux.HandleFunc("GET /guild/reputation", s.authed(s.handleReputation))

	// Quests.
	mux.HandleFunc("GET /quests", s.authed(s.handleQuests))
	mux.HandleFunc("POST /quests/complete", s.limited(actions, s.handleQuestComplete))

	// Travel.
	mux.HandleFunc("GET /portals", s.handlePortals)
	mux.HandleFunc("POST /portals/use", s.limited(actions, s.handleUsePortal))
	mux.HandleFunc("POST /transition/auto", s.limited(actions, s.handleTransitionAuto))

	// Agents.
	mux.HandleFunc("POST /agent/deploy", s.limited(agentOps, s.handleAgentDeploy))
	mux.HandleFunc("POST /agent/stop", s.limited(agentOps, s.handleAgentStop))
	mux.HandleFunc("GET /agent/status", s.authed(s.handleAgentStatus))
	mux.HandleFunc("POST /agent/chat", s.limited(agentOps, s.handleAgentChat))

	addr := fmt.Sprintf(":%d", s.Port)
	s.http = &http.Server{Addr: addr, Handler: corsMiddleware(mux)}
	slog.Info("http api starting", "addr", addr)

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// limited composes rate limiting over an authenticated handler.
func (s *Server) limited(rl *RateLimiter, next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return RateLimitMiddleware(rl, s.authed(next))
}

// corsMiddleware allows configured frontend origins plus localhost dev
// servers (CORS_ORIGINS: comma-separated list).
func corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowed[origin] = true
			}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeResult maps game rule errors to HTTP statuses and attaches hints.
func writeResult(w http.ResponseWriter, v any, err error) {
	if err == nil {
		writeJSON(w, v)
		return
	}
	status := http.StatusInternalServerError
	if re, ok := game.AsRule(err); ok {
		switch re.Code {
		case game.CodeInvalid, game.CodeRule, game.CodeCooldown, game.CodeInsufficient:
			status = http.StatusBadRequest
		case game.CodeForbidden:
			status = http.StatusForbidden
		case game.CodeNotFound:
			status = http.StatusNotFound
		case game.CodeLedger:
			status = http.StatusInternalServerError
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": re.Message,
			"code":  re.Code,
			"hints": re.Hints,
		})
		return
	}
	writeError(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// actionReq carries the fields every entity-scoped action shares.
type actionReq struct {
	ZoneID   string `json:"zoneId"`
	EntityID string `json:"entityId"`
}

// ---- session ----

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request, wallet string) {
	var req game.SpawnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Spawn(r.Context(), wallet, &req)
	writeResult(w, res, err)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, wallet string) {
	var req actionReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err := s.Svc.Logout(r.Context(), wallet, req.ZoneID, req.EntityID)
	writeResult(w, map[string]bool{"ok": true}, err)
}

// handleCommand is the generic action dispatcher for clients that prefer one
// endpoint over the resource routes.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		Action   string  `json:"action"`
		TargetID string  `json:"targetId,omitempty"`
		X        float64 `json:"x,omitempty"`
		Y        float64 `json:"y,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	switch req.Action {
	case "move":
		e, err := s.Svc.Move(r.Context(), wallet, req.ZoneID, req.EntityID, req.X, req.Y)
		writeResult(w, e, err)
	case "attack":
		res, err := s.Svc.Attack(r.Context(), wallet, req.ZoneID, req.EntityID, req.TargetID)
		writeResult(w, res, err)
	case "logout":
		err := s.Svc.Logout(r.Context(), wallet, req.ZoneID, req.EntityID)
		writeResult(w, map[string]bool{"ok": true}, err)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
	}
}

// ---- world reads ----

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	zoneID := r.URL.Query().Get("zone")
	if zoneID == "" {
		writeError(w, http.StatusBadRequest, "zone query parameter required")
		return
	}
	snap, err := s.Svc.State(zoneID)
	writeResult(w, snap, err)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	writeJSON(w, s.Bus.Recent(r.URL.Query().Get("zone"), limit))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, s.Svc.Leaderboard(limit))
}

func (s *Server) handleItemCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Svc.Catalog.Items())
}

func (s *Server) handleTechniqueCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Svc.Catalog.Techniques())
}

// ---- character ----

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request, wallet string) {
	sheet, err := s.Svc.Character(r.Context(), wallet)
	writeResult(w, sheet, err)
}

func (s *Server) handleDiary(w http.ResponseWriter, r *http.Request, wallet string) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	writeJSON(w, s.Svc.Store.Diary(r.Context(), wallet, limit))
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request, wallet string) {
	writeJSON(w, s.Svc.Store.Reputation(r.Context(), wallet))
}

// ---- techniques & combat ----

func (s *Server) handleKnownTechniques(w http.ResponseWriter, r *http.Request, wallet string) {
	out, err := s.Svc.KnownTechniques(wallet, r.URL.Query().Get("zone"), r.URL.Query().Get("entity"))
	writeResult(w, out, err)
}

func (s *Server) handleLearnTechnique(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		TechniqueID string `json:"techniqueId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err := s.Svc.LearnTechnique(r.Context(), wallet, req.ZoneID, req.EntityID, req.TechniqueID)
	writeResult(w, map[string]bool{"ok": true}, err)
}

func (s *Server) handleUseTechnique(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		TechniqueID string `json:"techniqueId"`
		TargetID    string `json:"targetId,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.UseTechnique(r.Context(), wallet, req.ZoneID, req.EntityID, req.TechniqueID, req.TargetID)
	writeResult(w, res, err)
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		TargetID string `json:"targetId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Attack(r.Context(), wallet, req.ZoneID, req.EntityID, req.TargetID)
	writeResult(w, res, err)
}

// ---- gathering ----

type nodeReq struct {
	actionReq
	NodeID string `json:"nodeId"`
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request, wallet string) {
	var req nodeReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Mine(r.Context(), wallet, req.ZoneID, req.EntityID, req.NodeID)
	writeResult(w, res, err)
}

func (s *Server) handleHerb(w http.ResponseWriter, r *http.Request, wallet string) {
	var req nodeReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Herb(r.Context(), wallet, req.ZoneID, req.EntityID, req.NodeID)
	writeResult(w, res, err)
}

func (s *Server) handleSkin(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		CorpseID string `json:"corpseId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Skin(r.Context(), wallet, req.ZoneID, req.EntityID, req.CorpseID)
	writeResult(w, res, err)
}

func (s *Server) handleLearnProfession(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		ProfessionID string `json:"professionId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err := s.Svc.LearnProfession(r.Context(), wallet, req.ZoneID, req.EntityID, req.ProfessionID)
	writeResult(w, map[string]bool{"ok": true}, err)
}

// ---- crafting ----

func (s *Server) handleCraft(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		StationID string `json:"stationId"`
		RecipeID  string `json:"recipeId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Craft(r.Context(), wallet, req.ZoneID, req.EntityID, req.StationID, req.RecipeID)
	writeResult(w, res, err)
}

// handleCook is the cooking-flavored craft entry point: clients name the
// campfire instead of a generic station.
func (s *Server) handleCook(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		CampfireID string `json:"campfireId"`
		RecipeID   string `json:"recipeId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Craft(r.Context(), wallet, req.ZoneID, req.EntityID, req.CampfireID, req.RecipeID)
	writeResult(w, res, err)
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		TokenID int64 `json:"tokenId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Consume(r.Context(), wallet, req.ZoneID, req.EntityID, req.TokenID)
	writeResult(w, res, err)
}

// ---- equipment ----

func (s *Server) handleEquip(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		TokenID int64 `json:"tokenId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	e, err := s.Svc.Equip(r.Context(), wallet, req.ZoneID, req.EntityID, req.TokenID)
	writeResult(w, e, err)
}

func (s *Server) handleUnequip(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		Slot string `json:"slot"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	e, err := s.Svc.Unequip(r.Context(), wallet, req.ZoneID, req.EntityID, req.Slot)
	writeResult(w, e, err)
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		Slot string `json:"slot"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Repair(r.Context(), wallet, req.ZoneID, req.EntityID, req.Slot)
	writeResult(w, res, err)
}

// ---- shops ----

func (s *Server) handleShopListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.Svc.Shopfront(r.URL.Query().Get("zone"), r.URL.Query().Get("merchant"))
	writeResult(w, listings, err)
}

type tradeReq struct {
	actionReq
	MerchantID string `json:"merchantId"`
	TokenID    int64  `json:"tokenId"`
	Quantity   int64  `json:"quantity"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, wallet string) {
	var req tradeReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Buy(r.Context(), wallet, req.ZoneID, req.EntityID, req.MerchantID, req.TokenID, req.Quantity)
	writeResult(w, res, err)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request, wallet string) {
	var req tradeReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.Sell(r.Context(), wallet, req.ZoneID, req.EntityID, req.MerchantID, req.TokenID, req.Quantity)
	writeResult(w, res, err)
}

// ---- auction house ----

func (s *Server) handleAuctionListings(w http.ResponseWriter, r *http.Request) {
	if s.Auction == nil {
		writeJSON(w, []auction.Listing{})
		return
	}
	listings, err := s.Auction.Active(r.Context())
	writeResult(w, listings, err)
}

func (s *Server) handleAuctionListing(w http.ResponseWriter, r *http.Request) {
	if s.Auction == nil {
		writeError(w, http.StatusNotFound, "auction house unavailable")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	l, err := s.Auction.ByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	writeJSON(w, l)
}

func (s *Server) handleAuctionMine(w http.ResponseWriter, r *http.Request, wallet string) {
	if s.Auction == nil {
		writeJSON(w, []auction.Listing{})
		return
	}
	listings, err := s.Auction.BySeller(r.Context(), wallet)
	writeResult(w, listings, err)
}

// ---- party ----

func (s *Server) handleParty(w http.ResponseWriter, r *http.Request, wallet string) {
	info, err := s.Svc.Party(r.Context(), wallet, r.URL.Query().Get("zone"), r.URL.Query().Get("entity"))
	writeResult(w, info, err)
}

func (s *Server) handlePartyCreate(w http.ResponseWriter, r *http.Request, wallet string) {
	var req actionReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	info, err := s.Svc.CreateParty(r.Context(), wallet, req.ZoneID, req.EntityID)
	writeResult(w, info, err)
}

func (s *Server) handlePartyJoin(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		LeaderName string `json:"leaderName"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	info, err := s.Svc.JoinParty(r.Context(), wallet, req.ZoneID, req.EntityID, req.LeaderName)
	writeResult(w, info, err)
}

func (s *Server) handlePartyLeave(w http.ResponseWriter, r *http.Request, wallet string) {
	var req actionReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err := s.Svc.LeaveParty(r.Context(), wallet, req.ZoneID, req.EntityID)
	writeResult(w, map[string]bool{"ok": true}, err)
}

// ---- quests ----

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request, wallet string) {
	out, err := s.Svc.Quests(r.Context(), wallet, r.URL.Query().Get("zone"), r.URL.Query().Get("entity"))
	writeResult(w, out, err)
}

func (s *Server) handleQuestComplete(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		QuestID string `json:"questId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.CompleteQuest(r.Context(), wallet, req.ZoneID, req.EntityID, req.QuestID)
	writeResult(w, res, err)
}

// ---- travel ----

func (s *Server) handlePortals(w http.ResponseWriter, r *http.Request) {
	out, err := s.Svc.Portals(r.URL.Query().Get("zone"))
	writeResult(w, out, err)
}

func (s *Server) handleUsePortal(w http.ResponseWriter, r *http.Request, wallet string) {
	var req struct {
		actionReq
		PortalID string `json:"portalId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.UsePortal(r.Context(), wallet, req.ZoneID, req.EntityID, req.PortalID)
	writeResult(w, res, err)
}

func (s *Server) handleTransitionAuto(w http.ResponseWriter, r *http.Request, wallet string) {
	var req actionReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Svc.TransitionAuto(r.Context(), wallet, req.ZoneID, req.EntityID)
	writeResult(w, res, err)
}

// ---- agents ----

func (s *Server) handleAgentDeploy(w http.ResponseWriter, r *http.Request, wallet string) {
	if s.Agents == nil {
		writeError(w, http.StatusServiceUnavailable, "agents disabled")
		return
	}
	var req agent.DeployRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.Agents.Deploy(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request, wallet string) {
	if s.Agents == nil {
		writeError(w, http.StatusServiceUnavailable, "agents disabled")
		return
	}
	var req struct {
		Wallet string `json:"wallet"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.Agents.Stop(r.Context(), req.Wallet); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request, wallet string) {
	if s.Agents == nil {
		writeError(w, http.StatusServiceUnavailable, "agents disabled")
		return
	}
	target := r.URL.Query().Get("wallet")
	if target == "" {
		target = wallet
	}
	writeJSON(w, s.Agents.Status(r.Context(), target))
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request, wallet string) {
	if s.Agents == nil {
		writeError(w, http.StatusServiceUnavailable, "agents disabled")
		return
	}
	var req struct {
		Wallet  string `json:"wallet"`
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}
	if req.Wallet == "" {
		req.Wallet = wallet
	}
	reply, err := s.Agents.Chat(r.Context(), req.Wallet, req.Message)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, map[string]string{"reply": reply})
}
