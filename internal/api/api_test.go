package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/game"
	"github.com/emberwild/shard/internal/ledger"
	"github.com/emberwild/shard/internal/merchant"
	"github.com/emberwild/shard/internal/store"
	"github.com/emberwild/shard/internal/techniques"
	"github.com/emberwild/shard/internal/world"
	"github.com/stretchr/testify/require"
)

// signChallenge produces a personal-sign signature the way wallets do.
func signChallenge(t *testing.T, message string) string {
	t.Helper()
	pk, err := crypto.HexToECDSA(testPrivHex)
	require.NoError(t, err)
	digest := accounts.TextHash([]byte(message))
	sig, err := crypto.Sign(digest, pk)
	require.NoError(t, err)
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig)
}

// A fixed key so tests are reproducible; its address is the test wallet.
const testPrivHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testWallet(t *testing.T) string {
	t.Helper()
	pk, err := crypto.HexToECDSA(testPrivHex)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(pk.PublicKey).Hex()
}

func TestAuthChallengeVerifyRoundtrip(t *testing.T) {
	a := NewAuth()
	wallet := testWallet(t)

	msg, ts := a.Challenge(wallet)
	sig := signChallenge(t, msg)

	token, err := a.Verify(wallet, sig, ts)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, strings.ToLower(wallet), a.WalletFor(token))
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	a := NewAuth()
	wallet := testWallet(t)

	ts := time.Now().Add(-10 * time.Minute).Unix()
	msg := challengeMessage(wallet, ts)
	sig := signChallenge(t, msg)

	_, err := a.Verify(wallet, sig, ts)
	require.ErrorContains(t, err, "expired")
}

func TestVerifyRejectsWrongWallet(t *testing.T) {
	a := NewAuth()
	other := "0x9999999999999999999999999999999999999999"

	msg, ts := a.Challenge(other)
	sig := signChallenge(t, msg)

	_, err := a.Verify(other, sig, ts)
	require.ErrorContains(t, err, "does not match")
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	stub := chain.NewStub()
	bus := events.NewBus(200)
	rt := world.NewRuntime(cat, stub, bus, techniques.NewRegistry(cat), 42)
	merchants := merchant.NewManager(cat, stub, bus)
	svc := game.NewService(rt, cat, stub, ledger.New(), store.New(nil), bus, merchants)

	srv := &Server{Svc: svc, Bus: bus, Auth: NewAuth()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/challenge", srv.handleAuthChallenge)
	mux.HandleFunc("POST /auth/verify", srv.handleAuthVerify)
	mux.HandleFunc("POST /spawn", srv.authed(srv.handleSpawn))
	mux.HandleFunc("GET /state", srv.handleState)
	mux.HandleFunc("POST /command", srv.authed(srv.handleCommand))

	ts := httptest.NewServer(corsMiddleware(mux))
	t.Cleanup(ts.Close)
	return srv, ts
}

func bearerToken(t *testing.T, base string) string {
	t.Helper()
	wallet := testWallet(t)

	resp, err := http.Get(fmt.Sprintf("%s/auth/challenge?wallet=%s", base, wallet))
	require.NoError(t, err)
	defer resp.Body.Close()
	var challenge struct {
		Message   string `json:"message"`
		Timestamp int64  `json:"timestamp"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&challenge))

	body, _ := json.Marshal(map[string]any{
		"wallet":    wallet,
		"signature": signChallenge(t, challenge.Message),
		"timestamp": challenge.Timestamp,
	})
	resp2, err := http.Post(base+"/auth/verify", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var verified struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&verified))
	require.NotEmpty(t, verified.Token)
	return verified.Token
}

func TestSpawnRequiresBearerToken(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/spawn", "application/json",
		bytes.NewReader([]byte(`{"zoneId":"wild-meadow","name":"Brakka"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSpawnAndStateOverHTTP(t *testing.T) {
	_, ts := newTestServer(t)
	token := bearerToken(t, ts.URL)

	body := []byte(`{"zoneId":"wild-meadow","name":"Brakka","raceId":"orc","classId":"warrior"}`)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/spawn", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var spawned struct {
		Spawned struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"spawned"`
		Zone string `json:"zone"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spawned))
	require.Equal(t, "wild-meadow", spawned.Zone)
	require.NotEmpty(t, spawned.Spawned.ID)

	// The public state read sees the freshly spawned character.
	resp2, err := http.Get(ts.URL + "/state?zone=wild-meadow")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var state struct {
		ZoneID   string `json:"zoneId"`
		Entities []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"entities"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&state))
	found := false
	for _, e := range state.Entities {
		if e.ID == spawned.Spawned.ID {
			found = true
			require.Equal(t, "Brakka", e.Name)
		}
	}
	require.True(t, found)
}

func TestDuplicateSpawnMapsRuleErrorTo400(t *testing.T) {
	_, ts := newTestServer(t)
	token := bearerToken(t, ts.URL)

	body := []byte(`{"zoneId":"wild-meadow","name":"Brakka"}`)
	for i, want := range []int{http.StatusOK, http.StatusBadRequest} {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/spawn", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, want, resp.StatusCode, "attempt %d", i)
	}
}

func TestRateLimiterWindowAndRetryAfter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))
	require.Greater(t, rl.RetryAfter("10.0.0.1"), 0)
	// Other clients are unaffected.
	require.True(t, rl.Allow("10.0.0.2"))
}
