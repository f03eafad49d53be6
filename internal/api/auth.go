package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	challengeWindow = 5 * time.Minute
	tokenValidity   = 24 * time.Hour
)

// challengeMessage is what the wallet signs. The timestamp binds the
// signature to a short window so captured signatures go stale.
func challengeMessage(wallet string, ts int64) string {
	return fmt.Sprintf("Sign in to Emberwild\nWallet: %s\nTimestamp: %d", strings.ToLower(wallet), ts)
}

// session is one issued bearer token.
type session struct {
	wallet  string
	expires time.Time
}

// Auth issues and validates wallet-signature bearer tokens.
type Auth struct {
	mu     sync.Mutex
	tokens map[string]session
}

func NewAuth() *Auth {
	return &Auth{tokens: make(map[string]session)}
}

// Challenge returns the message a wallet must sign right now.
func (a *Auth) Challenge(wallet string) (message string, ts int64) {
	ts = time.Now().Unix()
	return challengeMessage(wallet, ts), ts
}

// Verify checks a personal-sign signature over the challenge message and
// issues a bearer token on success.
func (a *Auth) Verify(wallet, sigHex string, ts int64) (token string, err error) {
	age := time.Since(time.Unix(ts, 0))
	if age < -time.Minute || age > challengeWindow {
		return "", fmt.Errorf("challenge expired")
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil || len(sig) != 65 {
		return "", fmt.Errorf("malformed signature")
	}
	// Wallets produce V as 27/28; go-ethereum wants 0/1.
	if sig[64] >= 27 {
		sig = append(append([]byte(nil), sig...), 0)[:65]
		sig[64] -= 27
	}

	digest := accounts.TextHash([]byte(challengeMessage(wallet, ts)))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("recover signer: %w", err)
	}
	signer := crypto.PubkeyToAddress(*pub).Hex()
	if !strings.EqualFold(signer, wallet) {
		return "", fmt.Errorf("signature does not match wallet")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token = hex.EncodeToString(buf)

	a.mu.Lock()
	a.tokens[token] = session{wallet: strings.ToLower(wallet), expires: time.Now().Add(tokenValidity)}
	a.prune()
	a.mu.Unlock()
	return token, nil
}

// WalletFor resolves a bearer token to its wallet, or "" if unknown/expired.
func (a *Auth) WalletFor(token string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.tokens[token]
	if !ok || time.Now().After(s.expires) {
		delete(a.tokens, token)
		return ""
	}
	return s.wallet
}

func (a *Auth) prune() {
	now := time.Now()
	for t, s := range a.tokens {
		if now.After(s.expires) {
			delete(a.tokens, t)
		}
	}
}

func (s *Server) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter required")
		return
	}
	msg, ts := s.Auth.Challenge(wallet)
	writeJSON(w, map[string]any{"message": msg, "timestamp": ts})
}

func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet    string `json:"wallet"`
		Signature string `json:"signature"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	token, err := s.Auth.Verify(req.Wallet, req.Signature, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"token":     token,
		"wallet":    strings.ToLower(req.Wallet),
		"expiresIn": int64(tokenValidity.Seconds()),
	})
}

// authed wraps a handler, resolving the bearer token to a wallet. The wallet
// is passed to the handler; requests whose body or query names a different
// wallet are rejected downstream by ownership checks.
func (s *Server) authed(next func(w http.ResponseWriter, r *http.Request, wallet string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		wallet := s.Auth.WalletFor(strings.TrimPrefix(auth, "Bearer "))
		if wallet == "" {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r, wallet)
	}
}
