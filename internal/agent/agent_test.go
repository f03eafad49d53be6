package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
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

const testKeyAuth = "test-encryption-key"

func newManager(t *testing.T) (*Manager, *chain.Stub, *store.Store) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	stub := chain.NewStub()
	bus := events.NewBus(200)
	rt := world.NewRuntime(cat, stub, bus, techniques.NewRegistry(cat), 42)
	merchants := merchant.NewManager(cat, stub, bus)
	st := store.New(nil)
	svc := game.NewService(rt, cat, stub, ledger.New(), st, bus, merchants)
	return NewManager(svc, st, stub, nil, testKeyAuth), stub, st
}

func TestDeployProvisionsWalletAndStartsRunner(t *testing.T) {
	mgr, stub, st := newManager(t)
	t.Cleanup(mgr.StopAll)

	res, err := mgr.Deploy(context.Background(), &DeployRequest{
		Name: "Rillow", RaceID: "halfling", ClassID: "rogue",
		ZoneID: "wild-meadow", Focus: "idle",
	})
	require.NoError(t, err)
	require.Equal(t, StateRunning, res.State)
	require.NotEmpty(t, res.EntityID)

	// Custodial key round-trips through the keystore with the server auth.
	blob, err := st.LoadCustodialKey(context.Background(), res.Wallet)
	require.NoError(t, err)
	key, err := keystore.DecryptKey(blob, testKeyAuth)
	require.NoError(t, err)
	require.Equal(t, res.Wallet, strings.ToLower(key.Address.Hex()))

	// Starter gold landed before the character minted.
	bal, err := stub.GoldBalance(context.Background(), res.Wallet)
	require.NoError(t, err)
	require.Equal(t, int64(starterCopper), bal)

	status := mgr.Status(context.Background(), res.Wallet)
	require.Equal(t, StateRunning, status.State)
	require.NotNil(t, status.Config)
	require.True(t, status.Config.Enabled)
	require.GreaterOrEqual(t, status.Iterations, int64(1))
}

func TestStopObservesLoopExitAndDisablesConfig(t *testing.T) {
	mgr, _, _ := newManager(t)

	res, err := mgr.Deploy(context.Background(), &DeployRequest{
		Name: "Halden", ZoneID: "wild-meadow", Focus: "idle",
	})
	require.NoError(t, err)

	require.NoError(t, mgr.Stop(context.Background(), res.Wallet))

	status := mgr.Status(context.Background(), res.Wallet)
	require.Equal(t, StateStopped, status.State)
	require.False(t, status.Config.Enabled)

	// Stopping again reports there is nothing to stop.
	require.Error(t, mgr.Stop(context.Background(), res.Wallet))
}

func TestChatFallsBackWithoutLLM(t *testing.T) {
	mgr, _, st := newManager(t)
	t.Cleanup(mgr.StopAll)

	res, err := mgr.Deploy(context.Background(), &DeployRequest{
		Name: "Wren", ZoneID: "wild-meadow", Focus: "gathering",
	})
	require.NoError(t, err)

	reply, err := mgr.Chat(context.Background(), res.Wallet, "what are you up to?")
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	history := st.ChatHistory(context.Background(), res.Wallet, 10)
	require.Len(t, history, 2)
	require.Equal(t, "assistant", history[0].Role)
	require.Equal(t, "user", history[1].Role)
}

func TestQuestingFocusSeeksQuestGiver(t *testing.T) {
	mgr, _, _ := newManager(t)
	t.Cleanup(mgr.StopAll)

	res, err := mgr.Deploy(context.Background(), &DeployRequest{
		Name: "Pell", RaceID: "human", ClassID: "warrior",
		ZoneID: "wild-meadow", Focus: "questing",
	})
	require.NoError(t, err)

	// A fresh character has no quest done, so the policy either walks to the
	// quest giver or reports nothing is ready.
	status := mgr.Status(context.Background(), res.Wallet)
	require.Contains(t,
		[]string{"walking to Warden Col", "no quest ready to turn in"},
		status.LastAction)
}

func TestFocusToolSchemaCoversEveryPolicy(t *testing.T) {
	props := chatTools[0].InputSchema["properties"].(map[string]any)
	enum := props["focus"].(map[string]any)["enum"].([]string)
	for _, focus := range []string{
		"gathering", "combat", "crafting", "alchemy", "cooking",
		"enchanting", "trading", "questing", "idle",
	} {
		require.Contains(t, enum, focus)
	}
}

func TestSleepBackoffGrowsAndCaps(t *testing.T) {
	r := &Runner{}
	require.GreaterOrEqual(t, r.sleepFor(0), baseInterval)
	require.Less(t, r.sleepFor(0), baseInterval+baseInterval)
	require.GreaterOrEqual(t, r.sleepFor(3), 8*baseInterval)
	require.LessOrEqual(t, r.sleepFor(10), maxInterval+maxInterval/4+time.Second)
}
