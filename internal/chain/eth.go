package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Contract surfaces the shard relies on. The gold contract denominates
// balances directly in copper; the item contract is an ERC-1155 with
// server-operator mint/burn/transfer; characters are a plain incrementing
// NFT. Everything else about the deployed contracts is opaque here.
const goldABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"burn","inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"gameTransfer","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const itemABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"nextTokenId","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"burn","inputs":[{"name":"from","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"gameTransfer","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"TransferSingle","inputs":[{"name":"operator","type":"address","indexed":true},{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"id","type":"uint256"},{"name":"value","type":"uint256"}]}
]`

const characterABI = `[
  {"type":"function","name":"nextTokenId","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"mintCharacter","inputs":[{"name":"to","type":"address"},{"name":"name","type":"string"}],"outputs":[]}
]`

// scanWindow bounds each FilterLogs request during cache rebuild. Public RPC
// providers reject unbounded ranges.
const scanWindow = 2048

const writeTimeout = 45 * time.Second

// EthConfig configures a live ledger connection.
type EthConfig struct {
	RPCURL            string
	ChainID           int64
	ServerPrivateKey  string // hex, no 0x prefix required
	GoldContract      string
	ItemContract      string
	CharacterContract string
}

// Eth is the live ledger driver. All writes are signed by the server
// operator key and mined before the call returns.
type Eth struct {
	client   *ethclient.Client
	signKey  *ecdsa.PrivateKey
	chainID  *big.Int
	itemAddr common.Address

	gold      *bind.BoundContract
	item      *bind.BoundContract
	character *bind.BoundContract
	itemMeta  abi.ABI

	// Serializes nonce use across concurrent handlers.
	writeMu sync.Mutex

	// Item balance projection rebuilt from TransferSingle logs. When
	// populated it answers ItemBalance instead of the unreliable view call.
	cacheMu   sync.RWMutex
	itemCache map[string]map[int64]int64
	cacheOK   bool
}

// NewEth dials the RPC endpoint and binds the game contracts.
func NewEth(cfg EthConfig) (*Eth, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.ServerPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse server key: %w", err)
	}

	goldMeta, err := abi.JSON(strings.NewReader(goldABI))
	if err != nil {
		return nil, fmt.Errorf("parse gold ABI: %w", err)
	}
	itemMeta, err := abi.JSON(strings.NewReader(itemABI))
	if err != nil {
		return nil, fmt.Errorf("parse item ABI: %w", err)
	}
	charMeta, err := abi.JSON(strings.NewReader(characterABI))
	if err != nil {
		return nil, fmt.Errorf("parse character ABI: %w", err)
	}

	itemAddr := common.HexToAddress(cfg.ItemContract)
	e := &Eth{
		client:    client,
		signKey:   key,
		chainID:   big.NewInt(cfg.ChainID),
		itemAddr:  itemAddr,
		gold:      bind.NewBoundContract(common.HexToAddress(cfg.GoldContract), goldMeta, client, client, client),
		item:      bind.NewBoundContract(itemAddr, itemMeta, client, client, client),
		character: bind.NewBoundContract(common.HexToAddress(cfg.CharacterContract), charMeta, client, client, client),
		itemMeta:  itemMeta,
		itemCache: make(map[string]map[int64]int64),
	}

	slog.Info("chain driver connected",
		"rpc", cfg.RPCURL,
		"chain_id", cfg.ChainID,
		"operator", crypto.PubkeyToAddress(key.PublicKey).Hex(),
	)
	return e, nil
}

func (e *Eth) callUint(ctx context.Context, c *bind.BoundContract, method string, args ...any) (int64, error) {
	var out []any
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return 0, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("call %s: empty result", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("call %s: unexpected result type %T", method, out[0])
	}
	return v.Int64(), nil
}

// transact submits a write and waits for it to be mined. A reverted receipt
// surfaces as ErrTxRejected.
func (e *Eth) transact(ctx context.Context, c *bind.BoundContract, method string, args ...any) (*Tx, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	opts, err := bind.NewKeyedTransactorWithChainID(e.signKey, e.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := c.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTxRejected, method, err)
	}

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s reverted (tx %s)", ErrTxRejected, method, tx.Hash().Hex())
	}
	return &Tx{Hash: tx.Hash().Hex()}, nil
}

// GoldBalance reads the wallet's copper balance.
func (e *Eth) GoldBalance(ctx context.Context, addr string) (int64, error) {
	return e.callUint(ctx, e.gold, "balanceOf", common.HexToAddress(addr))
}

// ItemBalance reads the wallet's quantity of one token, preferring the
// event-sourced projection when it has been built.
func (e *Eth) ItemBalance(ctx context.Context, addr string, tokenID int64) (int64, error) {
	e.cacheMu.RLock()
	if e.cacheOK {
		qty := e.itemCache[strings.ToLower(addr)][tokenID]
		e.cacheMu.RUnlock()
		return qty, nil
	}
	e.cacheMu.RUnlock()
	return e.callUint(ctx, e.item, "balanceOf", common.HexToAddress(addr), big.NewInt(tokenID))
}

// NextItemID reads the item contract's next dynamic token id.
func (e *Eth) NextItemID(ctx context.Context) (int64, error) {
	return e.callUint(ctx, e.item, "nextTokenId")
}

// MintGold credits copper to addr.
func (e *Eth) MintGold(ctx context.Context, addr string, copper int64) (*Tx, error) {
	return e.transact(ctx, e.gold, "mint", common.HexToAddress(addr), big.NewInt(copper))
}

// BurnGold debits copper from addr.
func (e *Eth) BurnGold(ctx context.Context, addr string, copper int64) (*Tx, error) {
	return e.transact(ctx, e.gold, "burn", common.HexToAddress(addr), big.NewInt(copper))
}

// TransferGold moves copper between wallets under operator authority.
func (e *Eth) TransferGold(ctx context.Context, from, to string, copper int64) (*Tx, error) {
	return e.transact(ctx, e.gold, "gameTransfer", common.HexToAddress(from), common.HexToAddress(to), big.NewInt(copper))
}

// MintItem credits qty of tokenID to addr and updates the projection.
func (e *Eth) MintItem(ctx context.Context, addr string, tokenID, qty int64) (*Tx, error) {
	tx, err := e.transact(ctx, e.item, "mint", common.HexToAddress(addr), big.NewInt(tokenID), big.NewInt(qty))
	if err == nil {
		e.applyCacheDelta(addr, tokenID, qty)
	}
	return tx, err
}

// BurnItem debits qty of tokenID from addr and updates the projection.
func (e *Eth) BurnItem(ctx context.Context, addr string, tokenID, qty int64) (*Tx, error) {
	tx, err := e.transact(ctx, e.item, "burn", common.HexToAddress(addr), big.NewInt(tokenID), big.NewInt(qty))
	if err == nil {
		e.applyCacheDelta(addr, tokenID, -qty)
	}
	return tx, err
}

// TransferItem moves qty of tokenID between wallets.
func (e *Eth) TransferItem(ctx context.Context, from, to string, tokenID, qty int64) (*Tx, error) {
	tx, err := e.transact(ctx, e.item, "gameTransfer",
		common.HexToAddress(from), common.HexToAddress(to), big.NewInt(tokenID), big.NewInt(qty))
	if err == nil {
		e.applyCacheDelta(from, tokenID, -qty)
		e.applyCacheDelta(to, tokenID, qty)
	}
	return tx, err
}

// MintCharacter mints a character NFT and returns its predicted id. The id is
// read before the mint; the operator write lock keeps the pair atomic.
func (e *Eth) MintCharacter(ctx context.Context, addr, name string) (int64, *Tx, error) {
	id, err := e.callUint(ctx, e.character, "nextTokenId")
	if err != nil {
		return 0, nil, err
	}
	tx, err := e.transact(ctx, e.character, "mintCharacter", common.HexToAddress(addr), name)
	if err != nil {
		return 0, nil, err
	}
	return id, tx, nil
}

func (e *Eth) applyCacheDelta(addr string, tokenID, delta int64) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if !e.cacheOK {
		return
	}
	key := strings.ToLower(addr)
	if e.itemCache[key] == nil {
		e.itemCache[key] = make(map[int64]int64)
	}
	e.itemCache[key][tokenID] += delta
	if e.itemCache[key][tokenID] < 0 {
		e.itemCache[key][tokenID] = 0
	}
}

// RebuildCache replays every TransferSingle event from genesis in bounded
// windows and swaps in a fresh balance projection. The scan is deterministic:
// the same chain history always produces the same projection.
func (e *Eth) RebuildCache(ctx context.Context) error {
	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("head block: %w", err)
	}

	event := e.itemMeta.Events["TransferSingle"]
	fresh := make(map[string]map[int64]int64)
	apply := func(addr common.Address, tokenID, delta int64) {
		if addr == (common.Address{}) {
			return
		}
		key := strings.ToLower(addr.Hex())
		if fresh[key] == nil {
			fresh[key] = make(map[int64]int64)
		}
		fresh[key][tokenID] += delta
	}

	start := time.Now()
	for from := uint64(0); from <= head; from += scanWindow {
		to := from + scanWindow - 1
		if to > head {
			to = head
		}
		logs, err := e.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{e.itemAddr},
			Topics:    [][]common.Hash{{event.ID}},
		})
		if err != nil {
			return fmt.Errorf("filter logs %d-%d: %w", from, to, err)
		}
		for _, lg := range logs {
			if len(lg.Topics) < 4 || len(lg.Data) < 64 {
				continue
			}
			fromAddr := common.BytesToAddress(lg.Topics[2].Bytes())
			toAddr := common.BytesToAddress(lg.Topics[3].Bytes())
			tokenID := new(big.Int).SetBytes(lg.Data[:32]).Int64()
			qty := new(big.Int).SetBytes(lg.Data[32:64]).Int64()
			apply(fromAddr, tokenID, -qty)
			apply(toAddr, tokenID, qty)
		}
	}

	e.cacheMu.Lock()
	e.itemCache = fresh
	e.cacheOK = true
	e.cacheMu.Unlock()

	slog.Info("item balance cache rebuilt",
		"wallets", len(fresh),
		"head", head,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Client exposes the raw RPC client for log consumers (auction cache).
func (e *Eth) Client() *ethclient.Client { return e.client }

var _ Driver = (*Eth)(nil)
