package testhelper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pollum-io/pali-gateway/types"
)

var _ types.IKeyringHandler = (*MemKeyring)(nil)

// MemKeyring is an in-memory keyring used by tests and by the gateway's
// development mode. Mutating calls return canned payloads; Fail makes every
// call after it error so denial paths can be exercised.
type MemKeyring struct {
	lk sync.Mutex

	locked      bool
	accounts    []types.Account
	network     types.Network
	blockNumber uint64
	balances    map[string]string

	failErr error
}

func NewMemKeyring() *MemKeyring {
	return &MemKeyring{
		accounts: []types.Account{
			{ID: "acct-0", Address: "0x71562b71999873DB5b286dF957af199Ec94617F7", Label: "Account 1"},
			{ID: "acct-1", Address: "0x8626f6940E2eb28930eFb4CeF49B2d1F2C9C1199", Label: "Account 2"},
		},
		network:     types.Network{Name: "mainnet", ChainID: 57},
		blockNumber: 1_234_567,
		balances: map[string]string{
			"acct-0": "1000000000000000000",
			"acct-1": "250000000000000000",
		},
	}
}

// SetLocked toggles the simulated lock screen.
func (m *MemKeyring) SetLocked(locked bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.locked = locked
}

// Fail makes every subsequent call return err; nil restores normal behavior.
func (m *MemKeyring) Fail(err error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.failErr = err
}

// SetNetwork swaps the active chain, as a wallet-side network switch would.
func (m *MemKeyring) SetNetwork(network types.Network) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.network = network
}

func (m *MemKeyring) fail() error {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.failErr
}

func (m *MemKeyring) IsLocked(ctx context.Context) (bool, error) {
	if err := m.fail(); err != nil {
		return false, err
	}
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.locked, nil
}

func (m *MemKeyring) GetAccounts(ctx context.Context) ([]types.Account, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.lk.Lock()
	defer m.lk.Unlock()
	out := make([]types.Account, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

func (m *MemKeyring) GetChainID(ctx context.Context) (uint64, error) {
	if err := m.fail(); err != nil {
		return 0, err
	}
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.network.ChainID, nil
}

func (m *MemKeyring) GetBlockNumber(ctx context.Context) (uint64, error) {
	if err := m.fail(); err != nil {
		return 0, err
	}
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.blockNumber, nil
}

func (m *MemKeyring) GetNetwork(ctx context.Context) (*types.Network, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.lk.Lock()
	defer m.lk.Unlock()
	network := m.network
	return &network, nil
}

func (m *MemKeyring) GetBalance(ctx context.Context, accountID string) (string, error) {
	if err := m.fail(); err != nil {
		return "", err
	}
	m.lk.Lock()
	defer m.lk.Unlock()
	balance, ok := m.balances[accountID]
	if !ok {
		return "", fmt.Errorf("account %s not found", accountID)
	}
	return balance, nil
}

func (m *MemKeyring) EstimateGas(ctx context.Context, tx *types.TxRequest) (uint64, error) {
	if err := m.fail(); err != nil {
		return 0, err
	}
	if len(tx.Data) > 0 {
		return 65_000, nil
	}
	return 21_000, nil
}

func (m *MemKeyring) mutate(result string) (json.RawMessage, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.lk.Lock()
	locked := m.locked
	m.lk.Unlock()
	if locked {
		return nil, types.ErrWalletLocked
	}
	return json.RawMessage(result), nil
}

func (m *MemKeyring) SignMessage(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return m.mutate(`{"signature":"0xdeadbeef"}`)
}

func (m *MemKeyring) SendTransaction(ctx context.Context, tx *types.TxRequest) (json.RawMessage, error) {
	return m.mutate(`{"txid":"0x4242424242424242424242424242424242424242424242424242424242424242"}`)
}

func (m *MemKeyring) ConfirmTokenCreation(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return m.mutate(`{"txid":"0x01","assetGuid":"2574878294"}`)
}

func (m *MemKeyring) ConfirmNftCreation(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return m.mutate(`{"txid":"0x02","assetGuid":"3569136514"}`)
}

func (m *MemKeyring) ConfirmTokenMint(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return m.mutate(`{"txid":"0x03"}`)
}

func (m *MemKeyring) ConfirmUpdateToken(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return m.mutate(`{"txid":"0x04"}`)
}

func (m *MemKeyring) TransferAssetOwnership(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return m.mutate(`{"txid":"0x05"}`)
}
