package types

import (
	"context"
	"encoding/json"
)

// Account is a wallet account as exposed by the external keyring.
type Account struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// Network describes the active chain.
type Network struct {
	Name    string `json:"name"`
	ChainID uint64 `json:"chainId"`
}

// IKeyringHandler is the external keyring/signing surface this gateway
// consumes. Transaction construction and cryptography live behind it; the
// gateway only gates access and relays payloads.
type IKeyringHandler interface {
	IsLocked(ctx context.Context) (bool, error)
	GetAccounts(ctx context.Context) ([]Account, error)
	GetChainID(ctx context.Context) (uint64, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetNetwork(ctx context.Context) (*Network, error)
	GetBalance(ctx context.Context, accountID string) (string, error)
	EstimateGas(ctx context.Context, tx *TxRequest) (uint64, error)

	SignMessage(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	SendTransaction(ctx context.Context, tx *TxRequest) (json.RawMessage, error)

	ConfirmTokenCreation(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	ConfirmNftCreation(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	ConfirmTokenMint(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	ConfirmUpdateToken(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	TransferAssetOwnership(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}
