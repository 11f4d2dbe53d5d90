package keyring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/pollum-io/pali-gateway/types"
)

// KeyringStruct is the RPC shape of the wallet-core keyring service.
type KeyringStruct struct {
	Internal struct {
		IsLocked       func(ctx context.Context) (bool, error)
		GetAccounts    func(ctx context.Context) ([]types.Account, error)
		GetChainID     func(ctx context.Context) (uint64, error)
		GetBlockNumber func(ctx context.Context) (uint64, error)
		GetNetwork     func(ctx context.Context) (*types.Network, error)
		GetBalance     func(ctx context.Context, accountID string) (string, error)
		EstimateGas    func(ctx context.Context, tx *types.TxRequest) (uint64, error)

		SignMessage     func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
		SendTransaction func(ctx context.Context, tx *types.TxRequest) (json.RawMessage, error)

		ConfirmTokenCreation   func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
		ConfirmNftCreation     func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
		ConfirmTokenMint       func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
		ConfirmUpdateToken     func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
		TransferAssetOwnership func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	}
}

func (k *KeyringStruct) IsLocked(ctx context.Context) (bool, error) {
	return k.Internal.IsLocked(ctx)
}

func (k *KeyringStruct) GetAccounts(ctx context.Context) ([]types.Account, error) {
	return k.Internal.GetAccounts(ctx)
}

func (k *KeyringStruct) GetChainID(ctx context.Context) (uint64, error) {
	return k.Internal.GetChainID(ctx)
}

func (k *KeyringStruct) GetBlockNumber(ctx context.Context) (uint64, error) {
	return k.Internal.GetBlockNumber(ctx)
}

func (k *KeyringStruct) GetNetwork(ctx context.Context) (*types.Network, error) {
	return k.Internal.GetNetwork(ctx)
}

func (k *KeyringStruct) GetBalance(ctx context.Context, accountID string) (string, error) {
	return k.Internal.GetBalance(ctx, accountID)
}

func (k *KeyringStruct) EstimateGas(ctx context.Context, tx *types.TxRequest) (uint64, error) {
	return k.Internal.EstimateGas(ctx, tx)
}

func (k *KeyringStruct) SignMessage(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return k.Internal.SignMessage(ctx, payload)
}

func (k *KeyringStruct) SendTransaction(ctx context.Context, tx *types.TxRequest) (json.RawMessage, error) {
	return k.Internal.SendTransaction(ctx, tx)
}

func (k *KeyringStruct) ConfirmTokenCreation(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return k.Internal.ConfirmTokenCreation(ctx, payload)
}

func (k *KeyringStruct) ConfirmNftCreation(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return k.Internal.ConfirmNftCreation(ctx, payload)
}

func (k *KeyringStruct) ConfirmTokenMint(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return k.Internal.ConfirmTokenMint(ctx, payload)
}

func (k *KeyringStruct) ConfirmUpdateToken(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return k.Internal.ConfirmUpdateToken(ctx, payload)
}

func (k *KeyringStruct) TransferAssetOwnership(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return k.Internal.TransferAssetOwnership(ctx, payload)
}

var _ types.IKeyringHandler = (*KeyringStruct)(nil)

// NewKeyringClient dials the wallet-core keyring service. url accepts a
// multiaddr or a plain http(s)/ws url.
func NewKeyringClient(ctx context.Context, addr, token string) (types.IKeyringHandler, jsonrpc.ClientCloser, error) {
	dialAddr, err := DialArgs(addr)
	if err != nil {
		return nil, nil, err
	}

	header := http.Header{}
	if token != "" {
		header.Add("Authorization", "Bearer "+token)
	}

	var res KeyringStruct
	closer, err := jsonrpc.NewMergeClient(ctx, dialAddr,
		"Keyring", []interface{}{&res.Internal}, header)
	if err != nil {
		return nil, nil, err
	}
	return &res, closer, nil
}

func DialArgs(addr string) (string, error) {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err == nil {
		_, addr, err := manet.DialArgs(ma)
		if err != nil {
			return "", err
		}

		return "ws://" + addr + "/rpc/v1", nil
	}

	_, err = url.Parse(addr)
	if err != nil {
		return "", err
	}
	return addr + "/rpc/v1", nil
}
