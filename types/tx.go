package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxType is the declared type of a mutating CAL_REQUEST payload. For SPT
// asset operations it selects the keyring callback to invoke; an
// unrecognized value fails fast instead of falling through.
type TxType string

const (
	TxSend          TxType = "sendTransaction"
	TxSignMessage   TxType = "signMessage"
	TxNewToken      TxType = "newToken"
	TxNewNFT        TxType = "newNFT"
	TxMintToken     TxType = "mintToken"
	TxUpdateToken   TxType = "updateToken"
	TxTransferToken TxType = "transferToken"
)

// TxRequest is a mutating wallet call. Data is raw EVM calldata when present;
// the router inspects its selector to distinguish a plain send from an ERC-20
// approve before any popup opens. Payload is handed to the keyring untouched.
type TxRequest struct {
	Type     TxType          `json:"type"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`
	Value    string          `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Hardware bool            `json:"hardware,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
