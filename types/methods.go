package types

import "encoding/json"

// WalletMethod is the closed numeric enum of read-only method codes. These
// are answered straight from the keyring and never open a popup. Kept numeric
// on the wire so an out-of-range code fails the Valid check instead of
// silently widening into a free-form string.
type WalletMethod int

const (
	MethodIsConnected WalletMethod = iota
	MethodGetAddress
	MethodGetAccounts
	MethodGetChainID
	MethodGetBlockNumber
	MethodEstimateGas
	MethodGetNetwork
	MethodGetBalance
)

var methodNames = map[WalletMethod]string{
	MethodIsConnected:    "isConnected",
	MethodGetAddress:     "getAddress",
	MethodGetAccounts:    "getAccounts",
	MethodGetChainID:     "getChainId",
	MethodGetBlockNumber: "getBlockNumber",
	MethodEstimateGas:    "estimateGas",
	MethodGetNetwork:     "getNetwork",
	MethodGetBalance:     "getBalance",
}

func (m WalletMethod) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

func (m WalletMethod) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// CalRequest is the data of a CAL_REQUEST message: either a read-only method
// code or a mutating transaction payload, never both.
type CalRequest struct {
	Method *WalletMethod   `json:"method,omitempty"`
	Tx     *TxRequest      `json:"tx,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}
