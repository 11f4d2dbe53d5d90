package txrouter

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/pollum-io/pali-gateway/types"
)

const erc20ApproveABI = `[{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}]`

// erc20ABI only carries approve (selector 0x095ea7b3); MethodById on the
// first four calldata bytes is all the classification needs.
var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ApproveABI))
	if err != nil {
		panic(err)
	}
}

// IsApprove reports whether calldata invokes ERC-20 approve.
func IsApprove(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	method, err := erc20ABI.MethodById(data[:4])
	return err == nil && method.Name == "approve"
}

var assetKinds = map[types.TxType]types.PopupKind{
	types.TxNewToken:      types.PopupCreateAsset,
	types.TxNewNFT:        types.PopupCreateAsset,
	types.TxMintToken:     types.PopupMintAsset,
	types.TxUpdateToken:   types.PopupUpdateAsset,
	types.TxTransferToken: types.PopupTransferOwnership,
}

// Classify maps a mutating request onto the popup kind it needs. It runs
// before any window opens: the popup UI and its copy differ per kind, so a
// send carrying approve calldata must be told apart up front.
func Classify(tx *types.TxRequest) (types.PopupKind, error) {
	switch tx.Type {
	case types.TxSignMessage:
		return types.PopupSignMessage, nil
	case types.TxSend:
		if IsApprove(tx.Data) {
			return types.PopupApproveSpend, nil
		}
		return types.PopupSendTransaction, nil
	default:
		if kind, ok := assetKinds[tx.Type]; ok {
			return kind, nil
		}
		return "", types.ErrUnknownTransactionType
	}
}
