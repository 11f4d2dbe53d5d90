package txrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	logging "github.com/ipfs/go-log/v2"

	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/types"
)

var log = logging.Logger("tx_router")

// Router drives mutating wallet calls: classify the payload, broker the
// matching confirmation popup, invoke the external keyring once the user
// approved, and arm the window auto-close timer for the terminal state.
type Router struct {
	broker  *popup.Broker
	keyring types.IKeyringHandler
	cfg     *types.AutoCloseConfig
}

func NewRouter(broker *popup.Broker, keyring types.IKeyringHandler, cfg *types.AutoCloseConfig) *Router {
	return &Router{
		broker:  broker,
		keyring: keyring,
		cfg:     cfg,
	}
}

// Route runs one mutating request end to end and returns the keyring result.
// Keyring failures come back as errors carrying the keyring's message; the
// popup window is left to show them and scheduled to close on its own.
func (r *Router) Route(ctx context.Context, origin string, tx *types.TxRequest) (json.RawMessage, error) {
	kind, err := Classify(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, tx.Type)
	}

	reqPayload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("marshal tx request: %w", err)
	}

	_, windowID, err := r.broker.Open(ctx, kind, origin, reqPayload, tx.Hardware)
	if err != nil {
		// denied, timed out or busy: the window is gone or never opened
		return nil, err
	}

	// The window stays up showing progress while the keyring works. If the
	// confirmation never settles the fallback timer cancels the window.
	r.broker.ScheduleClose(windowID, r.cfg.PendingFallback, "confirmation pending")

	result, err := r.invokeKeyring(ctx, tx)
	if err != nil {
		log.Warnf("keyring call for %s from %s failed: %v", tx.Type, origin, err)
		r.broker.ScheduleClose(windowID, r.cfg.ErrorDelay, "action failed")
		return nil, err
	}

	r.broker.ScheduleClose(windowID, r.cfg.SuccessDelay, "action completed")
	return result, nil
}

func (r *Router) invokeKeyring(ctx context.Context, tx *types.TxRequest) (json.RawMessage, error) {
	switch tx.Type {
	case types.TxSignMessage:
		return r.keyring.SignMessage(ctx, tx.Payload)
	case types.TxSend:
		return r.keyring.SendTransaction(ctx, tx)
	case types.TxNewToken:
		return r.keyring.ConfirmTokenCreation(ctx, tx.Payload)
	case types.TxNewNFT:
		return r.keyring.ConfirmNftCreation(ctx, tx.Payload)
	case types.TxMintToken:
		return r.keyring.ConfirmTokenMint(ctx, tx.Payload)
	case types.TxUpdateToken:
		return r.keyring.ConfirmUpdateToken(ctx, tx.Payload)
	case types.TxTransferToken:
		return r.keyring.TransferAssetOwnership(ctx, tx.Payload)
	default:
		// unreachable once Classify passed, kept for exhaustiveness
		return nil, errors.New("unroutable transaction type")
	}
}
