package txrouter

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/testhelper"
	"github.com/pollum-io/pali-gateway/types"
)

type routerEnv struct {
	broker   *popup.Broker
	keyring  *testhelper.MemKeyring
	router   *Router
	popupCh  <-chan *types.PopupRequestEvent
	closeCfg *types.AutoCloseConfig
}

func setup(t *testing.T) *routerEnv {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := types.DefaultRequestConfig()
	cfg.DefaultPopupTimeout = time.Second * 2

	closeCfg := &types.AutoCloseConfig{
		SuccessDelay:    time.Millisecond * 20,
		ErrorDelay:      time.Millisecond * 40,
		PendingFallback: time.Minute,
	}

	broker := popup.NewBroker(ctx, cfg)
	keyring := testhelper.NewMemKeyring()
	popupCh, err := broker.ListenPopupEvent(ctx, nil)
	require.NoError(t, err)
	<-popupCh // init hello

	return &routerEnv{
		broker:   broker,
		keyring:  keyring,
		router:   NewRouter(broker, keyring, closeCfg),
		popupCh:  popupCh,
		closeCfg: closeCfg,
	}
}

func waitClose(t *testing.T, ch <-chan *types.PopupRequestEvent) *types.PopupRequestEvent {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case event := <-ch:
			if event.Kind == types.PopupCloseWindow {
				return event
			}
		case <-deadline:
			t.Fatal("no close push")
		}
	}
}

func TestRouteApproved(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testhelper.RunPopupResponder(ctx, env.broker, env.popupCh, testhelper.Approve(`{}`))

	result, err := env.router.Route(ctx, "https://app.example", &types.TxRequest{Type: types.TxSignMessage})
	require.NoError(t, err)

	var signed struct {
		Signature string `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(result, &signed))
	require.Equal(t, "0xdeadbeef", signed.Signature)

	// success schedules a short auto-close for the window
	closeEvent := waitClose(t, env.popupCh)
	require.JSONEq(t, `{"reason":"action completed"}`, string(closeEvent.Payload))
}

func TestRouteDenied(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testhelper.RunPopupResponder(ctx, env.broker, env.popupCh, testhelper.Deny())

	_, err := env.router.Route(ctx, "https://app.example", &types.TxRequest{Type: types.TxSend})
	require.ErrorIs(t, err, types.ErrUserDenied)

	// a denial never reaches the keyring and never schedules a close
	select {
	case event := <-env.popupCh:
		if event.Kind == types.PopupCloseWindow {
			t.Fatal("close scheduled after denial")
		}
	case <-time.After(time.Millisecond * 150):
	}
}

func TestRouteKeyringError(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testhelper.RunPopupResponder(ctx, env.broker, env.popupCh, testhelper.Approve(`{}`))
	env.keyring.Fail(&types.WireError{Code: types.CodeKeyring, Message: "insufficient funds"})

	_, err := env.router.Route(ctx, "https://app.example", &types.TxRequest{Type: types.TxSend})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insufficient funds")

	// the window stays up to show the error, then closes on the error delay
	closeEvent := waitClose(t, env.popupCh)
	require.JSONEq(t, `{"reason":"action failed"}`, string(closeEvent.Payload))
}

func TestRouteOpensMatchingPopupKind(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	data, err := hexutil.Decode(approveCalldata)
	require.NoError(t, err)

	kinds := make(chan types.PopupKind, 1)
	testhelper.RunPopupResponder(ctx, env.broker, env.popupCh, func(req *types.PopupRequestEvent) *types.PopupResponseEvent {
		kinds <- req.Kind
		return &types.PopupResponseEvent{ID: req.ID, Payload: json.RawMessage(`{}`)}
	})

	_, err = env.router.Route(ctx, "https://app.example", &types.TxRequest{Type: types.TxSend, Data: data})
	require.NoError(t, err)
	require.Equal(t, types.PopupApproveSpend, <-kinds)
}

func TestRouteUnknownType(t *testing.T) {
	env := setup(t)

	_, err := env.router.Route(context.Background(), "https://app.example", &types.TxRequest{Type: "burnEverything"})
	require.ErrorIs(t, err, types.ErrUnknownTransactionType)
	// nothing must reach the popup channel
	require.Empty(t, env.popupCh)
}

func TestRouteAssetFlow(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testhelper.RunPopupResponder(ctx, env.broker, env.popupCh, testhelper.Approve(`{}`))

	result, err := env.router.Route(ctx, "https://app.example", &types.TxRequest{
		Type:    types.TxNewToken,
		Payload: json.RawMessage(`{"symbol":"PALI","maxsupply":1000000}`),
	})
	require.NoError(t, err)

	var created struct {
		AssetGuid string `json:"assetGuid"`
	}
	require.NoError(t, json.Unmarshal(result, &created))
	require.NotEmpty(t, created.AssetGuid)
}
