package integrate

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/filecoin-project/go-jsonrpc"
	"github.com/stretchr/testify/require"

	"github.com/pollum-io/pali-gateway/api"
	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/testhelper"
	"github.com/pollum-io/pali-gateway/types"
)

func setupDaemon(t *testing.T, ctx context.Context) *mockDaemon {
	daemon, err := MockMain(ctx, t.TempDir())
	require.NoError(t, err)
	return daemon
}

func newClient(t *testing.T, ctx context.Context, daemon *mockDaemon) *api.GatewayStruct {
	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+string(daemon.token))

	var client api.GatewayStruct
	closer, err := jsonrpc.NewMergeClient(ctx, wsURL(daemon.url),
		"Gateway", []interface{}{&client.Internal}, headers)
	require.NoError(t, err)
	t.Cleanup(closer)
	return &client
}

// startPopupUI registers a popup channel over RPC and answers requests with
// decide, the way the real popup process would.
func startPopupUI(t *testing.T, ctx context.Context, client *api.GatewayStruct, decide testhelper.PopupDecision) {
	ch, err := client.ListenPopupEvent(ctx, nil)
	require.NoError(t, err)
	testhelper.RunPopupResponder(ctx, client, ch, decide)
}

func dispatch(t *testing.T, ctx context.Context, client *api.GatewayStruct, origin, id, msgType string, data interface{}) *types.Response {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	resp, err := client.Dispatch(ctx, origin, &types.Message{ID: id, Type: msgType, Data: raw})
	require.NoError(t, err)
	require.Equal(t, id, resp.ID)
	return resp
}

func decodeResult(t *testing.T, resp *types.Response, v interface{}) {
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func decodeError(t *testing.T, resp *types.Response) *types.WireError {
	var body struct {
		Error *types.WireError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	require.NotNil(t, body.Error)
	return body.Error
}

func TestConnectHandshake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon := setupDaemon(t, ctx)

	relay := newClient(t, ctx, daemon)
	popupUI := newClient(t, ctx, daemon)
	startPopupUI(t, ctx, popupUI, testhelper.Approve(`{"accountId":"acct-0"}`))

	const origin = "https://app.example"

	t.Run("isConnected before the handshake", func(t *testing.T) {
		method := types.MethodIsConnected
		resp := dispatch(t, ctx, relay, origin, "1", types.MsgCalRequest, &types.CalRequest{Method: &method})
		var result struct {
			Connected bool `json:"connected"`
		}
		decodeResult(t, resp, &result)
		require.False(t, result.Connected)
	})

	t.Run("enable opens the connect popup", func(t *testing.T) {
		resp := dispatch(t, ctx, relay, origin, "2", types.MsgEnableRequest, nil)
		var result types.EnableResult
		decodeResult(t, resp, &result)
		require.True(t, result.Connected)
		require.Equal(t, "acct-0", result.AccountID)
	})

	t.Run("reads work once connected", func(t *testing.T) {
		method := types.MethodGetAddress
		resp := dispatch(t, ctx, relay, origin, "3", types.MsgCalRequest, &types.CalRequest{Method: &method})
		var address string
		decodeResult(t, resp, &address)
		require.Equal(t, "0x71562b71999873DB5b286dF957af199Ec94617F7", address)
	})

	t.Run("admin sees the session", func(t *testing.T) {
		info, err := relay.GetOriginInfo(ctx, origin)
		require.NoError(t, err)
		require.True(t, info.Connected)
		require.Equal(t, "acct-0", info.AccountID)
	})
}

func TestEventDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon := setupDaemon(t, ctx)

	relay := newClient(t, ctx, daemon)
	popupUI := newClient(t, ctx, daemon)
	startPopupUI(t, ctx, popupUI, testhelper.Approve(`{"accountId":"acct-0"}`))

	const origin = "https://app.example"

	eventCh, err := relay.ListenOriginEvents(ctx, &origins.OriginRegisterPolicy{Origin: origin})
	require.NoError(t, err)

	dispatch(t, ctx, relay, origin, "1", types.MsgEnableRequest, nil)
	dispatch(t, ctx, relay, origin, "2", types.MsgEventReg, types.EventRegRequest{Event: types.EventChainChanged})

	t.Run("wallet-side broadcast reaches the subscribed origin", func(t *testing.T) {
		delivered, err := relay.PublishEvent(ctx, types.EventChainChanged, "", json.RawMessage(`{"chainId":57}`))
		require.NoError(t, err)
		require.Equal(t, 1, delivered)

		select {
		case event := <-eventCh:
			require.Equal(t, types.EventChainChanged, event.Event)
			require.Equal(t, "mainnet.https://app.example.chainChanged", event.ID)
			require.JSONEq(t, `{"chainId":57}`, string(event.Payload))
		case <-time.After(time.Second * 2):
			t.Fatal("no chainChanged event")
		}
	})

	t.Run("unsubscribed events are filtered", func(t *testing.T) {
		delivered, err := relay.PublishEvent(ctx, types.EventAccountsChanged, "", nil)
		require.NoError(t, err)
		require.Zero(t, delivered)
	})

	t.Run("disconnect pushes close without a subscription", func(t *testing.T) {
		resp := dispatch(t, ctx, relay, origin, "3", types.MsgDisconnect, nil)
		var result struct {
			Disconnected bool `json:"disconnected"`
		}
		decodeResult(t, resp, &result)
		require.True(t, result.Disconnected)

		select {
		case event := <-eventCh:
			require.Equal(t, types.EventClose, event.Event)
		case <-time.After(time.Second * 2):
			t.Fatal("no close event")
		}
	})
}

func TestLockedWallet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon := setupDaemon(t, ctx)

	relay := newClient(t, ctx, daemon)
	popupUI := newClient(t, ctx, daemon)
	startPopupUI(t, ctx, popupUI, testhelper.Approve(`{"accountId":"acct-0"}`))

	const origin = "https://app.example"
	dispatch(t, ctx, relay, origin, "1", types.MsgEnableRequest, nil)

	daemon.keyring.SetLocked(true)

	t.Run("transactions are rejected while locked", func(t *testing.T) {
		resp := dispatch(t, ctx, relay, origin, "2", types.MsgCalRequest, &types.CalRequest{
			Tx: &types.TxRequest{Type: types.TxSignMessage},
		})
		require.Equal(t, types.CodeWalletLocked, decodeError(t, resp).Code)
	})

	t.Run("reads still answer while locked", func(t *testing.T) {
		method := types.MethodGetChainID
		resp := dispatch(t, ctx, relay, origin, "3", types.MsgCalRequest, &types.CalRequest{Method: &method})
		var chainID uint64
		decodeResult(t, resp, &chainID)
		require.Equal(t, uint64(57), chainID)
	})
}

func TestApproveSpendClassification(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon := setupDaemon(t, ctx)

	relay := newClient(t, ctx, daemon)
	popupUI := newClient(t, ctx, daemon)

	kinds := make(chan types.PopupKind, 2)
	startPopupUI(t, ctx, popupUI, func(req *types.PopupRequestEvent) *types.PopupResponseEvent {
		kinds <- req.Kind
		if req.Kind == types.PopupConnect {
			return &types.PopupResponseEvent{ID: req.ID, Payload: json.RawMessage(`{"accountId":"acct-0"}`)}
		}
		return &types.PopupResponseEvent{ID: req.ID, Payload: json.RawMessage(`{}`)}
	})

	const origin = "https://dex.example"
	dispatch(t, ctx, relay, origin, "1", types.MsgEnableRequest, nil)
	require.Equal(t, types.PopupConnect, <-kinds)

	// approve(spender, 1000) calldata on a plain sendTransaction
	data, err := hexutil.Decode("0x095ea7b30000000000000000000000008626f6940e2eb28930efb4cef49b2d1f2c9c119900000000000000000000000000000000000000000000000000000000000003e8")
	require.NoError(t, err)

	resp := dispatch(t, ctx, relay, origin, "2", types.MsgCalRequest, &types.CalRequest{
		Tx: &types.TxRequest{Type: types.TxSend, Data: data},
	})
	var result struct {
		TxID string `json:"txid"`
	}
	decodeResult(t, resp, &result)
	require.NotEmpty(t, result.TxID)
	require.Equal(t, types.PopupApproveSpend, <-kinds)
}

func TestWindowClosedDenies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon := setupDaemon(t, ctx)

	relay := newClient(t, ctx, daemon)
	popupUI := newClient(t, ctx, daemon)

	// the user closes every window without acting
	ch, err := popupUI.ListenPopupEvent(ctx, nil)
	require.NoError(t, err)
	go func() {
		for req := range ch {
			if req.Kind == types.PopupInit || req.Kind == types.PopupCloseWindow {
				continue
			}
			_ = popupUI.PopupWindowClosed(ctx, req.WindowID)
		}
	}()

	const origin = "https://app.example"
	resp := dispatch(t, ctx, relay, origin, "1", types.MsgEnableRequest, nil)
	var result types.EnableResult
	decodeResult(t, resp, &result)
	require.False(t, result.Connected)

	// the window close resolved the request, nothing stays pending
	info, err := relay.ListPendingPopup(ctx)
	require.NoError(t, err)
	require.Empty(t, info)
}

func TestSignSingleFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon := setupDaemon(t, ctx)

	relay := newClient(t, ctx, daemon)
	popupUI := newClient(t, ctx, daemon)

	release := make(chan struct{})
	startPopupUI(t, ctx, popupUI, func(req *types.PopupRequestEvent) *types.PopupResponseEvent {
		if req.Kind == types.PopupConnect {
			return &types.PopupResponseEvent{ID: req.ID, Payload: json.RawMessage(`{"accountId":"acct-0"}`)}
		}
		<-release // hold the first sign popup open
		return &types.PopupResponseEvent{ID: req.ID, Payload: json.RawMessage(`{}`)}
	})

	const origin = "https://app.example"
	dispatch(t, ctx, relay, origin, "1", types.MsgEnableRequest, nil)

	firstDone := make(chan *types.Response, 1)
	go func() {
		resp, err := relay.Dispatch(ctx, origin, &types.Message{
			ID: "2", Type: types.MsgCalRequest,
			Data: json.RawMessage(`{"tx":{"type":"signMessage"}}`),
		})
		require.NoError(t, err)
		firstDone <- resp
	}()

	// wait for the first popup to be pending, then fire the second sign
	require.Eventually(t, func() bool {
		pending, err := relay.ListPendingPopup(ctx)
		require.NoError(t, err)
		return len(pending) == 1
	}, time.Second*2, time.Millisecond*20)

	resp := dispatch(t, ctx, relay, origin, "3", types.MsgCalRequest, &types.CalRequest{
		Tx: &types.TxRequest{Type: types.TxSignMessage},
	})
	require.Equal(t, types.CodePopupAlreadyOpen, decodeError(t, resp).Code)

	// the rejected request left no side effects; the first one still settles
	close(release)
	first := <-firstDone
	var signed struct {
		Signature string `json:"signature"`
	}
	decodeResult(t, first, &signed)
	require.Equal(t, "0xdeadbeef", signed.Signature)
}

func TestPopupTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon := setupDaemon(t, ctx)

	relay := newClient(t, ctx, daemon)
	popupUI := newClient(t, ctx, daemon)
	startPopupUI(t, ctx, popupUI, testhelper.Ignore())

	resp := dispatch(t, ctx, relay, "https://app.example", "1", types.MsgEnableRequest, nil)
	require.Equal(t, types.CodeTimeout, decodeError(t, resp).Code)
}
