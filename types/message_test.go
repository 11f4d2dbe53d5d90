package types

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestResponseEchoesID(t *testing.T) {
	// the relay settles page promises purely by id, so it must survive
	// both success and error paths bit-exact
	ids := []string{"1", "0c5a29e4-e393-4fd6-9d79-7f42e54ec2a0", "", "non-uuid-token"}
	for _, id := range ids {
		require.Equal(t, id, NewResult(id, map[string]bool{"ok": true}).ID)
		require.Equal(t, id, NewErrResponse(id, ErrUnauthorized).ID)
	}
}

func TestErrResponseShape(t *testing.T) {
	resp := NewErrResponse("1", ErrWalletLocked)

	var body struct {
		Error *WireError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	require.Equal(t, CodeWalletLocked, body.Error.Code)
	require.Equal(t, ErrWalletLocked.Error(), body.Error.Message)
}

func TestAsWireError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		require.Nil(t, AsWireError(nil))
	})

	t.Run("sentinels map to their codes", func(t *testing.T) {
		cases := map[ErrorCode]error{
			CodeUnauthorized:           ErrUnauthorized,
			CodeWalletLocked:           ErrWalletLocked,
			CodePopupAlreadyOpen:       ErrPopupAlreadyOpen,
			CodeUnknownTransactionType: ErrUnknownTransactionType,
			CodeUnknownRequestMethod:   ErrUnknownRequestMethod,
			CodeTimeout:                ErrPopupTimeout,
			CodeUserDenied:             ErrUserDenied,
		}
		for code, err := range cases {
			require.Equal(t, code, AsWireError(err).Code)
		}
	})

	t.Run("wrapped sentinel keeps its code", func(t *testing.T) {
		err := errors.Wrap(ErrUnauthorized, "while reading balance")
		wireErr := AsWireError(err)
		require.Equal(t, CodeUnauthorized, wireErr.Code)
		require.Contains(t, wireErr.Message, "while reading balance")
	})

	t.Run("unknown errors pass through as keyring failures", func(t *testing.T) {
		wireErr := AsWireError(errors.New("insufficient funds for fees"))
		require.Equal(t, CodeKeyring, wireErr.Code)
		require.Equal(t, "insufficient funds for fees", wireErr.Message)
	})

	t.Run("an existing wire error is kept as is", func(t *testing.T) {
		original := &WireError{Code: CodeKeyring, Message: "tx rejected"}
		require.Same(t, original, AsWireError(original))
	})
}

func TestEventID(t *testing.T) {
	require.Equal(t, "mainnet.https://app.example.chainChanged",
		EventID("mainnet", "https://app.example", EventChainChanged))
}

func TestDomainEventValid(t *testing.T) {
	for _, event := range []DomainEvent{
		EventConnectWallet, EventDisconnectWallet, EventSign, EventTransactionSent,
		EventSpendApproved, EventAccountsChanged, EventChainChanged, EventClose,
	} {
		require.True(t, event.Valid(), event)
	}
	require.False(t, DomainEvent("blockMined").Valid())
	require.False(t, DomainEvent("").Valid())
}

func TestWalletMethodValid(t *testing.T) {
	for m := MethodIsConnected; m <= MethodGetBalance; m++ {
		require.True(t, m.Valid(), m.String())
	}
	require.False(t, WalletMethod(-1).Valid())
	require.False(t, WalletMethod(99).Valid())
	require.Equal(t, "unknown", WalletMethod(99).String())
}

func TestCalRequestDecoding(t *testing.T) {
	t.Run("numeric method code", func(t *testing.T) {
		var cal CalRequest
		require.NoError(t, json.Unmarshal([]byte(`{"method":3}`), &cal))
		require.NotNil(t, cal.Method)
		require.Equal(t, MethodGetChainID, *cal.Method)
		require.Nil(t, cal.Tx)
	})

	t.Run("tx payload", func(t *testing.T) {
		var cal CalRequest
		require.NoError(t, json.Unmarshal([]byte(`{"tx":{"type":"sendTransaction","data":"0x095ea7b3"}}`), &cal))
		require.Nil(t, cal.Method)
		require.Equal(t, TxSend, cal.Tx.Type)
		require.Equal(t, []byte{0x09, 0x5e, 0xa7, 0xb3}, []byte(cal.Tx.Data))
	})
}
