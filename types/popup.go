package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PopupKind selects the confirmation window the popup UI renders. The
// user-facing copy differs per kind, so classification happens before any
// window opens.
type PopupKind string

const (
	PopupConnect           PopupKind = "connect"
	PopupDisconnect        PopupKind = "disconnect"
	PopupSignMessage       PopupKind = "sign-message"
	PopupSendTransaction   PopupKind = "send-transaction"
	PopupApproveSpend      PopupKind = "approve-spend"
	PopupCreateAsset       PopupKind = "create-asset"
	PopupMintAsset         PopupKind = "mint-asset"
	PopupUpdateAsset       PopupKind = "update-asset"
	PopupTransferOwnership PopupKind = "transfer-ownership"

	// PopupInit is the hello event pushed when a popup UI registers its
	// channel, it never corresponds to a pending request.
	PopupInit PopupKind = "init"
	// PopupCloseWindow instructs the UI to tear a window down, pushed by the
	// auto-close timer. Carries no Result channel.
	PopupCloseWindow PopupKind = "close-window"
)

// PopupRequestEvent is pushed down the popup UI channel when the broker needs
// a user decision. ID correlates the eventual PopupResponseEvent; WindowID
// identifies the browser window for close events, which do not carry the
// correlation id.
type PopupRequestEvent struct {
	ID         uuid.UUID
	WindowID   uint64
	Kind       PopupKind
	Origin     string
	Payload    json.RawMessage
	CreateTime time.Time

	Result chan *PopupResponseEvent `json:"-"`
}

// PopupResponseEvent is the popup UI's answer for a pending request. A
// non-empty Error means the user denied or the action failed in the UI.
type PopupResponseEvent struct {
	ID      uuid.UUID
	Payload json.RawMessage
	Error   string
}

// ConnectedCompleted tells a freshly registered channel its id.
type ConnectedCompleted struct {
	ChannelID uuid.UUID
}

// ConnectApproval is the payload a connect popup resolves with.
type ConnectApproval struct {
	AccountID string `json:"accountId"`
}

// EnableResult answers an ENABLE_REQUEST. A closed-without-action popup
// yields {connected: false}, not an error, so the page can retry.
type EnableResult struct {
	Connected bool   `json:"connected"`
	AccountID string `json:"accountId,omitempty"`
}
