package api

import (
	"context"
	"encoding/json"

	"github.com/filecoin-project/go-jsonrpc/auth"

	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/types"
)

const (
	PermRead  auth.Permission = "read"
	PermWrite auth.Permission = "write"
	PermAdmin auth.Permission = "admin"
)

var (
	AllPermissions = []auth.Permission{PermRead, PermWrite, PermAdmin}
	DefaultPerms   = []auth.Permission{PermRead}
)

// IOriginEvent is the surface a content-script relay consumes.
type IOriginEvent interface {
	Dispatch(ctx context.Context, origin string, msg *types.Message) (*types.Response, error)
	ListenOriginEvents(ctx context.Context, policy *origins.OriginRegisterPolicy) (<-chan *types.OriginEvent, error)
}

// IPopupEvent is the surface the popup UI process consumes.
type IPopupEvent interface {
	ListenPopupEvent(ctx context.Context, policy *popup.PopupRegisterPolicy) (<-chan *types.PopupRequestEvent, error)
	ResponsePopupEvent(ctx context.Context, resp *types.PopupResponseEvent) error
	PopupWindowClosed(ctx context.Context, windowID uint64) error
}

// IGatewayAdmin is the wallet-side and operator surface.
type IGatewayAdmin interface {
	ListOriginInfo(ctx context.Context) ([]*origins.OriginInfo, error)
	GetOriginInfo(ctx context.Context, origin string) (*origins.OriginInfo, error)
	ListPendingPopup(ctx context.Context) ([]*popup.PendingState, error)
	// PublishEvent lets the wallet UI broadcast accountsChanged/chainChanged;
	// delivery honors each origin's connection and subscription state.
	PublishEvent(ctx context.Context, event types.DomainEvent, origin string, payload json.RawMessage) (int, error)
}

type IGatewayAPI interface {
	IOriginEvent
	IPopupEvent
	IGatewayAdmin
}

// GatewayStruct is the perm-tagged RPC shape of IGatewayAPI.
type GatewayStruct struct {
	Internal struct {
		Dispatch           func(ctx context.Context, origin string, msg *types.Message) (*types.Response, error)                           `perm:"read"`
		ListenOriginEvents func(ctx context.Context, policy *origins.OriginRegisterPolicy) (<-chan *types.OriginEvent, error)              `perm:"read"`
		ListenPopupEvent   func(ctx context.Context, policy *popup.PopupRegisterPolicy) (<-chan *types.PopupRequestEvent, error)           `perm:"write"`
		ResponsePopupEvent func(ctx context.Context, resp *types.PopupResponseEvent) error                                                 `perm:"write"`
		PopupWindowClosed  func(ctx context.Context, windowID uint64) error                                                                `perm:"write"`
		ListOriginInfo     func(ctx context.Context) ([]*origins.OriginInfo, error)                                                        `perm:"admin"`
		GetOriginInfo      func(ctx context.Context, origin string) (*origins.OriginInfo, error)                                           `perm:"admin"`
		ListPendingPopup   func(ctx context.Context) ([]*popup.PendingState, error)                                                        `perm:"admin"`
		PublishEvent       func(ctx context.Context, event types.DomainEvent, origin string, payload json.RawMessage) (int, error)         `perm:"admin"`
	}
}

func (s *GatewayStruct) Dispatch(ctx context.Context, origin string, msg *types.Message) (*types.Response, error) {
	return s.Internal.Dispatch(ctx, origin, msg)
}

func (s *GatewayStruct) ListenOriginEvents(ctx context.Context, policy *origins.OriginRegisterPolicy) (<-chan *types.OriginEvent, error) {
	return s.Internal.ListenOriginEvents(ctx, policy)
}

func (s *GatewayStruct) ListenPopupEvent(ctx context.Context, policy *popup.PopupRegisterPolicy) (<-chan *types.PopupRequestEvent, error) {
	return s.Internal.ListenPopupEvent(ctx, policy)
}

func (s *GatewayStruct) ResponsePopupEvent(ctx context.Context, resp *types.PopupResponseEvent) error {
	return s.Internal.ResponsePopupEvent(ctx, resp)
}

func (s *GatewayStruct) PopupWindowClosed(ctx context.Context, windowID uint64) error {
	return s.Internal.PopupWindowClosed(ctx, windowID)
}

func (s *GatewayStruct) ListOriginInfo(ctx context.Context) ([]*origins.OriginInfo, error) {
	return s.Internal.ListOriginInfo(ctx)
}

func (s *GatewayStruct) GetOriginInfo(ctx context.Context, origin string) (*origins.OriginInfo, error) {
	return s.Internal.GetOriginInfo(ctx, origin)
}

func (s *GatewayStruct) ListPendingPopup(ctx context.Context) ([]*popup.PendingState, error) {
	return s.Internal.ListPendingPopup(ctx)
}

func (s *GatewayStruct) PublishEvent(ctx context.Context, event types.DomainEvent, origin string, payload json.RawMessage) (int, error) {
	return s.Internal.PublishEvent(ctx, event, origin, payload)
}

var _ IGatewayAPI = (*GatewayStruct)(nil)

// PermissionedGatewayAPI enforces the perm tags against the permissions the
// auth handler put into ctx.
func PermissionedGatewayAPI(api IGatewayAPI) IGatewayAPI {
	var out GatewayStruct
	auth.PermissionedProxy(AllPermissions, DefaultPerms, api, &out.Internal)
	return &out
}
