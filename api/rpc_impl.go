package api

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/pollum-io/pali-gateway/dispatch"
	"github.com/pollum-io/pali-gateway/fanout"
	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/types"
)

var _ IGatewayAPI = (*GatewayAPIImpl)(nil)

// GatewayAPIImpl stitches the dispatcher, the popup broker, the origin event
// stream and the registry into the one RPC surface both extension processes
// dial.
type GatewayAPIImpl struct {
	dispatcher *dispatch.Dispatcher
	broker     *popup.Broker
	stream     *origins.OriginEventStream
	registry   origins.IOriginRegistry
	publisher  *fanout.Publisher
}

func NewGatewayAPIImpl(
	dispatcher *dispatch.Dispatcher,
	broker *popup.Broker,
	stream *origins.OriginEventStream,
	registry origins.IOriginRegistry,
	publisher *fanout.Publisher,
) *GatewayAPIImpl {
	return &GatewayAPIImpl{
		dispatcher: dispatcher,
		broker:     broker,
		stream:     stream,
		registry:   registry,
		publisher:  publisher,
	}
}

func (g *GatewayAPIImpl) Dispatch(ctx context.Context, origin string, msg *types.Message) (*types.Response, error) {
	if origin == "" {
		return nil, errors.New("dispatch requires an origin")
	}
	if msg == nil {
		return nil, errors.New("dispatch requires a message")
	}
	// errors past this point ride inside the response envelope
	return g.dispatcher.Dispatch(ctx, origin, msg), nil
}

func (g *GatewayAPIImpl) ListenOriginEvents(ctx context.Context, policy *origins.OriginRegisterPolicy) (<-chan *types.OriginEvent, error) {
	return g.stream.ListenOriginEvents(ctx, policy)
}

func (g *GatewayAPIImpl) ListenPopupEvent(ctx context.Context, policy *popup.PopupRegisterPolicy) (<-chan *types.PopupRequestEvent, error) {
	return g.broker.ListenPopupEvent(ctx, policy)
}

func (g *GatewayAPIImpl) ResponsePopupEvent(ctx context.Context, resp *types.PopupResponseEvent) error {
	if resp == nil {
		return errors.New("response requires a body")
	}
	return g.broker.ResponsePopupEvent(ctx, resp)
}

func (g *GatewayAPIImpl) PopupWindowClosed(ctx context.Context, windowID uint64) error {
	return g.broker.WindowClosed(ctx, windowID)
}

func (g *GatewayAPIImpl) ListOriginInfo(ctx context.Context) ([]*origins.OriginInfo, error) {
	return g.registry.ListOriginInfo(), nil
}

func (g *GatewayAPIImpl) GetOriginInfo(ctx context.Context, origin string) (*origins.OriginInfo, error) {
	return g.registry.GetOriginInfo(origin)
}

func (g *GatewayAPIImpl) ListPendingPopup(ctx context.Context) ([]*popup.PendingState, error) {
	return g.broker.ListPendingPopup(), nil
}

// PublishEvent pushes a wallet-side event. An empty origin broadcasts to every
// known session; delivery still honors each origin's connection and listener
// state, so the count may be lower than the session count.
func (g *GatewayAPIImpl) PublishEvent(ctx context.Context, event types.DomainEvent, origin string, payload json.RawMessage) (int, error) {
	if !event.Valid() {
		return 0, errors.Errorf("unknown event %q", event)
	}
	if origin != "" {
		return g.publisher.Publish(ctx, event, origin, payload), nil
	}

	delivered := 0
	for _, info := range g.registry.ListOriginInfo() {
		delivered += g.publisher.Publish(ctx, event, info.Origin, payload)
	}
	return delivered, nil
}
