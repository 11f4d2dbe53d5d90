package fanout

import (
	"context"
	"encoding/json"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/pollum-io/pali-gateway/metrics"
	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/types"
)

var log = logging.Logger("event_fanout")

// ChainNamer yields the chain label used in event ids. It is a function so
// the active network can change under a running gateway.
type ChainNamer func(ctx context.Context) string

// Publisher re-broadcasts wallet-level domain events to origins. Delivery is
// gated twice: the origin must hold an active connection AND have subscribed
// to the event name, so a page that registered a listener without ever being
// granted a connection learns nothing. The close event is the one exception:
// it reaches any origin that was connected this session, listening or not.
type Publisher struct {
	registry origins.IOriginRegistry
	chain    ChainNamer
}

func NewPublisher(registry origins.IOriginRegistry, chain ChainNamer) *Publisher {
	return &Publisher{
		registry: registry,
		chain:    chain,
	}
}

// Publish delivers event to origin's channels and reports how many channels
// accepted it. Fanout never blocks the dispatcher: a full relay channel drops
// the event with a warning.
func (p *Publisher) Publish(ctx context.Context, event types.DomainEvent, origin string, payload json.RawMessage) int {
	if !event.Valid() {
		log.Warnf("refusing to publish unknown event %q", event)
		return 0
	}

	if event == types.EventClose {
		if !p.registry.HasSession(origin) {
			return 0
		}
	} else if !p.registry.IsConnected(origin) || !p.registry.IsListening(origin, event) {
		return 0
	}

	out := &types.OriginEvent{
		ID:         types.EventID(p.chain(ctx), origin, event),
		Event:      event,
		Payload:    payload,
		CreateTime: time.Now(),
	}

	delivered := 0
	for _, channel := range p.registry.Channels(origin) {
		select {
		case channel.OutBound <- out:
			delivered++
		default:
			log.Warnf("origin %s channel %s full, drop event %s", origin, channel.ChannelID, event)
		}
	}
	if delivered > 0 {
		_ = stats.RecordWithTags(ctx, []tag.Mutator{
			tag.Upsert(metrics.EventKey, string(event)),
			tag.Upsert(metrics.OriginKey, origin),
		}, metrics.EventPublished.M(int64(delivered)))
	}
	return delivered
}
