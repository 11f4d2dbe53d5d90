package origins

import (
	"context"
	"fmt"

	"github.com/pollum-io/pali-gateway/types"
)

// OriginRegisterPolicy is sent by a content-script relay when it opens its
// event subscription for one origin.
type OriginRegisterPolicy struct {
	Origin string
}

// OriginEventStream hands domain events to content-script relays. A relay
// registers one channel per origin; the fanout publisher writes into it
// through the registry.
type OriginEventStream struct {
	registry IOriginRegistry
	cfg      *types.RequestConfig
}

func NewOriginEventStream(registry IOriginRegistry, cfg *types.RequestConfig) *OriginEventStream {
	return &OriginEventStream{
		registry: registry,
		cfg:      cfg,
	}
}

// ListenOriginEvents attaches an event channel for the relay's origin. The
// channel stays attached until ctx is done, which is how the relay side of a
// closed tab or restarted extension page gets cleaned up.
func (s *OriginEventStream) ListenOriginEvents(ctx context.Context, policy *OriginRegisterPolicy) (<-chan *types.OriginEvent, error) {
	if policy == nil || policy.Origin == "" {
		return nil, fmt.Errorf("listen origin events requires an origin")
	}
	ip, _ := types.CtxGetIP(ctx)

	out := make(chan *types.OriginEvent, s.cfg.RequestQueueSize)
	channel := types.NewOriginChannel(ip, out)
	s.registry.AttachChannel(policy.Origin, channel)
	log.Infof("origin %s listening, channel %s", policy.Origin, channel.ChannelID)

	go func() {
		defer close(out)
		<-ctx.Done()
		s.registry.DetachChannel(policy.Origin, channel.ChannelID)
	}()
	return out, nil
}
