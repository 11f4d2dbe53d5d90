package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChannelInfo is a registered popup UI connection. The broker pushes
// PopupRequestEvents down OutBound for as long as the subscription lives.
type ChannelInfo struct {
	ChannelID  uuid.UUID
	IP         string
	OutBound   chan *PopupRequestEvent
	CreateTime time.Time
}

func NewChannelInfo(ip string, out chan *PopupRequestEvent) *ChannelInfo {
	return &ChannelInfo{
		ChannelID:  uuid.New(),
		IP:         ip,
		OutBound:   out,
		CreateTime: time.Now(),
	}
}

// OriginEvent is a domain event delivered to a page's relay channel. ID uses
// the ${chain}.${origin}.${method} format the relay routes on.
type OriginEvent struct {
	ID         string
	Event      DomainEvent
	Payload    json.RawMessage
	CreateTime time.Time
}

// OriginChannel is a relay's event subscription for one origin.
type OriginChannel struct {
	ChannelID  uuid.UUID
	IP         string
	OutBound   chan *OriginEvent
	CreateTime time.Time
}

func NewOriginChannel(ip string, out chan *OriginEvent) *OriginChannel {
	return &OriginChannel{
		ChannelID:  uuid.New(),
		IP:         ip,
		OutBound:   out,
		CreateTime: time.Now(),
	}
}
