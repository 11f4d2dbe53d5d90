package origins

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/pollum-io/pali-gateway/types"
)

var log = logging.Logger("origin_registry")

// OriginInfo is the admin view of one origin's session.
type OriginInfo struct {
	Origin           string
	Connected        bool
	AccountID        string
	SubscribedEvents []string
	Channels         []ConnectState
}

type ConnectState struct {
	ChannelID    uuid.UUID
	IP           string
	RequestCount int
	CreateTime   time.Time
}

type IOriginRegistry interface {
	IsConnected(origin string) bool
	Connect(origin, accountID string)
	Disconnect(origin string) bool
	AccountFor(origin string) (string, bool)

	RegisterListener(origin string, event types.DomainEvent) bool
	DeregisterListener(origin string, event types.DomainEvent) bool
	IsListening(origin string, event types.DomainEvent) bool

	HasSession(origin string) bool
	AttachChannel(origin string, channel *types.OriginChannel)
	DetachChannel(origin string, channelID uuid.UUID)
	Channels(origin string) []*types.OriginChannel

	ListOriginInfo() []*OriginInfo
	GetOriginInfo(origin string) (*OriginInfo, error)
}

var _ IOriginRegistry = (*originRegistry)(nil)

// originRegistry tracks which origins are connected, which account each is
// bound to and which domain events each subscribed. A record survives an
// explicit disconnect with the binding cleared, so the session can still
// receive its close event; it is dropped when the last relay channel detaches.
type originRegistry struct {
	lk      sync.Mutex
	records map[string]*originRecord
}

type originRecord struct {
	origin    string
	accountID string
	connected bool
	// wasConnected stays true after a disconnect; close events are only
	// delivered to origins that were connected in this session.
	wasConnected bool
	events       map[types.DomainEvent]struct{}
	channels     map[uuid.UUID]*types.OriginChannel
}

func NewOriginRegistry() IOriginRegistry {
	return &originRegistry{
		records: make(map[string]*originRecord),
	}
}

func (r *originRegistry) record(origin string) *originRecord {
	rec, ok := r.records[origin]
	if !ok {
		rec = &originRecord{
			origin:   origin,
			events:   make(map[types.DomainEvent]struct{}),
			channels: make(map[uuid.UUID]*types.OriginChannel),
		}
		r.records[origin] = rec
	}
	return rec
}

func (r *originRegistry) IsConnected(origin string) bool {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	return ok && rec.connected
}

func (r *originRegistry) Connect(origin, accountID string) {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec := r.record(origin)
	rec.connected = true
	rec.wasConnected = true
	rec.accountID = accountID
	log.Infow("origin connected", "origin", origin, "account", accountID)
}

func (r *originRegistry) Disconnect(origin string) bool {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	if !ok || !rec.connected {
		return false
	}
	rec.connected = false
	rec.accountID = ""
	log.Infof("origin %s disconnected", origin)
	return true
}

func (r *originRegistry) AccountFor(origin string) (string, bool) {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	if !ok || !rec.connected {
		return "", false
	}
	return rec.accountID, true
}

func (r *originRegistry) RegisterListener(origin string, event types.DomainEvent) bool {
	if !event.Valid() {
		// malformed names must not pollute the registry
		log.Warnf("origin %s tried to register unknown event %q", origin, event)
		return false
	}
	r.lk.Lock()
	defer r.lk.Unlock()

	rec := r.record(origin)
	rec.events[event] = struct{}{}
	return true
}

func (r *originRegistry) DeregisterListener(origin string, event types.DomainEvent) bool {
	if !event.Valid() {
		return false
	}
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	if !ok {
		return false
	}
	delete(rec.events, event)
	return true
}

func (r *originRegistry) IsListening(origin string, event types.DomainEvent) bool {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	if !ok {
		return false
	}
	_, ok = rec.events[event]
	return ok
}

func (r *originRegistry) HasSession(origin string) bool {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	return ok && rec.wasConnected
}

func (r *originRegistry) AttachChannel(origin string, channel *types.OriginChannel) {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec := r.record(origin)
	rec.channels[channel.ChannelID] = channel
	log.Infof("origin %s attach channel %s", origin, channel.ChannelID)
}

func (r *originRegistry) DetachChannel(origin string, channelID uuid.UUID) {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	if !ok {
		return
	}
	delete(rec.channels, channelID)
	if len(rec.channels) == 0 && !rec.connected {
		delete(r.records, origin)
	}
	log.Infof("origin %s detach channel %s", origin, channelID)
}

func (r *originRegistry) Channels(origin string) []*types.OriginChannel {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	if !ok {
		return nil
	}
	channels := make([]*types.OriginChannel, 0, len(rec.channels))
	for _, ch := range rec.channels {
		channels = append(channels, ch)
	}
	return channels
}

func (r *originRegistry) ListOriginInfo() []*OriginInfo {
	r.lk.Lock()
	defer r.lk.Unlock()

	infos := make([]*OriginInfo, 0, len(r.records))
	for _, rec := range r.records {
		infos = append(infos, rec.info())
	}
	return infos
}

func (r *originRegistry) GetOriginInfo(origin string) (*OriginInfo, error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	rec, ok := r.records[origin]
	if !ok {
		return nil, fmt.Errorf("origin %s not found", origin)
	}
	return rec.info(), nil
}

func (rec *originRecord) info() *OriginInfo {
	info := &OriginInfo{
		Origin:    rec.origin,
		Connected: rec.connected,
		AccountID: rec.accountID,
	}
	for event := range rec.events {
		info.SubscribedEvents = append(info.SubscribedEvents, string(event))
	}
	for id, ch := range rec.channels {
		info.Channels = append(info.Channels, ConnectState{
			ChannelID:    id,
			IP:           ch.IP,
			RequestCount: len(ch.OutBound),
			CreateTime:   ch.CreateTime,
		})
	}
	return info
}
