package popup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/modern-go/reflect2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/pollum-io/pali-gateway/metrics"
	"github.com/pollum-io/pali-gateway/types"
)

var log = logging.Logger("popup_broker")

// PopupRegisterPolicy is sent by a popup UI process when it registers its
// request channel.
type PopupRegisterPolicy struct {
	Name string
}

// PendingState is the admin view of the outstanding popup request, if any.
type PendingState struct {
	ID         uuid.UUID
	WindowID   uint64
	Kind       types.PopupKind
	Origin     string
	CreateTime time.Time
}

// Broker turns a user-mediated confirmation into a single resolution. It
// pushes an open-popup request to the registered popup UI channel, then waits
// for exactly one of: a correlated response, a window-close for the popup's
// window id, a per-kind timeout, or ctx cancellation. The single-flight gate
// is released exactly once on any terminal outcome.
type Broker struct {
	cfg  *types.RequestConfig
	gate *Gate

	reqLk     sync.Mutex
	idRequest map[uuid.UUID]*types.PopupRequestEvent
	byWindow  map[uint64]uuid.UUID
	windowSeq uint64

	connLk sync.RWMutex
	conns  map[uuid.UUID]*types.ChannelInfo

	closer autoClose
}

func NewBroker(ctx context.Context, cfg *types.RequestConfig) *Broker {
	b := &Broker{
		cfg:       cfg,
		gate:      NewGate(),
		idRequest: make(map[uuid.UUID]*types.PopupRequestEvent),
		byWindow:  make(map[uint64]uuid.UUID),
		conns:     make(map[uuid.UUID]*types.ChannelInfo),
	}
	go b.cleanRequests(ctx)
	return b
}

// ListenPopupEvent registers a popup UI channel. The first event is an init
// hello carrying the channel id; the channel lives until ctx is done.
func (b *Broker) ListenPopupEvent(ctx context.Context, policy *PopupRegisterPolicy) (<-chan *types.PopupRequestEvent, error) {
	name := ""
	if policy != nil {
		name = policy.Name
	}
	ip, _ := types.CtxGetIP(ctx)

	out := make(chan *types.PopupRequestEvent, b.cfg.RequestQueueSize)
	channel := types.NewChannelInfo(ip, out)

	b.connLk.Lock()
	b.conns[channel.ChannelID] = channel
	b.connLk.Unlock()
	log.Infow("popup ui registered", "name", name, "ip", ip, "channel", channel.ChannelID)

	go func() {
		defer close(out)

		helloBytes, err := json.Marshal(types.ConnectedCompleted{ChannelID: channel.ChannelID})
		if err != nil {
			log.Errorf("marshal hello failed %v", err)
			return
		}
		out <- &types.PopupRequestEvent{
			ID:         uuid.New(),
			Kind:       types.PopupInit,
			Payload:    helloBytes,
			CreateTime: time.Now(),
			Result:     nil,
		} // not responded to

		<-ctx.Done()
		b.connLk.Lock()
		delete(b.conns, channel.ChannelID)
		b.connLk.Unlock()
		log.Infof("popup ui channel %s removed", channel.ChannelID)
	}()
	return out, nil
}

// Open brokers one confirmation popup of the given kind and returns the
// approval payload along with the window id the UI rendered into. It fails
// fast with ErrPopupAlreadyOpen while another popup is pending.
func (b *Broker) Open(ctx context.Context, kind types.PopupKind, origin string, payload json.RawMessage, hardware bool) (json.RawMessage, uint64, error) {
	if !b.gate.TryAcquire() {
		return nil, 0, types.ErrPopupAlreadyOpen
	}
	defer b.gate.Release()

	conn, err := b.popupConn()
	if err != nil {
		return nil, 0, err
	}

	req := &types.PopupRequestEvent{
		ID:         uuid.New(),
		Kind:       kind,
		Origin:     origin,
		Payload:    payload,
		CreateTime: time.Now(),
		Result:     make(chan *types.PopupResponseEvent, 1),
	}

	b.reqLk.Lock()
	b.windowSeq++
	req.WindowID = b.windowSeq
	b.idRequest[req.ID] = req
	b.byWindow[req.WindowID] = req.ID
	b.reqLk.Unlock()
	defer b.remove(req.ID)

	start := time.Now()
	select {
	case conn.OutBound <- req:
		log.Debugf("popup %s opened for %s, window %d", kind, origin, req.WindowID)
	case <-ctx.Done():
		return nil, req.WindowID, fmt.Errorf("send popup request cancel by context %w", ctx.Err())
	}

	timeout := b.cfg.PopupTimeout(kind, hardware)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-req.Result:
		_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.PopupKindKey, string(kind))},
			metrics.PopupResolve.M(metrics.SinceInMilliseconds(start)))
		if resp.Error != "" {
			if resp.Error == types.ErrUserDenied.Error() {
				_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.PopupKindKey, string(kind))},
					metrics.PopupDenied.M(1))
				return nil, req.WindowID, types.ErrUserDenied
			}
			return nil, req.WindowID, errors.New(resp.Error)
		}
		return resp.Payload, req.WindowID, nil
	case <-timer.C:
		_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.PopupKindKey, string(kind))},
			metrics.PopupTimeout.M(1))
		return nil, req.WindowID, fmt.Errorf("%w: %s after %s", types.ErrPopupTimeout, kind, timeout)
	case <-ctx.Done():
		return nil, req.WindowID, fmt.Errorf("popup request cancel by context %w", ctx.Err())
	}
}

// OpenInto is Open with the approval payload unmarshalled into result.
func (b *Broker) OpenInto(ctx context.Context, kind types.PopupKind, origin string, payload json.RawMessage, hardware bool, result interface{}) error {
	respPayload, _, err := b.Open(ctx, kind, origin, payload, hardware)
	if err != nil {
		return err
	}
	if !reflect2.IsNil(result) && len(respPayload) > 0 {
		return json.Unmarshal(respPayload, result)
	}
	return nil
}

// ResponsePopupEvent resolves the pending request matching resp.ID. The first
// resolution wins; a response for an id already resolved (or swept) is an
// error for the caller and a no-op for the broker.
func (b *Broker) ResponsePopupEvent(ctx context.Context, resp *types.PopupResponseEvent) error {
	// any user action cancels a pending auto-close
	b.closer.cancel()

	b.reqLk.Lock()
	req, ok := b.idRequest[resp.ID]
	if ok {
		delete(b.idRequest, resp.ID)
		delete(b.byWindow, req.WindowID)
	}
	b.reqLk.Unlock()
	if !ok {
		return fmt.Errorf("popup request id %s not exist", resp.ID)
	}
	req.Result <- resp
	return nil
}

// WindowClosed handles the browser's window-removed signal. The close event
// carries no correlation id, so the pending request is matched by window id
// and resolved as denied. Closing an idle window only cancels a scheduled
// auto-close.
func (b *Broker) WindowClosed(ctx context.Context, windowID uint64) error {
	b.closer.cancel()

	b.reqLk.Lock()
	id, ok := b.byWindow[windowID]
	if !ok {
		b.reqLk.Unlock()
		return nil
	}
	req := b.idRequest[id]
	delete(b.idRequest, id)
	delete(b.byWindow, windowID)
	b.reqLk.Unlock()

	req.Result <- &types.PopupResponseEvent{
		ID:    id,
		Error: types.ErrUserDenied.Error(),
	}
	return nil
}

// ScheduleClose arms the auto-close timer for a window. A later schedule
// replaces an earlier one; ResponsePopupEvent and WindowClosed cancel it.
func (b *Broker) ScheduleClose(windowID uint64, d time.Duration, reason string) {
	b.closer.schedule(d, func() {
		b.pushClose(windowID, reason)
	})
}

func (b *Broker) CancelScheduledClose() {
	b.closer.cancel()
}

func (b *Broker) ListPendingPopup() []*PendingState {
	b.reqLk.Lock()
	defer b.reqLk.Unlock()

	pending := make([]*PendingState, 0, len(b.idRequest))
	for _, req := range b.idRequest {
		pending = append(pending, &PendingState{
			ID:         req.ID,
			WindowID:   req.WindowID,
			Kind:       req.Kind,
			Origin:     req.Origin,
			CreateTime: req.CreateTime,
		})
	}
	return pending
}

func (b *Broker) popupConn() (*types.ChannelInfo, error) {
	b.connLk.RLock()
	defer b.connLk.RUnlock()

	for _, conn := range b.conns {
		return conn, nil
	}
	return nil, fmt.Errorf("no popup ui channel registered")
}

func (b *Broker) remove(id uuid.UUID) {
	b.reqLk.Lock()
	defer b.reqLk.Unlock()

	if req, ok := b.idRequest[id]; ok {
		delete(b.idRequest, id)
		delete(b.byWindow, req.WindowID)
	}
}

func (b *Broker) pushClose(windowID uint64, reason string) {
	payload, _ := json.Marshal(map[string]string{"reason": reason})
	event := &types.PopupRequestEvent{
		ID:         uuid.New(),
		WindowID:   windowID,
		Kind:       types.PopupCloseWindow,
		Payload:    payload,
		CreateTime: time.Now(),
		Result:     nil,
	}

	b.connLk.RLock()
	defer b.connLk.RUnlock()
	for _, conn := range b.conns {
		select {
		case conn.OutBound <- event:
		default:
			log.Warnf("popup channel %s full, drop close for window %d", conn.ChannelID, windowID)
		}
	}
}

// cleanRequests sweeps pending requests whose waiter is gone, e.g. a
// dispatcher goroutine killed by a dropped RPC connection.
func (b *Broker) cleanRequests(ctx context.Context) {
	tm := time.NewTicker(b.cfg.ClearInterval)
	defer tm.Stop()
	for {
		select {
		case <-tm.C:
			b.reqLk.Lock()
			for id, req := range b.idRequest {
				if time.Since(req.CreateTime) > b.cfg.MaxPopupTimeout() {
					delete(b.idRequest, id)
					delete(b.byWindow, req.WindowID)
					// avoid blocking in case the waiter shows up late
					select {
					case req.Result <- &types.PopupResponseEvent{
						ID:    id,
						Error: fmt.Sprintf("%s: swept %s popup created %s", types.ErrPopupTimeout, req.Kind, req.CreateTime),
					}:
					default:
					}
				}
			}
			b.reqLk.Unlock()
		case <-ctx.Done():
			log.Warnf("return clean popup requests")
			return
		}
	}
}
