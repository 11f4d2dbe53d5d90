package dispatch

import (
	"context"
	"encoding/json"

	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/pollum-io/pali-gateway/fanout"
	"github.com/pollum-io/pali-gateway/metrics"
	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/txrouter"
	"github.com/pollum-io/pali-gateway/types"
)

var log = logging.Logger("dispatcher")

// Dispatcher is the state machine over incoming message types. Every path
// ends in a response tagged with the request's id; errors are converted at
// this boundary and never thrown across the relay transport.
type Dispatcher struct {
	registry  origins.IOriginRegistry
	guard     IAccessGuard
	broker    *popup.Broker
	router    *txrouter.Router
	publisher *fanout.Publisher
	keyring   types.IKeyringHandler
}

func NewDispatcher(
	registry origins.IOriginRegistry,
	guard IAccessGuard,
	broker *popup.Broker,
	router *txrouter.Router,
	publisher *fanout.Publisher,
	keyring types.IKeyringHandler,
) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		guard:     guard,
		broker:    broker,
		router:    router,
		publisher: publisher,
		keyring:   keyring,
	}
}

// Dispatch routes one relay message for the given origin. The returned
// response always echoes msg.ID.
func (d *Dispatcher) Dispatch(ctx context.Context, origin string, msg *types.Message) *types.Response {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.MsgTypeKey, msg.Type), tag.Upsert(metrics.OriginKey, origin))
	stats.Record(ctx, metrics.DispatchRequest.M(1))

	resp := d.dispatch(ctx, origin, msg)
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, origin string, msg *types.Message) *types.Response {
	switch msg.Type {
	case types.MsgEventReg:
		return d.handleEventReg(ctx, origin, msg, true)
	case types.MsgEventDereg:
		return d.handleEventReg(ctx, origin, msg, false)
	case types.MsgEnableRequest:
		return d.handleEnable(ctx, origin, msg)
	case types.MsgDisconnect:
		return d.handleDisconnect(ctx, origin, msg)
	case types.MsgCalRequest:
		return d.handleCal(ctx, origin, msg)
	default:
		return d.fail(ctx, origin, msg, errors.Wrapf(types.ErrUnknownRequestMethod, "message type %q", msg.Type))
	}
}

func (d *Dispatcher) fail(ctx context.Context, origin string, msg *types.Message, err error) *types.Response {
	stats.Record(ctx, metrics.DispatchError.M(1))
	log.Warnf("dispatch %s from %s: %v", msg.Type, origin, err)
	return types.NewErrResponse(msg.ID, err)
}

type regResult struct {
	Registered bool `json:"registered"`
}

// handleEventReg mutates the origin's subscriptions. Registration needs no
// permission beyond enum validation; an unknown event name is a no-op so
// malformed requests cannot pollute the registry.
func (d *Dispatcher) handleEventReg(ctx context.Context, origin string, msg *types.Message, register bool) *types.Response {
	var req types.EventRegRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return d.fail(ctx, origin, msg, errors.Wrap(types.ErrUnknownRequestMethod, err.Error()))
	}

	var ok bool
	if register {
		ok = d.registry.RegisterListener(origin, req.Event)
	} else {
		ok = d.registry.DeregisterListener(origin, req.Event)
	}
	return types.NewResult(msg.ID, regResult{Registered: ok})
}

// handleEnable runs the connection handshake. Already-connected origins get
// their binding back without a popup; a closed-without-action popup yields
// {connected:false} so the page can retry.
func (d *Dispatcher) handleEnable(ctx context.Context, origin string, msg *types.Message) *types.Response {
	if accountID, ok := d.registry.AccountFor(origin); ok {
		return types.NewResult(msg.ID, types.EnableResult{Connected: true, AccountID: accountID})
	}

	var approval types.ConnectApproval
	err := d.broker.OpenInto(ctx, types.PopupConnect, origin, msg.Data, false, &approval)
	if errors.Is(err, types.ErrUserDenied) {
		return types.NewResult(msg.ID, types.EnableResult{Connected: false})
	}
	if err != nil {
		return d.fail(ctx, origin, msg, err)
	}

	d.registry.Connect(origin, approval.AccountID)
	return types.NewResult(msg.ID, types.EnableResult{Connected: true, AccountID: approval.AccountID})
}

type disconnectResult struct {
	Disconnected bool `json:"disconnected"`
}

// handleDisconnect removes the binding and immediately tells the origin via a
// close event; close bypasses the listening filter since the site must always
// learn it was disconnected.
func (d *Dispatcher) handleDisconnect(ctx context.Context, origin string, msg *types.Message) *types.Response {
	removed := d.registry.Disconnect(origin)
	if removed {
		d.publisher.Publish(ctx, types.EventClose, origin, nil)
	}
	return types.NewResult(msg.ID, disconnectResult{Disconnected: removed})
}

func (d *Dispatcher) handleCal(ctx context.Context, origin string, msg *types.Message) *types.Response {
	var cal types.CalRequest
	if err := json.Unmarshal(msg.Data, &cal); err != nil {
		return d.fail(ctx, origin, msg, errors.Wrap(types.ErrUnknownRequestMethod, err.Error()))
	}

	// the one status query a page may ask before connecting
	if cal.Method != nil && *cal.Method == types.MethodIsConnected {
		return types.NewResult(msg.ID, map[string]bool{"connected": d.registry.IsConnected(origin)})
	}

	access, err := d.guard.Check(ctx, origin, cal.Tx != nil)
	if err != nil {
		return d.fail(ctx, origin, msg, err)
	}
	switch access {
	case AccessUnauthorized:
		return d.fail(ctx, origin, msg, types.ErrUnauthorized)
	case AccessLocked:
		return d.fail(ctx, origin, msg, types.ErrWalletLocked)
	}

	switch {
	case cal.Method != nil:
		result, err := d.readMethod(ctx, origin, *cal.Method, cal.Params)
		if err != nil {
			return d.fail(ctx, origin, msg, err)
		}
		return types.NewResult(msg.ID, result)
	case cal.Tx != nil:
		result, err := d.router.Route(ctx, origin, cal.Tx)
		if err != nil {
			return d.fail(ctx, origin, msg, err)
		}
		return types.NewResult(msg.ID, json.RawMessage(result))
	default:
		return d.fail(ctx, origin, msg, errors.Wrap(types.ErrUnknownRequestMethod, "cal request carries neither method nor tx"))
	}
}

// readMethod answers the closed read-only enum straight from the keyring.
func (d *Dispatcher) readMethod(ctx context.Context, origin string, method types.WalletMethod, params json.RawMessage) (interface{}, error) {
	if !method.Valid() {
		return nil, errors.Wrapf(types.ErrUnknownRequestMethod, "method code %d", method)
	}

	switch method {
	case types.MethodGetAddress:
		return d.boundAddress(ctx, origin)
	case types.MethodGetAccounts:
		return d.keyring.GetAccounts(ctx)
	case types.MethodGetChainID:
		return d.keyring.GetChainID(ctx)
	case types.MethodGetBlockNumber:
		return d.keyring.GetBlockNumber(ctx)
	case types.MethodGetNetwork:
		return d.keyring.GetNetwork(ctx)
	case types.MethodGetBalance:
		accountID, _ := d.registry.AccountFor(origin)
		return d.keyring.GetBalance(ctx, accountID)
	case types.MethodEstimateGas:
		var tx types.TxRequest
		if err := json.Unmarshal(params, &tx); err != nil {
			return nil, errors.Wrap(types.ErrUnknownRequestMethod, err.Error())
		}
		return d.keyring.EstimateGas(ctx, &tx)
	default:
		return nil, errors.Wrapf(types.ErrUnknownRequestMethod, "method %s", method)
	}
}

func (d *Dispatcher) boundAddress(ctx context.Context, origin string) (string, error) {
	accountID, ok := d.registry.AccountFor(origin)
	if !ok {
		return "", types.ErrUnauthorized
	}
	accounts, err := d.keyring.GetAccounts(ctx)
	if err != nil {
		return "", err
	}
	for _, account := range accounts {
		if account.ID == accountID {
			return account.Address, nil
		}
	}
	return "", errors.Errorf("account %s not found in keyring", accountID)
}
