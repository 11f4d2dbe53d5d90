package metrics

import (
	"time"

	rpcMetrics "github.com/filecoin-project/go-jsonrpc/metrics"
	"github.com/ipfs-force-community/metrics"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Global Tags
var (
	OriginKey, _    = tag.NewKey("origin")
	MsgTypeKey, _   = tag.NewKey("msg_type")
	PopupKindKey, _ = tag.NewKey("popup_kind")
	EventKey, _     = tag.NewKey("event")
	IPKey, _        = tag.NewKey("ip")
)

// Distribution
var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 3000, 4000, 5000, 7500, 10000, 20000, 50000, 100000)

var (
	// origin
	OriginNum         = metrics.NewInt64("origin/num", "Origins with a live session", stats.UnitDimensionless)
	OriginConnNum     = metrics.NewInt64("origin/conn_num", "Connected origin count", stats.UnitDimensionless)
	OriginListenerNum = metrics.NewInt64("origin/listener_num", "Registered event listeners", stats.UnitDimensionless)

	// dispatch
	DispatchRequest = stats.Int64("dispatch/request", "Messages dispatched", stats.UnitDimensionless)
	DispatchError   = stats.Int64("dispatch/error", "Messages answered with an error", stats.UnitDimensionless)

	// popup
	PopupResolve = stats.Float64("popup_resolve", "Popup resolution spent time", stats.UnitMilliseconds)
	PopupDenied  = stats.Int64("popup/denied", "Popup denied by the user", stats.UnitDimensionless)
	PopupTimeout = stats.Int64("popup/timeout", "Popup timed out", stats.UnitDimensionless)

	// fanout
	EventPublished = stats.Int64("event/published", "Domain events delivered to origins", stats.UnitDimensionless)

	ApiState = metrics.NewInt64("api/state", "api service state. 0: down, 1: up", "")
)

var (
	dispatchRequestView = &view.View{
		Measure:     DispatchRequest,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{MsgTypeKey, OriginKey},
	}
	dispatchErrorView = &view.View{
		Measure:     DispatchError,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{MsgTypeKey, OriginKey},
	}
	popupResolveView = &view.View{
		Measure:     PopupResolve,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{PopupKindKey},
	}
	popupDeniedView = &view.View{
		Measure:     PopupDenied,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{PopupKindKey},
	}
	popupTimeoutView = &view.View{
		Measure:     PopupTimeout,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{PopupKindKey},
	}
	eventPublishedView = &view.View{
		Measure:     EventPublished,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{EventKey, OriginKey},
	}
)

var views = append([]*view.View{
	dispatchRequestView,
	dispatchErrorView,
	popupResolveView,
	popupDeniedView,
	popupTimeoutView,
	eventPublishedView,
}, rpcMetrics.DefaultViews...)

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}
