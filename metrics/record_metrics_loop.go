package metrics

import (
	"context"
	"time"
)

func recordMetricsLoop(ctx context.Context, api OriginLister) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	ApiState.Set(ctx, 1)
	for {
		select {
		case <-ticker.C:
			recordOriginInfo(ctx, api)
		case <-ctx.Done():
			ApiState.Set(ctx, 0)
			log.Infof("context done, stop record metrics")
			return
		}
	}
}

func recordOriginInfo(ctx context.Context, api OriginLister) {
	infos, err := api.ListOriginInfo(ctx)
	if err != nil {
		log.Warnf("failed to list origin info %v", err)
		return
	}

	var connNum, listenerNum int64
	for _, info := range infos {
		if info.Connected {
			connNum++
		}
		listenerNum += int64(len(info.SubscribedEvents))
	}

	OriginNum.Set(ctx, int64(len(infos)))
	OriginConnNum.Set(ctx, connNum)
	OriginListenerNum.Set(ctx, listenerNum)
}
