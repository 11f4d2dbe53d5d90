package testhelper

import (
	"context"
	"encoding/json"

	"github.com/pollum-io/pali-gateway/types"
)

// PopupDecision maps an open-popup request onto the user's answer.
type PopupDecision func(req *types.PopupRequestEvent) *types.PopupResponseEvent

// Approve answers every popup with the given payload.
func Approve(payload string) PopupDecision {
	return func(req *types.PopupRequestEvent) *types.PopupResponseEvent {
		return &types.PopupResponseEvent{
			ID:      req.ID,
			Payload: json.RawMessage(payload),
		}
	}
}

// Deny answers every popup as a user denial.
func Deny() PopupDecision {
	return func(req *types.PopupRequestEvent) *types.PopupResponseEvent {
		return &types.PopupResponseEvent{
			ID:    req.ID,
			Error: types.ErrUserDenied.Error(),
		}
	}
}

// Ignore never answers, forcing the broker's timeout path.
func Ignore() PopupDecision {
	return func(req *types.PopupRequestEvent) *types.PopupResponseEvent {
		return nil
	}
}

type popupResponder interface {
	ResponsePopupEvent(ctx context.Context, resp *types.PopupResponseEvent) error
}

// RunPopupResponder plays the popup UI process: it drains requests from ch and
// answers each through target. Init hellos and close-window pushes carry no
// result channel and are skipped.
func RunPopupResponder(ctx context.Context, target popupResponder, ch <-chan *types.PopupRequestEvent, decide PopupDecision) {
	go func() {
		for {
			select {
			case req, ok := <-ch:
				if !ok {
					return
				}
				if req.Kind == types.PopupInit || req.Kind == types.PopupCloseWindow {
					continue
				}
				resp := decide(req)
				if resp == nil {
					continue
				}
				_ = target.ResponsePopupEvent(ctx, resp)
			case <-ctx.Done():
				return
			}
		}
	}()
}
