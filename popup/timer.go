package popup

import (
	"sync"
	"time"
)

// autoClose owns the single popup auto-close timer. The original design ran
// three independent timeouts (success, validation error, pending fallback)
// whose interaction was indeterminate; here a new schedule always replaces
// the previous one and any user action cancels it, so at most one close fires.
type autoClose struct {
	lk    sync.Mutex
	timer *time.Timer
}

func (a *autoClose) schedule(d time.Duration, fn func()) {
	a.lk.Lock()
	defer a.lk.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(d, fn)
}

func (a *autoClose) cancel() {
	a.lk.Lock()
	defer a.lk.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
