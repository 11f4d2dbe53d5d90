package popup

// Gate is the single-slot semaphore guarding the one in-flight confirmation
// popup. It replaces a free-floating pending flag: acquire and release are
// the only two call sites allowed to touch the slot.
type Gate struct {
	slot chan struct{}
}

func NewGate() *Gate {
	return &Gate{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot without blocking. A false return means another
// popup is pending and the caller must bail out with ErrPopupAlreadyOpen.
func (g *Gate) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot. Releasing a free gate is a no-op rather than a
// panic so a guaranteed-cleanup path can call it unconditionally.
func (g *Gate) Release() {
	select {
	case <-g.slot:
	default:
	}
}

// Held reports whether a popup currently owns the slot.
func (g *Gate) Held() bool {
	return len(g.slot) == 1
}
