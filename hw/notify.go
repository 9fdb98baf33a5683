package hw

import "sync"

// Notifier turns interrupt events into channel wakeups, for callers
// that sleep instead of spin. The handler it installs performs the
// hardware side of the wakeup too: it acknowledges the status bit and
// wakes at most one waiter.
type Notifier struct {
	dev *Device

	mu    sync.Mutex
	waitq [NumEvents]chan struct{}

	vblankHook func()
}

func NewNotifier(dev *Device) *Notifier {
	n := &Notifier{dev: dev}
	for ev := Event(0); ev < NumEvents; ev++ {
		n.waitq[ev] = make(chan struct{}, 1)
		ev := ev
		dev.Handle(ev, func() { n.fired(ev) })
	}
	return n
}

func (n *Notifier) fired(ev Event) {
	// ack before waking so a re-armed waiter sees a clean status.
	n.dev.Write32(IRQStatus, ev.Bit())

	if ev == EvVBlankIn {
		n.mu.Lock()
		hook := n.vblankHook
		n.mu.Unlock()
		if hook != nil {
			hook()
		}
	}

	select {
	case n.waitq[ev] <- struct{}{}:
	default:
	}
}

// NotifyWait arms the event: any stale wakeup is discarded so the next
// Wait observes only occurrences after this call.
func (n *Notifier) NotifyWait(ev Event) {
	select {
	case <-n.waitq[ev]:
	default:
	}
}

// Wait blocks until the event fires.
func (n *Notifier) Wait(ev Event) {
	<-n.waitq[ev]
}

// SetVBlankHook installs fn to run in interrupt context at each
// vertical blank in, before any waiter is woken.
func (n *Notifier) SetVBlankHook(fn func()) {
	n.mu.Lock()
	n.vblankHook = fn
	n.mu.Unlock()
}
