package hw

import "holly/emu/log"

var modIrq = log.ModIrq

// Event identifies one of the normal interrupt sources this driver core
// cares about.
type Event uint8

const (
	EvRenderDone Event = iota
	EvVBlankIn
	EvVBlankOut
	EvHBlank
	EvOpaqueDone
	EvTransparentDone
	EvPunchThruDone
	NumEvents
)

var eventBits = [NumEvents]uint32{
	EvRenderDone:      IntRenderFinished,
	EvVBlankIn:        IntVBlankIn,
	EvVBlankOut:       IntVBlankOut,
	EvHBlank:          IntHBlank,
	EvOpaqueDone:      IntOpaqueFinished,
	EvTransparentDone: IntTransparentFinished,
	EvPunchThruDone:   IntPunchThruFinished,
}

// Bit returns the event's bit in ISTNRM/IML2NRM.
func (ev Event) Bit() uint32 { return eventBits[ev] }

var eventNames = [NumEvents]string{
	"render-done", "vblank-in", "vblank-out", "hblank",
	"opaque-done", "transparent-done", "punchthru-done",
}

func (ev Event) String() string { return eventNames[ev] }

// Raise latches the event's status bit and, when interrupts are not
// masked and the event is enabled in IML2NRM, invokes the registered
// handler synchronously.
func (d *Device) Raise(ev Event) {
	bit := ev.Bit()

	d.irqMu.Lock()
	d.istnrm |= bit
	masked := d.irqDisabled
	handler := d.handlers[ev]
	enabled := d.IRQ.IML2NRM.Value&bit != 0
	d.irqMu.Unlock()

	if masked || !enabled || handler == nil {
		return
	}
	modIrq.DebugZ("deliver").Stringer("ev", ev).End()
	handler()
}

// Handle registers fn to run when ev is raised while interrupts are
// enabled. Only one handler per event; nil unregisters.
func (d *Device) Handle(ev Event, fn func()) {
	d.irqMu.Lock()
	d.handlers[ev] = fn
	d.irqMu.Unlock()
}

// DisableIRQ masks interrupt delivery and returns a cookie for
// RestoreIRQ. Nesting is supported the way the hardware SR.BL bit is:
// the cookie records the previous state.
func (d *Device) DisableIRQ() (cookie bool) {
	d.irqMu.Lock()
	cookie = d.irqDisabled
	d.irqDisabled = true
	d.irqMu.Unlock()
	return cookie
}

// RestoreIRQ restores the delivery state saved by DisableIRQ.
func (d *Device) RestoreIRQ(cookie bool) {
	d.irqMu.Lock()
	d.irqDisabled = cookie
	d.irqMu.Unlock()
}

// IRQDisabled reports whether interrupt delivery is currently masked.
func (d *Device) IRQDisabled() bool {
	d.irqMu.Lock()
	defer d.irqMu.Unlock()
	return d.irqDisabled
}
