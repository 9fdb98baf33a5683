package hw_test

import (
	"encoding/binary"
	"testing"

	"holly/hw"
)

func TestVRAMAliases(t *testing.T) {
	d := hw.NewDevice()

	// the 64-bit and 32-bit access paths address the same storage, and
	// the uncached mirror resolves to the same physical location.
	d.Write32(0x04000010, 0x11223344)
	if got := d.Read32(0x05000010); got != 0x11223344 {
		t.Errorf("32-bit path read = %08X, want 11223344", got)
	}
	if got := d.Read32(0xA5000010); got != 0x11223344 {
		t.Errorf("uncached mirror read = %08X, want 11223344", got)
	}

	d.Write32(0xA4000020, 0xAABBCCDD)
	if got := d.Read32(0x04000020); got != 0xAABBCCDD {
		t.Errorf("cached read after uncached write = %08X, want AABBCCDD", got)
	}
}

func TestRegisterBank(t *testing.T) {
	d := hw.NewDevice()

	if got := d.PVR(hw.ID); got != 0x17FD11DB {
		t.Errorf("core ID = %08X", got)
	}

	d.SetPVR(hw.BorderCol, 0x00FF8040)
	if got := d.PVR(hw.BorderCol); got != 0x00FF8040 {
		t.Errorf("BORDERCOL = %08X", got)
	}

	// ID register rejects writes
	d.SetPVR(hw.ID, 0xDEADBEEF)
	if got := d.PVR(hw.ID); got != 0x17FD11DB {
		t.Errorf("core ID after write = %08X", got)
	}
}

func TestIRQLatchAndAck(t *testing.T) {
	d := hw.NewDevice()

	fired := 0
	d.Handle(hw.EvRenderDone, func() { fired++ })

	// not enabled in the level-2 mask: the status bit latches but the
	// handler does not run.
	d.Raise(hw.EvRenderDone)
	if fired != 0 {
		t.Fatalf("handler ran with event disabled")
	}
	if d.Read32(hw.IRQStatus)&hw.IntRenderFinished == 0 {
		t.Fatalf("status bit not latched")
	}

	// write-1-to-clear
	d.Write32(hw.IRQStatus, hw.IntRenderFinished)
	if d.Read32(hw.IRQStatus)&hw.IntRenderFinished != 0 {
		t.Fatalf("status bit survived ack")
	}

	// enabled: the handler runs synchronously
	d.Write32(hw.IRQMask2, hw.IntRenderFinished)
	d.Raise(hw.EvRenderDone)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	// masked section: delivery suppressed, latch still happens
	d.Write32(hw.IRQStatus, hw.IntRenderFinished)
	cookie := d.DisableIRQ()
	d.Raise(hw.EvRenderDone)
	if fired != 1 {
		t.Fatalf("handler ran inside masked section")
	}
	if d.Read32(hw.IRQStatus)&hw.IntRenderFinished == 0 {
		t.Fatalf("status bit not latched inside masked section")
	}
	d.RestoreIRQ(cookie)
	if d.IRQDisabled() {
		t.Fatalf("still masked after restore")
	}
}

func TestDisableIRQNesting(t *testing.T) {
	d := hw.NewDevice()

	c1 := d.DisableIRQ()
	c2 := d.DisableIRQ()
	d.RestoreIRQ(c2)
	if !d.IRQDisabled() {
		t.Fatalf("inner restore unmasked the outer section")
	}
	d.RestoreIRQ(c1)
	if d.IRQDisabled() {
		t.Fatalf("outer restore left interrupts masked")
	}
}

func TestAckKeepsConcurrentRaise(t *testing.T) {
	d := hw.NewDevice()

	// one goroutine raising and acking vblank-in must never clobber a
	// render-done bit raised from another goroutine: the ack is a W1C
	// write, not a full store of the status word.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			d.Raise(hw.EvVBlankIn)
			d.Write32(hw.IRQStatus, hw.IntVBlankIn)
		}
	}()

	for i := 0; i < 2000; i++ {
		d.Raise(hw.EvRenderDone)
		if d.Read32(hw.IRQStatus)&hw.IntRenderFinished == 0 {
			t.Fatal("render-done status bit lost across a concurrent ack")
		}
		d.Write32(hw.IRQStatus, hw.IntRenderFinished)
	}
	<-done
}

func TestSPGBeam(t *testing.T) {
	d := hw.NewDevice()

	// 525-line frame, vblank-in at line 40, vblank-out at line 520
	d.SetPVR(hw.SyncLoad, 524<<16|857)
	d.SetPVR(hw.VBlankInterrupt, 520<<16|40)
	d.SetPVR(hw.VBlank, 40<<16|520)

	vbin, vbout := 0, 0
	d.Write32(hw.IRQMask2, hw.IntVBlankIn|hw.IntVBlankOut)
	d.Handle(hw.EvVBlankIn, func() { vbin++ })
	d.Handle(hw.EvVBlankOut, func() { vbout++ })

	prev := d.PVR(hw.SyncStat) & 0x3FF
	for i := 0; i < 524; i++ {
		line := d.PVR(hw.SyncStat) & 0x3FF
		want := (prev + 1) % 525
		if line != want {
			t.Fatalf("beam jumped from line %d to %d", prev, line)
		}
		prev = line
	}
	if vbin != 1 || vbout != 1 {
		t.Errorf("one frame raised vblank-in %d times, vblank-out %d times", vbin, vbout)
	}
}

func TestSPGStatusVSyncFlag(t *testing.T) {
	d := hw.NewDevice()

	// blanking region from line 520 up and wrapping through line 39
	d.SetPVR(hw.SyncLoad, 524<<16|857)
	d.SetPVR(hw.VBlank, 40<<16|520)

	sawBlank, sawActive := false, false
	for i := 0; i < 526; i++ {
		st := d.PVR(hw.SyncStat)
		if st&(1<<13) != 0 {
			sawBlank = true
		} else {
			sawActive = true
		}
	}
	if !sawBlank || !sawActive {
		t.Errorf("vsync flag never toggled (blank=%v active=%v)", sawBlank, sawActive)
	}
}

// rec builds a 32-byte parameter record with the given leading word.
func rec(word uint32) []byte {
	var b [32]byte
	binary.LittleEndian.PutUint32(b[:], word)
	return b[:]
}

func TestTAListInterrupts(t *testing.T) {
	d := hw.NewDevice()
	d.Write32(hw.IRQMask2, hw.IntOpaqueFinished|hw.IntTransparentFinished|hw.IntPunchThruFinished)

	var got []hw.Event
	for _, ev := range []hw.Event{hw.EvOpaqueDone, hw.EvTransparentDone, hw.EvPunchThruDone} {
		ev := ev
		d.Handle(ev, func() { got = append(got, ev) })
	}

	// an opaque polygon header, two vertices, end of list
	d.CommitFIFO(rec(0x80000000))
	d.CommitFIFO(rec(0xE0000000))
	d.CommitFIFO(rec(0xF0000000))
	d.CommitFIFO(rec(0))

	if len(got) != 1 || got[0] != hw.EvOpaqueDone {
		t.Fatalf("events after opaque list = %v", got)
	}

	// a translucent sprite header counts toward the translucent list
	got = nil
	d.CommitFIFO(rec(0xA2000000))
	d.CommitFIFO(rec(0))
	if len(got) != 1 || got[0] != hw.EvTransparentDone {
		t.Fatalf("events after translucent list = %v", got)
	}

	// end of list with nothing streamed raises nothing
	got = nil
	d.CommitFIFO(rec(0))
	if len(got) != 0 {
		t.Fatalf("events after empty list = %v", got)
	}
}

func TestTAFifoPort(t *testing.T) {
	d := hw.NewDevice()
	d.Write32(hw.IRQMask2, hw.IntPunchThruFinished)

	fired := 0
	d.Handle(hw.EvPunchThruDone, func() { fired++ })

	// stream a punch-thru header word by word through the port; only
	// the record-aligned word carries control bits.
	d.Write32(hw.TAFifoBase+0, 0x84000000)
	for off := uint32(4); off < 32; off += 4 {
		d.Write32(hw.TAFifoBase+off, 0xDEADBEEF)
	}
	d.Write32(hw.TAFifoBase+32, 0)

	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestStartRenderFillsBackground(t *testing.T) {
	d := hw.NewDevice()

	const paramBase = 0x100000
	const bgOffset = 0x2000

	// background parameter block: three mode words, then three vertices
	// of x/y/z/color. The fill color comes from the first vertex.
	bg := d.VRAMSlice(paramBase + bgOffset)
	binary.LittleEndian.PutUint32(bg[6*4:], 0x00804020) // first vertex color

	d.SetPVR(hw.CmdlistAddr, paramBase)
	d.SetPVR(hw.BackgroundInstr, 1<<24|(bgOffset<<1))
	d.SetPVR(hw.FBClipX, 639<<16)
	d.SetPVR(hw.FBClipY, 479<<16)
	d.SetPVR(hw.FBRenderModulo, 640*2/8)
	d.SetPVR(hw.FBRenderCfg, 0x1) // RGB565 target
	d.SetPVR(hw.TAFramebufAddr1, 0x400000)

	d.Write32(hw.IRQMask2, hw.IntRenderFinished)
	done := false
	d.Handle(hw.EvRenderDone, func() { done = true })

	d.SetPVR(hw.StartRender, 0xFFFFFFFF)

	if !done {
		t.Fatalf("render-finished not raised")
	}
	fb := d.VRAMSlice(0x400000)
	want := uint16((0x80&0xF8)<<7 | (0x40&0xF8)<<2 | 0x20>>3)
	for _, off := range []int{0, 639 * 2, 479 * 640 * 2, (479*640 + 639) * 2} {
		if got := binary.LittleEndian.Uint16(fb[off:]); got != want {
			t.Errorf("pixel at +%#x = %04X, want %04X", off, got, want)
		}
	}
}

func TestFillVRAM(t *testing.T) {
	d := hw.NewDevice()

	if !d.FillVRAM(0x8000, 0xA1B2C3D4, 64) {
		t.Fatalf("fill refused while idle")
	}
	buf := d.VRAMSlice(0x8000)
	for off := 0; off < 64; off += 4 {
		if got := binary.LittleEndian.Uint32(buf[off:]); got != 0xA1B2C3D4 {
			t.Fatalf("word at +%#x = %08X", off, got)
		}
	}

	release := d.HoldFill()
	if d.FillVRAM(0x8000, 0, 64) {
		t.Fatalf("fill succeeded while the unit was held busy")
	}
	release()
	if !d.FillVRAM(0x8000, 0, 64) {
		t.Fatalf("fill refused after release")
	}
}
