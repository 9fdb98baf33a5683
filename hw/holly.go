package hw

import (
	"encoding/binary"
	"sync"

	"holly/emu/log"
	"holly/hw/hwio"
)

var modHw = log.ModHwIo

// Device is the single owned handle to the HOLLY graphics hardware.
// All register and VRAM traffic from the driver goes through it; the
// attached models (sync pulse generator, tile accelerator) respond to
// that traffic the way the chip does.
type Device struct {
	Bus *hwio.Table

	VRAM    hwio.Mem
	Palette hwio.Mem
	Regs    PVRRegs
	IRQ     IRQRegs

	spg spg
	ta  taEngine

	// interrupt delivery state. handlers run synchronously from the
	// register write or model step that raised the event.
	irqMu       sync.Mutex
	irqDisabled bool
	istnrm      uint32 // normal interrupt status word, W1C from the bus
	handlers    [NumEvents]func()

	fillMu   sync.Mutex
	fillBusy bool
}

func NewDevice() *Device {
	d := &Device{
		Bus:     hwio.NewTable("holly"),
		VRAM:    hwio.Mem{Name: "vram", Data: make([]byte, VRAMSize), VSize: VRAMSize},
		Palette: hwio.Mem{Name: "palram", Data: make([]byte, PaletteSize), VSize: PaletteSize},
	}
	d.Regs.dev = d
	d.IRQ.dev = d
	d.spg.dev = d
	d.ta.dev = d
	hwio.MustInitRegs(&d.Regs)
	hwio.MustInitRegs(&d.IRQ)

	d.Bus.MapBank(PowerVR2Base, &d.Regs, 0)
	d.Bus.MapBank(IRQStatus, &d.IRQ, 0)
	d.Bus.MapMem(PaletteBase, &d.Palette)
	d.Bus.MapMem(VRAMBase64, &d.VRAM)
	d.Bus.MapMem(VRAMBase32, &d.VRAM)
	d.Bus.MapDevice(TAFifoBase, &hwio.Device{
		Name:    "tafifo",
		Size:    VRAMSize,
		Flags:   hwio.WriteOnlyFlag,
		WriteCb: d.fifoWrite,
	})
	return d
}

// canonicalize strips the SH-4 segment bits so that P1/P2 mirror
// addresses resolve to the same physical location.
func canonicalize(addr uint32) uint32 {
	return addr & 0x1FFFFFFF
}

func (d *Device) Read32(addr uint32) uint32 {
	return d.Bus.Read32(canonicalize(addr), false)
}

func (d *Device) Write32(addr uint32, val uint32) {
	d.Bus.Write32(canonicalize(addr), val)
}

// PVR reads a PowerVR2 core register by offset.
func (d *Device) PVR(off uint32) uint32 {
	return d.Bus.Read32(PowerVR2Base+off, false)
}

// SetPVR writes a PowerVR2 core register by offset.
func (d *Device) SetPVR(off uint32, val uint32) {
	d.Bus.Write32(PowerVR2Base+off, val)
}

// VRAMSlice returns the backing store starting at addr, which may be
// given through any of the VRAM aliases.
func (d *Device) VRAMSlice(addr uint32) []byte {
	return d.VRAM.Data[addr&VRAMMask:]
}

// CommitFIFO streams one or more 32-byte command records into the tile
// accelerator port. len(src) must be a multiple of 32.
func (d *Device) CommitFIFO(src []byte) {
	if len(src)%32 != 0 {
		modHw.FatalZ("odd sized FIFO commit").Int("len", len(src)).End()
	}
	for off := 0; off < len(src); off += 32 {
		d.ta.command(binary.LittleEndian.Uint32(src[off:]))
	}
}

func (d *Device) fifoWrite(addr uint32, val uint32) {
	// the port latches a full record; only the leading word carries
	// the parameter control bits.
	if addr&0x1F == 0 {
		d.ta.command(val)
	}
}

// FillVRAM fills n bytes starting at addr with the repeated 32-bit
// pattern val, using the hardware block-fill path. It returns false
// without touching memory when the fill unit is busy; the caller is
// expected to fall back to a CPU fill.
func (d *Device) FillVRAM(addr uint32, val uint32, n int) bool {
	d.fillMu.Lock()
	if d.fillBusy {
		d.fillMu.Unlock()
		return false
	}
	d.fillBusy = true
	d.fillMu.Unlock()

	dst := d.VRAMSlice(addr)
	var pat [4]byte
	binary.LittleEndian.PutUint32(pat[:], val)
	for i := 0; i < n; i++ {
		dst[i] = pat[i&3]
	}

	d.fillMu.Lock()
	d.fillBusy = false
	d.fillMu.Unlock()
	return true
}

// HoldFill marks the block-fill unit busy until the returned release
// function is called. Used to exercise the CPU fallback path.
func (d *Device) HoldFill() (release func()) {
	d.fillMu.Lock()
	d.fillBusy = true
	d.fillMu.Unlock()
	return func() {
		d.fillMu.Lock()
		d.fillBusy = false
		d.fillMu.Unlock()
	}
}

// StepLine advances the sync pulse generator by one scanline. Tests and
// frontends that do not poll SPGSTATUS use it to move the beam.
func (d *Device) StepLine() {
	d.spg.step()
}
