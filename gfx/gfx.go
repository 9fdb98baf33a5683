// Package gfx is the HOLLY graphics driver core: video timing and
// double buffering on the PowerVR2 display side, and the tile
// accelerator command pipeline (submit, tile, render, present) on the
// 3D side. It drives the hardware exclusively through a *hw.Device
// handle, so exactly one Driver owns the chip at a time.
package gfx

import (
	"errors"
	"sync/atomic"

	"holly/emu/log"
	"holly/hw"
)

var (
	modVideo = log.ModVideo
	modTA    = log.ModTA
	modTex   = log.ModTex
)

// Supported framebuffer depths, in bytes per pixel.
const (
	Depth1555 = 2
	Depth8888 = 4
)

var (
	ErrBadDepth       = errors.New("gfx: color depth must be 2 (RGB1555) or 4 (RGB8888)")
	ErrBadTextureSize = errors.New("gfx: texture side must be a power of two between 8 and 1024")
	ErrBadTextureBits = errors.New("gfx: only 8-bit texture samples are supported")
	ErrNilTexture     = errors.New("gfx: nil texture offset or data")
)

// Color is an 8-bit-per-channel RGB triple. It is packed into the
// framebuffer's pixel format at the point of use.
type Color struct {
	R, G, B uint8
}

// Scheduler is the thread/interrupt collaborator. NotifyWait registers
// intent to wait on an event so the interrupt handler knows to clear
// the status bit and wake the caller; Wait suspends until the event
// fires. Neither is meaningful while interrupts are masked, where the
// driver spin-polls instead.
type Scheduler interface {
	NotifyWait(ev hw.Event)
	Wait(ev hw.Event)
	SetVBlankHook(fn func())
}

// Settings supplies the board configuration latched at power on: the
// monitor-frequency DIP switch and the cabinet monitor orientation.
type Settings interface {
	LowResolution() bool
	VerticalScreen() bool
}

// Driver owns the video and tile accelerator state. One logical thread
// drives the pipeline at a time; concurrent use is undefined the same
// way it is on hardware.
type Driver struct {
	hw    *hw.Device
	sched Scheduler
	set   Settings

	lowres  VideoMode
	highres VideoMode
	dither  bool

	mode      VideoMode
	width     int // physical, row-major
	height    int
	depth     int
	actualW   int // as reported to callers, orientation-swapped
	actualH   int
	vertical  bool
	is15khz   bool
	renderCfg uint32

	// double buffering. bufOffset[0] and [1] alternate as front/back,
	// [2] is the scratch region above both.
	bufOffset  [3]uint32
	bufferLoc  int
	drawOffset uint32

	bgSet       bool
	bgFillWords [8]uint32

	savedHVInt  uint32
	initialized bool

	swapPending atomic.Bool

	// tile accelerator state
	bufs      taBuffers
	waiting   ClassSet
	populated ClassSet
	bgColor   uint32
}

// New builds a Driver over the device. Video modes can still be
// replaced with SetLowResMode/SetHighResMode until Init is called.
func New(dev *hw.Device, sched Scheduler, set Settings) *Driver {
	d := &Driver{
		hw:      dev,
		sched:   sched,
		set:     set,
		lowres:  DefaultLowResMode,
		highres: DefaultHighResMode,
		dither:  true,
	}
	sched.SetVBlankHook(d.onVBlank)
	return d
}

// onVBlank runs in interrupt context at vblank-in. The buffer swap
// happens here when a Present is parked on the scheduler.
func (d *Driver) onVBlank() {
	if d.swapPending.CompareAndSwap(true, false) {
		d.swapVBuffers()
	}
}

// waitEvent is the completion-wait policy shared by present, commit
// and render paths. Masked context spin-polls the interrupt status
// word and acknowledges the bit itself; otherwise the thread suspends
// and the interrupt handler acknowledges. No timeout: a signal that
// never arrives means a prior programming fault, and we hang with it.
func (d *Driver) waitEvent(ev hw.Event) {
	if d.hw.IRQDisabled() {
		bit := ev.Bit()
		for d.hw.Read32(hw.IRQStatus)&bit == 0 {
		}
		d.hw.Write32(hw.IRQStatus, bit)
		return
	}
	d.sched.Wait(ev)
}

// enableIRQ sets bits in the level-2 interrupt enable mask.
func (d *Driver) enableIRQ(bits uint32) {
	mask := d.hw.Read32(hw.IRQMask2)
	if mask&bits != bits {
		d.hw.Write32(hw.IRQMask2, mask|bits)
	}
}

// disableIRQ clears bits in the level-2 interrupt enable mask.
func (d *Driver) disableIRQ(bits uint32) {
	mask := d.hw.Read32(hw.IRQMask2)
	if mask&bits != 0 {
		d.hw.Write32(hw.IRQMask2, mask&^bits)
	}
}

// Mode returns the active video mode.
func (d *Driver) Mode() VideoMode { return d.mode }

// Layout is a read-only snapshot of the VRAM partition, for
// diagnostics.
type Layout struct {
	Framebuffer0 uint32 `json:"framebuffer0"`
	Framebuffer1 uint32 `json:"framebuffer1"`
	Scratch      uint32 `json:"scratch"`

	CmdList         uint32 `json:"cmd_list"`
	BackgroundList  uint32 `json:"background_list"`
	Overflow        uint32 `json:"overflow"`
	OpaqueBuf       uint32 `json:"opaque_buf"`
	TransparentBuf  uint32 `json:"transparent_buf"`
	PunchThruBuf    uint32 `json:"punchthru_buf"`
	TileDescriptors uint32 `json:"tile_descriptors"`
	TextureRAM      uint32 `json:"texture_ram"`
}

// VRAMLayout reports where everything ended up after Init.
func (d *Driver) VRAMLayout() Layout {
	return Layout{
		Framebuffer0:    d.bufOffset[0],
		Framebuffer1:    d.bufOffset[1],
		Scratch:         d.bufOffset[2],
		CmdList:         d.bufs.cmdList,
		BackgroundList:  d.bufs.backgroundList,
		Overflow:        d.bufs.overflowBuffer,
		OpaqueBuf:       d.bufs.opaqueBuffer,
		TransparentBuf:  d.bufs.transparentBuffer,
		PunchThruBuf:    d.bufs.punchthruBuffer,
		TileDescriptors: d.bufs.tileDescriptors,
		TextureRAM:      d.bufs.textureRAM,
	}
}
