package gfx

import (
	"encoding/binary"

	"holly/hw"
)

// ScratchSize is the size of the VRAM scratch area handed out by
// ScratchArea, effectively a third double-buffer location.
const ScratchSize = 1024 * 128

// VideoMode is a raster timing descriptor. Two instances are active
// per board (progressive 31 kHz, interlaced 15 kHz); one is selected
// at Init from the monitor-frequency DIP switch.
type VideoMode struct {
	Width  int
	Height int

	HPos uint32 // horizontal position of the displayed raster
	VPos uint32 // vertical position of the displayed raster

	Interlaced       bool
	LineDouble       bool
	PixelDouble      bool
	PixelClockDouble bool // required when constructing a 31 kHz signal

	HBlankStart uint32 // in clocks
	HBlankEnd   uint32

	VBlankIntStart uint32 // in lines
	VBlankIntEnd   uint32

	VBlankStart uint32
	VBlankEnd   uint32

	HSync uint32 // clocks per line
	VSync uint32 // number of lines
}

// DefaultHighResMode is 480p: 640x480, 60Hz, progressive, 524 lines.
var DefaultHighResMode = VideoMode{
	Width:            640,
	Height:           480,
	HPos:             166,
	VPos:             35,
	PixelClockDouble: true,
	HBlankStart:      0x345,
	HBlankEnd:        0x7E,
	VBlankIntStart:   480 + 40,
	VBlankIntEnd:     40,
	VBlankStart:      480 + 40,
	VBlankEnd:        40,
	HSync:            857,
	VSync:            524,
}

// DefaultLowResMode is 480i: 640x480, 60Hz, interlaced, 536 lines.
var DefaultLowResMode = VideoMode{
	Width:          640,
	Height:         480,
	HPos:           164,
	VPos:           22,
	Interlaced:     true,
	HBlankStart:    0x345,
	HBlankEnd:      0x7E,
	VBlankIntStart: (480 + 40) / 2,
	VBlankIntEnd:   40,
	VBlankStart:    480 + 40,
	VBlankEnd:      40,
	HSync:          851,
	VSync:          536,
}

// Framebuffer write pixel modes (FBWCTRL).
const (
	renderCfgRGB0555 = 0x0
	renderCfgRGB0888 = 0x5
)

// Display read pixel modes (FBRCTRL bits 3:2).
const (
	displayCfgRGB1555 = 0
	displayCfgRGB0888 = 3
)

const (
	scalerCfgProgressive = 0x0
	scalerCfgInterlaced  = 0x400
)

// Pixel packing helpers, matching the framebuffer formats.

func rgb0555(r, g, b uint8) uint32 {
	return uint32(b&0xF8)>>3 | uint32(g&0xF8)<<2 | uint32(r&0xF8)<<7
}

func explode0555(c uint32) (r, g, b uint8) {
	return uint8((c >> 7) & 0xF8), uint8((c >> 2) & 0xF8), uint8((c << 3) & 0xF8)
}

func rgb0888(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func explode0888(c uint32) (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func rgb8888(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// SetLowResMode replaces the 15 kHz timing descriptor. Must be called
// before Init; it has no effect on an initialized display.
func (d *Driver) SetLowResMode(m VideoMode) { d.lowres = m }

// SetHighResMode replaces the 31 kHz timing descriptor. Must be called
// before Init.
func (d *Driver) SetHighResMode(m VideoMode) { d.highres = m }

// SetDither overrides dithering in RGB1555 mode, where it is otherwise
// on by default. It does nothing in RGB8888 mode. Must be called
// before Init.
func (d *Driver) SetDither(enabled bool) { d.dither = enabled }

// Init brings up the display at the given depth (Depth1555 or
// Depth8888): picks the video mode from the monitor-frequency setting,
// lays out the framebuffers, initializes the tile accelerator, zeroes
// the screen and programs the raster timing. It returns ErrBadDepth
// before touching any hardware if depth is not a supported value.
func (d *Driver) Init(depth int) error {
	if depth != Depth1555 && depth != Depth8888 {
		// No option to display an error without a working video mode,
		// so nothing was touched and the caller must stop here.
		return ErrBadDepth
	}

	old := d.hw.DisableIRQ()
	defer d.hw.RestoreIRQ(old)

	d.is15khz = d.set.LowResolution()
	if d.is15khz {
		d.mode = d.lowres
	} else {
		d.mode = d.highres
	}

	if depth == Depth8888 {
		d.renderCfg = renderCfgRGB0888 // no alpha threshold
	} else if d.dither {
		d.renderCfg = 0x1<<3 | renderCfgRGB0555 // dithering on
	} else {
		d.renderCfg = renderCfgRGB0555
	}

	d.width = d.mode.Width
	d.height = d.mode.Height
	d.depth = depth
	d.bgSet = false
	frame := uint32(d.width * d.height * d.depth)
	d.bufOffset[0] = 0
	d.bufOffset[1] = d.bufOffset[0] + frame
	d.bufOffset[2] = d.bufOffset[1] + frame

	// Framebuffer size changes with the mode, but texture RAM is
	// allocated beyond the scratch offset once. Keep the scratch at
	// least two full reference-resolution frames away from [0] so a
	// smaller mode can never let a later resize chew up texture RAM.
	referenceSize := uint32(640 * 480 * d.depth)
	if d.bufOffset[2] < d.bufOffset[0]+referenceSize*2 {
		d.bufOffset[2] = d.bufOffset[0] + referenceSize*2
	}

	d.vertical = d.set.VerticalScreen()
	if d.vertical {
		d.actualW, d.actualH = d.height, d.width
	} else {
		d.actualW, d.actualH = d.width, d.height
	}

	d.taInit()

	// Zero both buffers so there is no garbage if we never display.
	zeroBase := (hw.VRAMBase32 + d.bufOffset[0]) | hw.UncachedMirror
	if !d.hw.FillVRAM(zeroBase, 0, int(frame)*2) {
		buf := d.hw.VRAMSlice(zeroBase)[:frame*2]
		for i := range buf {
			buf[i] = 0
		}
	}

	// Video timings copied from the BIOS.
	d.hw.SetPVR(hw.VRAMCfg3, 0x15D1C955)
	d.hw.SetPVR(hw.VRAMCfg1, 0x00000020)

	// Make sure video is not in reset.
	d.hw.SetPVR(hw.Reset, 0)

	d.hw.SetPVR(hw.BorderCol, 0)

	// Pixel double if needed, fullscreen border disabled.
	if d.mode.PixelDouble {
		d.hw.SetPVR(hw.VideoCfg, 0x1<<8|0x16<<16)
	} else {
		d.hw.SetPVR(hw.VideoCfg, 0x16<<16)
	}

	// Display configuration, enabled only at the very end.
	var displayCfg uint32
	if d.depth == Depth1555 {
		displayCfg |= displayCfgRGB1555 << 2
	} else {
		displayCfg |= displayCfgRGB0888 << 2
	}
	if d.mode.PixelClockDouble {
		displayCfg |= 0x1 << 23
	}
	if d.mode.LineDouble {
		displayCfg |= 0x1 << 1
	}
	d.hw.SetPVR(hw.FBDisplayCfg, displayCfg)

	// Registers that get reset along with the accelerator.
	d.setRenderTargetRegs()

	// Even/odd field display base addresses, one row apart.
	d.hw.SetPVR(hw.FBDisplayAddr1, d.bufOffset[d.bufferLoc])
	d.hw.SetPVR(hw.FBDisplayAddr2, d.bufOffset[d.bufferLoc]+uint32(d.width*d.depth))
	d.bufferLoc = 1 - d.bufferLoc
	d.drawOffset = d.bufOffset[d.bufferLoc]

	// Cache the BIOS vblank interrupt configuration so the last Free
	// can put it back.
	if !d.initialized {
		d.savedHVInt = d.hw.PVR(hw.VBlankInterrupt)
		d.initialized = true
	}

	if d.mode.Interlaced {
		d.hw.SetPVR(hw.FBDisplaySize,
			uint32((d.width/4)*d.depth+1)<<20| // interlace skip modulo, ((width / 4) * bpp) + 1
				uint32((d.height-1)/2)<<10|
				uint32((d.width/4)*d.depth-1))
	} else {
		d.hw.SetPVR(hw.FBDisplaySize,
			1<<20| // no skip modulo in progressive modes
				uint32(d.height-1)<<10|
				uint32((d.width/4)*d.depth-1))
	}

	d.hw.SetPVR(hw.VBlankInterrupt, d.mode.VBlankIntEnd<<16|d.mode.VBlankIntStart)
	d.hw.SetPVR(hw.HPos, d.mode.HPos)
	d.hw.SetPVR(hw.VPos, d.mode.VPos<<16|d.mode.VPos)
	d.hw.SetPVR(hw.VBlank, d.mode.VBlankEnd<<16|d.mode.VBlankStart)
	d.hw.SetPVR(hw.HBlank, d.mode.HBlankEnd<<16|d.mode.HBlankStart)
	d.hw.SetPVR(hw.SyncLoad, d.mode.VSync<<16|d.mode.HSync)

	d.hw.SetPVR(hw.SyncCfg,
		0x1<<8| // enable sync generator
			b2u(d.mode.Interlaced)<<6| // NTSC format flag, required for interlacing
			b2u(d.mode.Interlaced)<<4)

	// Reenable display output and framebuffer.
	d.hw.SetPVR(hw.VideoCfg, d.hw.PVR(hw.VideoCfg)&^(0x1<<3))
	d.hw.SetPVR(hw.FBDisplayCfg, d.hw.PVR(hw.FBDisplayCfg)|0x1)

	// Wait for vblank like games do.
	target := d.hw.PVR(hw.VBlankInterrupt) & 0x1FF
	for d.hw.PVR(hw.SyncStat)&0x1FF != target {
	}

	d.initBuffers()
	d.vblankInit()

	modVideo.InfoZ("display up").
		Int("width", d.actualW).
		Int("height", d.actualH).
		Int("depth", d.depth).
		Bool("interlaced", d.is15khz).
		End()
	return nil
}

// Free tears down the display so Init can be called again. The BIOS
// vblank-interrupt timing is restored on the last teardown.
func (d *Driver) Free() {
	old := d.hw.DisableIRQ()
	defer d.hw.RestoreIRQ(old)

	if d.initialized {
		d.initialized = false
		d.hw.SetPVR(hw.VBlankInterrupt, d.savedHVInt)
	}

	d.vblankFree()
	d.taFree()

	d.width = 0
	d.height = 0
	d.depth = 0
	d.actualW = 0
	d.actualH = 0
	d.bgSet = false
	d.bufOffset = [3]uint32{}
	d.drawOffset = 0
}

func (d *Driver) vblankInit() {
	old := d.hw.DisableIRQ()
	d.enableIRQ(hw.IntVBlankIn)
	d.enableIRQ(hw.IntVBlankOut)
	d.enableIRQ(hw.IntHBlank)
	d.hw.RestoreIRQ(old)
}

func (d *Driver) vblankFree() {
	old := d.hw.DisableIRQ()
	d.disableIRQ(hw.IntVBlankIn)
	d.disableIRQ(hw.IntVBlankOut)
	d.disableIRQ(hw.IntHBlank)
	d.hw.RestoreIRQ(old)
}

// setRenderTargetRegs programs the framebuffer-write registers that
// reset together with the accelerator, so it runs at Init and again
// before every render launch.
func (d *Driver) setRenderTargetRegs() {
	d.hw.SetPVR(hw.FBRenderCfg, d.renderCfg)
	d.hw.SetPVR(hw.FBRenderModulo, uint32(d.depth*d.width)/8)
	d.hw.SetPVR(hw.FBClipX, uint32(d.width-1)<<16)
	if d.mode.Interlaced {
		d.hw.SetPVR(hw.Scaler, scalerCfgInterlaced)
	} else {
		d.hw.SetPVR(hw.Scaler, scalerCfgProgressive)
	}
	d.hw.SetPVR(hw.FBClipY, uint32(d.height-1)<<16)
}

// swapVBuffers points the display at the buffer just drawn and makes
// the other one the draw target. Runs inline in masked context, from
// the vblank interrupt handler otherwise.
func (d *Driver) swapVBuffers() {
	d.hw.SetPVR(hw.FBDisplayAddr1, d.bufOffset[d.bufferLoc])
	d.hw.SetPVR(hw.FBDisplayAddr2, d.bufOffset[d.bufferLoc]+uint32(d.width*d.depth))

	d.bufferLoc = 1 - d.bufferLoc
	d.drawOffset = d.bufOffset[d.bufferLoc]
}

// Present blocks until the vertical blank, swaps the displayed buffer
// and, when a background color is set, fills the newly exposed back
// buffer. On return the framebuffer accessor points at the new back
// buffer and is immediately safe to write.
func (d *Driver) Present() {
	var fillStart, fillEnd uint32
	if d.bgSet {
		fillStart = (hw.VRAMBase32 + d.bufOffset[1-d.bufferLoc]) | hw.UncachedMirror
		fillEnd = fillStart + uint32(d.width*d.height*d.depth)
	}

	if d.hw.IRQDisabled() {
		// Can't use the interrupt, wait for the beam to reach the spot
		// where the vblank interrupt would have fired.
		target := d.hw.PVR(hw.VBlankInterrupt) & 0x1FF
		for d.hw.PVR(hw.SyncStat)&0x1FF != target {
		}
		d.swapVBuffers()
	} else {
		d.swapPending.Store(true)
		d.sched.NotifyWait(hw.EvVBlankIn)
		d.sched.Wait(hw.EvVBlankIn)
	}

	// Fill the exposed back buffer now, fast or slow: when we return
	// the caller is fully expected to start drawing new graphics.
	if fillStart < fillEnd {
		if !d.hw.FillVRAM(fillStart, d.bgFillWords[0], int(fillEnd-fillStart)) {
			var pattern [32]byte
			for i, w := range d.bgFillWords {
				binary.LittleEndian.PutUint32(pattern[i*4:], w)
			}
			for fillStart < fillEnd {
				copy(d.hw.VRAMSlice(fillStart)[:32], pattern[:])
				fillStart += 32
			}
		}
	}
}

// FillScreen fills the current draw buffer with a single color using
// the hardware block-fill path when available.
func (d *Driver) FillScreen(c Color) {
	base := (hw.VRAMBase32 + d.drawOffset) | hw.UncachedMirror
	if d.depth == Depth1555 {
		actual := rgb0555(c.R, c.G, c.B)
		word := actual&0xFFFF | actual<<16&0xFFFF0000
		mult := 2
		if d.is15khz {
			mult = 1
		}
		n := d.width * d.height * mult
		if !d.hw.FillVRAM(base, word, n) {
			d.slowFill(base, word, n)
		}
	} else if d.depth == Depth8888 {
		actual := rgb0888(c.R, c.G, c.B)
		mult := 4
		if d.is15khz {
			mult = 2
		}
		n := d.width * d.height * mult
		if !d.hw.FillVRAM(base, actual, n) {
			d.slowFill(base, actual, n)
		}
	}
}

func (d *Driver) slowFill(addr uint32, word uint32, n int) {
	var pat [4]byte
	binary.LittleEndian.PutUint32(pat[:], word)
	dst := d.hw.VRAMSlice(addr)[:n]
	for i := range dst {
		dst[i] = pat[i&3]
	}
}

// SetBackgroundColor requests that every presented frame start out
// filled with this color. It also fills the current draw buffer
// immediately, and pre-expands the packed color into the chunk pattern
// used by the software fill fallback.
func (d *Driver) SetBackgroundColor(c Color) {
	d.FillScreen(c)
	d.bgSet = true

	var word uint32
	if d.depth == Depth1555 {
		actual := rgb0555(c.R, c.G, c.B)
		word = actual&0xFFFF | actual<<16&0xFFFF0000
	} else {
		word = rgb0888(c.R, c.G, c.B)
	}
	for i := range d.bgFillWords {
		d.bgFillWords[i] = word
	}
}

// pixelIndex maps caller coordinates to a framebuffer element index.
// The buffer is always physical-row-major; on a vertical cabinet the
// caller's axes are rotated onto it.
func (d *Driver) pixelIndex(x, y int) int {
	if d.vertical {
		return (d.width - y) + x*d.width - 1
	}
	return x + y*d.width
}

// SetPixel colors one pixel of the draw buffer. Out-of-bounds
// coordinates are ignored.
func (d *Driver) SetPixel(x, y int, c Color) {
	if x < 0 || y < 0 || x >= d.actualW || y >= d.actualH {
		return
	}

	fb := d.hw.VRAMSlice(hw.VRAMBase32 + d.drawOffset)
	idx := d.pixelIndex(x, y)
	if d.depth == Depth1555 {
		binary.LittleEndian.PutUint16(fb[idx*2:], uint16(rgb0555(c.R, c.G, c.B)))
	} else if d.depth == Depth8888 {
		binary.LittleEndian.PutUint32(fb[idx*4:], rgb0888(c.R, c.G, c.B))
	}
}

// Pixel reads back one pixel of the draw buffer.
func (d *Driver) Pixel(x, y int) Color {
	fb := d.hw.VRAMSlice(hw.VRAMBase32 + d.drawOffset)
	idx := d.pixelIndex(x, y)

	var c Color
	if d.depth == Depth1555 {
		c.R, c.G, c.B = explode0555(uint32(binary.LittleEndian.Uint16(fb[idx*2:])))
	} else if d.depth == Depth8888 {
		c.R, c.G, c.B = explode0888(binary.LittleEndian.Uint32(fb[idx*4:]))
	}
	return c
}

// Width is the width in pixels of the drawable area, which depends on
// the monitor orientation.
func (d *Driver) Width() int { return d.actualW }

// Height is the height in pixels of the drawable area.
func (d *Driver) Height() int { return d.actualH }

// Depth is the framebuffer depth in bytes per pixel.
func (d *Driver) Depth() int { return d.depth }

// IsVertical reports whether the cabinet monitor is rotated.
func (d *Driver) IsVertical() bool { return d.vertical }

// IsInterlaced reports whether the display runs the 15 kHz interlaced
// mode.
func (d *Driver) IsInterlaced() bool { return d.is15khz }

// Framebuffer returns the current draw buffer.
func (d *Driver) Framebuffer() []byte {
	return d.hw.VRAMSlice(hw.VRAMBase32 + d.drawOffset)[:d.width*d.height*d.depth]
}

// ScratchArea returns the VRAM scratch region, safe to use without
// corrupting video contents or texture RAM.
func (d *Driver) ScratchArea() []byte {
	return d.hw.VRAMSlice(hw.VRAMBase32 + d.bufOffset[2])[:ScratchSize]
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
