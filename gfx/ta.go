package gfx

import (
	"encoding/binary"
	"math"

	"holly/hw"
)

// Static capacities of the accelerator-private regions.
const (
	maxHTile = 640 / 32
	maxVTile = 480 / 32

	taOpaqueBufferSize      = 128
	taTransparentBufferSize = 128
	taPunchThruBufferSize   = 64
	taCmdListSize           = 1 * 1024 * 1024
	taBackgroundListSize    = 256
	taOverflowSize          = 1 * 1024 * 1024

	bufferAlignment = 128
)

func alignBuffer(x uint32) uint32 {
	return (x + bufferAlignment - 1) &^ (bufferAlignment - 1)
}

// Object buffer block size encodings (ALLOCCTRL).
const (
	blocksizeNotUsed = 0
	blocksize32      = 1
	blocksize64      = 2
	blocksize128     = 3
)

// taBuffers is the accelerator-private memory partition map. Region
// addresses carry the VRAM alias bits like the hardware pointers they
// are programmed into; register writes mask them down to 24 bits.
type taBuffers struct {
	cmdList     uint32
	cmdListSize int

	// background instruction list, stuck in the padding between the
	// command list and the overflow buffer.
	backgroundList     uint32
	backgroundListSize int

	overflowBuffer     uint32
	overflowBufferSize int

	opaqueBuffer     uint32
	opaqueBufferSize int

	transparentBuffer     uint32
	transparentBufferSize int

	punchthruBuffer     uint32
	punchthruBufferSize int

	tileDescriptors uint32
	textureRAM      uint32
}

// initBuffers lays out the accelerator regions above the framebuffers.
// Every region is 128-byte aligned and the whole block starts on a
// 1 MB boundary derived from the scratch offset, so a later mode
// change can never overlap it with an active framebuffer.
func (d *Driver) initBuffers() {
	// It should be safe to place this right after the scratch area,
	// but anything below the next megabyte boundary gets texture RAM
	// stomped on.
	bufloc := ((d.bufOffset[2]&0x00FFFFFF | 0xA5000000) + 0xFFFFF) & 0xFFF00000
	cur := bufloc

	d.bufs = taBuffers{}

	// Command list first, with padding after it so the overflow limit
	// is never equal to the command list limit.
	d.bufs.cmdList = cur
	d.bufs.cmdListSize = taCmdListSize
	cur = alignBuffer(cur + taCmdListSize)

	d.bufs.backgroundList = cur
	d.bufs.backgroundListSize = taBackgroundListSize
	cur = alignBuffer(cur + taBackgroundListSize)

	d.bufs.overflowBuffer = cur
	d.bufs.overflowBufferSize = taOverflowSize
	cur = alignBuffer(cur + taOverflowSize)

	d.bufs.opaqueBuffer = cur
	d.bufs.opaqueBufferSize = taOpaqueBufferSize
	cur = alignBuffer(cur + taOpaqueBufferSize*maxHTile*maxVTile)

	d.bufs.transparentBuffer = cur
	d.bufs.transparentBufferSize = taTransparentBufferSize
	cur = alignBuffer(cur + taTransparentBufferSize*maxHTile*maxVTile)

	d.bufs.punchthruBuffer = cur
	d.bufs.punchthruBufferSize = taPunchThruBufferSize
	cur = alignBuffer(cur + taPunchThruBufferSize*maxHTile*maxVTile)

	d.bufs.tileDescriptors = cur
	cur = alignBuffer(cur + 4*(6*(maxHTile*maxVTile+1)))

	// The remainder is texture RAM, through the 64-bit access alias.
	d.bufs.textureRAM = cur&0x00FFFFFF | 0xA4000000

	// Clear all of it so we don't get artifacts.
	if !d.hw.FillVRAM(bufloc, 0, int(cur-bufloc)) {
		buf := d.hw.VRAMSlice(bufloc)[:cur-bufloc]
		for i := range buf {
			buf[i] = 0
		}
	}

	d.writeBackgroundPlane()
}

// createTileDescriptors regenerates the per-tile descriptor table.
// Each record is 6 words: a control word and one object pointer per
// list type. A class not populated this frame gets the empty bit with
// the previous valid address, so the hardware never chases stale
// geometry from an earlier frame.
func (d *Driver) createTileDescriptors(tileWidth, tileHeight int) {
	vr := d.hw.VRAMSlice(d.bufs.tileDescriptors)
	opaqueBase := d.bufs.opaqueBuffer & 0x00FFFFFF
	transparentBase := d.bufs.transparentBuffer & 0x00FFFFFF
	punchthruBase := d.bufs.punchthruBuffer & 0x00FFFFFF

	n := 0
	put := func(w uint32) {
		binary.LittleEndian.PutUint32(vr[n*4:], w)
		n++
	}

	// The hardware needs a dummy tile first or it renders the first
	// real tile weird.
	put(0x10000000)
	put(0x80000000)
	put(0x80000000)
	put(0x80000000)
	put(0x80000000)
	put(0x80000000)

	lastAddress := uint32(0)
	for x := 0; x < tileWidth; x++ {
		for y := 0; y < tileHeight; y++ {
			var eob uint32
			if x == tileWidth-1 && y == tileHeight-1 {
				eob = 0x80000000
			}
			put(eob | uint32(y)<<8 | uint32(x)<<2)

			// Opaque polygons.
			if d.bufs.opaqueBufferSize > 0 && d.populated.Has(Opaque) {
				lastAddress = opaqueBase + uint32((x+y*tileWidth)*d.bufs.opaqueBufferSize)
				put(lastAddress)
			} else {
				put(0x80000000 | lastAddress)
			}

			// Opaque modifiers are not supported, so nothing here.
			put(0x80000000 | lastAddress)

			// Translucent polygons.
			if d.bufs.transparentBufferSize > 0 && d.populated.Has(Transparent) {
				lastAddress = transparentBase + uint32((x+y*tileWidth)*d.bufs.transparentBufferSize)
				put(lastAddress)
			} else {
				put(0x80000000 | lastAddress)
			}

			// Translucent modifiers are not supported either.
			put(0x80000000 | lastAddress)

			// Punch-through polygons.
			if d.bufs.punchthruBufferSize > 0 && d.populated.Has(PunchThrough) {
				lastAddress = punchthruBase + uint32((x+y*tileWidth)*d.bufs.punchthruBufferSize)
				put(lastAddress)
			} else {
				put(0x80000000 | lastAddress)
			}
		}
	}
}

func blocksizeFor(size int) uint32 {
	switch size {
	case 32:
		return blocksize32
	case 64:
		return blocksize64
	case 128:
		return blocksize128
	}
	return blocksizeNotUsed
}

// setTarget points the list compiler at the current command list and
// object buffers.
func (d *Driver) setTarget(tileWidth, tileHeight int) {
	cmdl := d.bufs.cmdList & 0x00FFFFFF
	objbuf := d.bufs.overflowBuffer & 0x00FFFFFF

	// Reset the TA.
	d.hw.SetPVR(hw.Reset, 1)
	d.hw.SetPVR(hw.Reset, 0)

	// Object buffer base grows downward in memory.
	d.hw.SetPVR(hw.ObjbufBase, objbuf+uint32(d.bufs.overflowBufferSize))
	d.hw.SetPVR(hw.ObjbufLimit, objbuf)

	// Command list grows upward.
	d.hw.SetPVR(hw.CmdlistBase, cmdl)
	d.hw.SetPVR(hw.CmdlistLimit, cmdl+uint32(d.bufs.cmdListSize))

	d.hw.SetPVR(hw.TileClip, uint32(tileHeight-1)<<16|uint32(tileWidth-1))

	// Where object buffers continue if the per-tile ones run out.
	d.hw.SetPVR(hw.AdditionalObjbuf, objbuf+uint32(d.bufs.overflowBufferSize))

	d.hw.SetPVR(hw.TABlocksize,
		1<<20| // grow downward in memory
			blocksizeFor(d.bufs.punchthruBufferSize)<<16|
			blocksizeNotUsed<<12| // translucent modifiers
			blocksizeFor(d.bufs.transparentBufferSize)<<8|
			blocksizeNotUsed<<4| // opaque modifiers
			blocksizeFor(d.bufs.opaqueBufferSize))

	// Confirm the settings, then a dummy readback.
	d.hw.SetPVR(hw.TAConfirm, 0x80000000)
	_ = d.hw.PVR(hw.TAConfirm)
}

// backgroundZPlane is the depth the background quad sits at. Empirical
// value, close enough to zero to lose against any submitted geometry.
const backgroundZPlane = 0.000001

// Polygon mode word bits used by the background plane.
const (
	polyMode1ZGreater      = 2 << 29
	polyMode1GouraudShaded = 1 << 23

	polyMode2SrcBlendOne     = 1 << 29
	polyMode2DstBlendZero    = 0 << 26
	polyMode2FogDisabled     = 2 << 22
	polyMode2DisableTexAlpha = 1 << 19
	polyMode2MipmapD100      = 4 << 8
	polyMode2TexModulate     = 0 << 6
)

// writeBackgroundPlane rewrites the background instruction list: three
// mode words, then three x/y/z/color vertexes of a two-triangle quad
// covering the whole frame. Only three vertexes are written; the
// hardware infers the fourth corner.
func (d *Driver) writeBackgroundPlane() {
	if d.bufs.backgroundList == 0 {
		// Not initialized yet.
		return
	}

	bg := d.hw.VRAMSlice(d.bufs.backgroundList)
	n := 0
	put := func(w uint32) {
		binary.LittleEndian.PutUint32(bg[n*4:], w)
		n++
	}
	putf := func(f float32) { put(math.Float32bits(f)) }

	put(polyMode1ZGreater | polyMode1GouraudShaded)
	put(polyMode2SrcBlendOne | polyMode2DstBlendZero | polyMode2FogDisabled |
		polyMode2DisableTexAlpha | polyMode2MipmapD100 | polyMode2TexModulate)
	put(0)

	putf(0.0)
	putf(0.0)
	putf(backgroundZPlane)
	put(d.bgColor)

	putf(float32(d.width))
	putf(0.0)
	putf(backgroundZPlane)
	put(d.bgColor)

	putf(0.0)
	putf(float32(d.height))
	putf(backgroundZPlane)
	put(d.bgColor)
}

// SetBackgroundPlane sets the color the accelerator paints wherever no
// geometry covers a pixel. The gouraud-shaded plane bypasses the
// packed-pixel path, so the color keeps full 8-bit precision at any
// display depth.
func (d *Driver) SetBackgroundPlane(c Color) {
	d.bgColor = rgb0888(c.R, c.G, c.B)
	d.writeBackgroundPlane()
}

// CommitBegin opens a submission cycle. The accelerator target
// registers are reprogrammed only when no class has been populated
// since the last render, so several cycles can feed one frame.
func (d *Driver) CommitBegin() {
	if d.populated == 0 {
		d.setTarget(d.width/32, d.height/32)
	}

	// Nothing is being waited on; we find out what to wait for as
	// soon as lists come through CommitList.
	d.waiting = 0
}

// CommitList streams one geometry record (ListShort or ListLong bytes)
// to the accelerator port. The leading word of a polygon or sprite
// record decides its class; streaming a second class in the same cycle
// is a fatal contract violation, the hardware cannot interleave them.
func (d *Driver) CommitList(record []byte) {
	cmd := binary.LittleEndian.Uint32(record)

	if t := cmd & taCmdTypeMask; t == taCmdPolygon || t == taCmdSprite {
		var class PolygonClass
		switch cmd & taCmdClassMask {
		case taCmdClassOpaque:
			class = Opaque
		case taCmdClassTransparent:
			class = Transparent
		case taCmdClassPunchThru:
			class = PunchThrough
		default:
			modTA.FatalZ("display list failure: unsupported polygon type").
				Hex32("cmd", cmd).
				End()
		}

		if d.waiting&^class.mask() != 0 {
			modTA.FatalZ("display list failure: cannot send more than one type of polygon in single list").
				Stringer("class", class).
				End()
		}
		if !d.waiting.Has(class) {
			d.waiting |= class.mask()
			d.populated |= class.mask()
			if !d.hw.IRQDisabled() {
				d.sched.NotifyWait(class.event())
			}
		}
	}

	d.hw.CommitFIFO(record)
}

// CommitEnd closes the cycle: it streams the end-of-list marker, then
// waits for the transfer-finished signal of every class opened during
// this cycle. A class never opened does not block the call.
func (d *Driver) CommitEnd() {
	// The end-of-list marker skips the command classification above.
	var words [ListShort]byte
	d.hw.CommitFIFO(words[:])

	for _, class := range []PolygonClass{Opaque, Transparent, PunchThrough} {
		if d.waiting.Has(class) {
			d.waitEvent(class.event())
		}
	}

	// Reset unconditionally, so a fault here cannot cascade.
	d.waiting = 0
}

// beginRender programs and fires a render pass targeting the current
// draw buffer.
func (d *Driver) beginRender(target uint32, zclip float32) {
	cmdl := d.bufs.cmdList & 0x00FFFFFF
	tls := d.bufs.tileDescriptors & 0x00FFFFFF
	scn := target & 0x00FFFFFF
	bgl := d.bufs.backgroundList - cmdl

	// Rebuild the tile descriptors each frame so list types with no
	// polygons are excluded.
	d.createTileDescriptors(d.width/32, d.height/32)

	// Only the high bits of the depth plane are used; the hardware
	// requires the bottom 4 bits of the float to be zero.
	zclipInt := math.Float32bits(zclip) & 0xFFFFFFF0

	d.hw.SetPVR(hw.TilesAddr, tls)
	d.hw.SetPVR(hw.CmdlistAddr, cmdl)
	d.hw.SetPVR(hw.TAFramebufAddr1, scn)
	d.hw.SetPVR(hw.TAFramebufAddr2, scn+uint32(d.width*d.depth))

	// Background plane for pixels with no triangles to draw. The span
	// field appears to be (value + 3) words per vertex.
	d.hw.SetPVR(hw.BackgroundInstr, 1<<24|(bgl&0xFFFFFC)<<1)
	d.hw.SetPVR(hw.BackgroundClip, zclipInt)

	// These reset per frame along with the accelerator.
	d.setRenderTargetRegs()

	d.hw.SetPVR(hw.StartRender, 0xFFFFFFFF)

	// Rendered, so the populated tracker starts over.
	d.populated = 0
}

// RenderBegin launches a render pass of everything committed since the
// last render into the current draw buffer. The caller must not call
// it again before RenderWait returns.
func (d *Driver) RenderBegin() {
	if !d.hw.IRQDisabled() {
		d.sched.NotifyWait(hw.EvRenderDone)
	}
	d.beginRender(hw.VRAMBase32+d.drawOffset, backgroundZPlane)
}

// RenderWait blocks until the render pass finishes.
func (d *Driver) RenderWait() {
	d.waitEvent(hw.EvRenderDone)
}

// Render launches a render pass and waits for it, for callers with no
// overlap work to do in between.
func (d *Driver) Render() {
	d.RenderBegin()
	d.RenderWait()
}

// taInit programs the accelerator's one-time configuration. The
// register values are the ones the system firmware uses; most are not
// documented beyond that.
func (d *Driver) taInit() {
	old := d.hw.DisableIRQ()
	defer d.hw.RestoreIRQ(old)

	d.bufs = taBuffers{}
	d.bgColor = rgb0888(0, 0, 0)

	d.hw.SetPVR(hw.TACacheSizes,
		0x200<<14| // translucent cache size
			0x40<<4| // punch-through cache size
			1<<3) // enable polygon discard, auto-sort translucent

	// Culling at 1.0f, perpendicular triangle compare at 0.0f.
	d.hw.SetPVR(hw.TAPolygonCull, 0x3F800000)
	d.hw.SetPVR(hw.TAPerpendicular, 0x0)

	// Span and offset sorting enabled.
	d.hw.SetPVR(hw.Spansort, 1<<8|1)

	d.hw.SetPVR(hw.FogTableColor, rgb0888(127, 127, 127))
	d.hw.SetPVR(hw.FogVertexColor, rgb0888(127, 127, 127))

	d.hw.SetPVR(hw.ColorClampMin, rgb8888(0, 0, 0, 0))
	d.hw.SetPVR(hw.ColorClampMax, rgb8888(255, 255, 255, 255))

	// Pixel sampling position at (0.5, 0.5) instead of (0.0, 0.0).
	d.hw.SetPVR(hw.PixelSample, 0x7)

	d.hw.SetPVR(hw.ShadowScaling, 0x0)

	// Undocumented FPU parameters.
	d.hw.SetPVR(hw.TAFPUParams, 0x0027DF77)

	d.hw.SetPVR(hw.Reset, 1)
	d.hw.SetPVR(hw.Reset, 0)

	// Stride width zero for stride-based textures.
	d.hw.SetPVR(hw.TSPCfg, 0x0)

	d.hw.SetPVR(hw.FogDensity, 0xFF07)
	d.hw.SetPVR(hw.FogVertexColor, rgb0888(127, 127, 127))
	d.hw.SetPVR(hw.FogTableColor, rgb0888(127, 127, 127))

	// Palettes in the framebuffer's format, so the same packed colors
	// can fill palette entries.
	if d.depth == Depth1555 {
		d.hw.SetPVR(hw.PaletteMode, paletteCfgARGB1555)
	} else {
		d.hw.SetPVR(hw.PaletteMode, paletteCfgARGB8888)
	}

	// Wait for a full vblank.
	for d.hw.PVR(hw.SyncStat)&0x1FF == 0 {
	}
	for d.hw.PVR(hw.SyncStat)&0x1FF != 0 {
	}

	d.enableIRQ(hw.IntRenderFinished)
	d.enableIRQ(hw.IntOpaqueFinished)
	d.enableIRQ(hw.IntTransparentFinished)
	d.enableIRQ(hw.IntPunchThruFinished)

	initTwiddleTab()

	d.waiting = 0
	d.populated = 0
}

// taFree disables the accelerator completion interrupts.
func (d *Driver) taFree() {
	old := d.hw.DisableIRQ()
	defer d.hw.RestoreIRQ(old)

	d.disableIRQ(hw.IntRenderFinished)
	d.disableIRQ(hw.IntOpaqueFinished)
	d.disableIRQ(hw.IntTransparentFinished)
	d.disableIRQ(hw.IntPunchThruFinished)
}
