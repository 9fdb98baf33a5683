package hw

import (
	"holly/hw/hwio"
)

// Physical memory map of the HOLLY ASIC, cache-control bits stripped.
// The SH-4 P2 (uncached) window adds 0xA0000000 to every address below;
// canonicalize() removes it before the bus lookup.
const (
	PowerVR2Base = 0x005F8000
	PaletteBase  = 0x005F9000

	VRAMBase64 = 0x04000000 // 64-bit texture access path
	VRAMBase32 = 0x05000000 // 32-bit linear access path
	TAFifoBase = 0x10000000 // streaming command port (write only)

	UncachedMirror = 0xA0000000

	VRAMSize    = 16 * 1024 * 1024
	VRAMMask    = 0x00FFFFFF
	PaletteSize = 4 * 1024
)

// PowerVR2 register offsets, relative to PowerVR2Base. All registers are
// 32-bit. Names follow the function each register serves in this driver;
// the offsets are the hardware's and must not change.
const (
	ID               = 0x000
	Revision         = 0x004
	Reset            = 0x008
	StartRender      = 0x014
	CmdlistAddr      = 0x020
	TilesAddr        = 0x02C
	Spansort         = 0x030
	BorderCol        = 0x040
	FBDisplayCfg     = 0x044
	FBRenderCfg      = 0x048
	FBRenderModulo   = 0x04C
	FBDisplayAddr1   = 0x050
	FBDisplayAddr2   = 0x054
	FBDisplaySize    = 0x05C
	TAFramebufAddr1  = 0x060
	TAFramebufAddr2  = 0x064
	FBClipX          = 0x068
	FBClipY          = 0x06C
	ShadowScaling    = 0x074
	TAPolygonCull    = 0x078
	TAFPUParams      = 0x07C
	PixelSample      = 0x080
	TAPerpendicular  = 0x084
	BackgroundClip   = 0x088
	BackgroundInstr  = 0x08C
	TACacheSizes     = 0x098
	VRAMCfg1         = 0x0A0
	VRAMCfg3         = 0x0A8
	FogTableColor    = 0x0B0
	FogVertexColor   = 0x0B4
	FogDensity       = 0x0B8
	ColorClampMax    = 0x0BC
	ColorClampMin    = 0x0C0
	HBlankInterrupt  = 0x0C8
	VBlankInterrupt  = 0x0CC
	SyncCfg          = 0x0D0
	HBlank           = 0x0D4
	SyncLoad         = 0x0D8
	VBlank           = 0x0DC
	TSPCfg           = 0x0E4
	VideoCfg         = 0x0E8
	HPos             = 0x0EC
	VPos             = 0x0F0
	Scaler           = 0x0F4
	PaletteMode      = 0x108
	SyncStat         = 0x10C
	ObjbufBase       = 0x124
	CmdlistBase      = 0x128
	ObjbufLimit      = 0x12C
	CmdlistLimit     = 0x130
	TileClip         = 0x13C
	TABlocksize      = 0x140
	TAConfirm        = 0x144
	AdditionalObjbuf = 0x164
)

// HOLLY system-block interrupt registers (full physical addresses).
const (
	IRQStatus = 0x005F6900 // normal interrupt status, write-1-to-clear
	IRQMask2  = 0x005F6910 // level-2 interrupt enable mask
)

// Normal interrupt status/mask bits.
const (
	IntRenderFinished      = 0x00000004
	IntVBlankIn            = 0x00000008
	IntVBlankOut           = 0x00000010
	IntHBlank              = 0x00000020
	IntOpaqueFinished      = 0x00000080
	IntTransparentFinished = 0x00000200
	IntPunchThruFinished   = 0x00200000
)

// PVRRegs is the PowerVR2 core register bank, mapped at PowerVR2Base.
type PVRRegs struct {
	dev *Device

	REGID       hwio.Reg32 `hwio:"offset=0x000,readonly,reset=0x17FD11DB"`
	REGREVISION hwio.Reg32 `hwio:"offset=0x004,readonly,reset=0x00000011"`
	SOFTRESET   hwio.Reg32 `hwio:"offset=0x008"`
	STARTRENDER hwio.Reg32 `hwio:"offset=0x014,wcb"`
	PARAMBASE   hwio.Reg32 `hwio:"offset=0x020"`
	REGIONBASE  hwio.Reg32 `hwio:"offset=0x02c"`
	SPANSORT    hwio.Reg32 `hwio:"offset=0x030"`
	BORDERCOL   hwio.Reg32 `hwio:"offset=0x040"`
	FBRCTRL     hwio.Reg32 `hwio:"offset=0x044"`
	FBWCTRL     hwio.Reg32 `hwio:"offset=0x048"`
	FBWLINE     hwio.Reg32 `hwio:"offset=0x04c"`
	FBRSOF1     hwio.Reg32 `hwio:"offset=0x050"`
	FBRSOF2     hwio.Reg32 `hwio:"offset=0x054"`
	FBRSIZE     hwio.Reg32 `hwio:"offset=0x05c"`
	FBWSOF1     hwio.Reg32 `hwio:"offset=0x060"`
	FBWSOF2     hwio.Reg32 `hwio:"offset=0x064"`
	FBXCLIP     hwio.Reg32 `hwio:"offset=0x068"`
	FBYCLIP     hwio.Reg32 `hwio:"offset=0x06c"`
	SHADSCALE   hwio.Reg32 `hwio:"offset=0x074"`
	CULLVAL     hwio.Reg32 `hwio:"offset=0x078"`
	FPUPARAMS   hwio.Reg32 `hwio:"offset=0x07c"`
	HALFOFFSET  hwio.Reg32 `hwio:"offset=0x080"`
	PERPVAL     hwio.Reg32 `hwio:"offset=0x084"`
	BGPLANED    hwio.Reg32 `hwio:"offset=0x088"`
	BGPLANET    hwio.Reg32 `hwio:"offset=0x08c"`
	FEEDCFG     hwio.Reg32 `hwio:"offset=0x098"`
	SDRAMREF    hwio.Reg32 `hwio:"offset=0x0a0"`
	SDRAMCFG    hwio.Reg32 `hwio:"offset=0x0a8"`
	FOGTABLECOL hwio.Reg32 `hwio:"offset=0x0b0"`
	FOGVERTCOL  hwio.Reg32 `hwio:"offset=0x0b4"`
	FOGDENSITY  hwio.Reg32 `hwio:"offset=0x0b8"`
	CLAMPMAX    hwio.Reg32 `hwio:"offset=0x0bc"`
	CLAMPMIN    hwio.Reg32 `hwio:"offset=0x0c0"`
	SPGHBLANKI  hwio.Reg32 `hwio:"offset=0x0c8"`
	SPGVBLANKI  hwio.Reg32 `hwio:"offset=0x0cc"`
	SPGCTRL     hwio.Reg32 `hwio:"offset=0x0d0"`
	SPGHBLANK   hwio.Reg32 `hwio:"offset=0x0d4"`
	SPGLOAD     hwio.Reg32 `hwio:"offset=0x0d8"`
	SPGVBLANK   hwio.Reg32 `hwio:"offset=0x0dc"`
	TEXTCTRL    hwio.Reg32 `hwio:"offset=0x0e4"`
	VOCTRL      hwio.Reg32 `hwio:"offset=0x0e8"`
	VOSTARTX    hwio.Reg32 `hwio:"offset=0x0ec"`
	VOSTARTY    hwio.Reg32 `hwio:"offset=0x0f0"`
	SCALERCTL   hwio.Reg32 `hwio:"offset=0x0f4"`
	PALRAMCTRL  hwio.Reg32 `hwio:"offset=0x108"`
	SPGSTATUS   hwio.Reg32 `hwio:"offset=0x10c,readonly,rcb"`
	OLBASE      hwio.Reg32 `hwio:"offset=0x124"`
	ISPBASE     hwio.Reg32 `hwio:"offset=0x128"`
	OLLIMIT     hwio.Reg32 `hwio:"offset=0x12c"`
	ISPLIMIT    hwio.Reg32 `hwio:"offset=0x130"`
	TILECLIP    hwio.Reg32 `hwio:"offset=0x13c"`
	ALLOCCTRL   hwio.Reg32 `hwio:"offset=0x140"`
	LISTINIT    hwio.Reg32 `hwio:"offset=0x144,wcb"`
	NEXTOPBINIT hwio.Reg32 `hwio:"offset=0x164"`
}

func (r *PVRRegs) WriteSTARTRENDER(old, val uint32) {
	r.dev.startRender()
}

func (r *PVRRegs) WriteLISTINIT(old, val uint32) {
	if val&0x80000000 != 0 {
		r.dev.ta.listInit()
	}
}

func (r *PVRRegs) ReadSPGSTATUS(val uint32) uint32 {
	return r.dev.spg.status()
}

// IRQRegs is the slice of the HOLLY system block this driver core uses:
// the normal-interrupt status word and its level-2 enable mask. ISTNRM
// is backed by callbacks rather than a Reg32 so that every store to it,
// bus-side acks and model-side latches alike, happens under irqMu.
type IRQRegs struct {
	dev *Device

	ISTNRM  hwio.Device `hwio:"offset=0x00,size=0x4,rcb,wcb,pcb"`
	IML2NRM hwio.Reg32  `hwio:"offset=0x10"`
}

// Status bits are write-1-to-clear.
func (r *IRQRegs) WriteISTNRM(addr, val uint32) {
	r.dev.irqMu.Lock()
	r.dev.istnrm &^= val
	r.dev.irqMu.Unlock()
}

// Polling the status word costs bus cycles; the model charges them as
// one scanline per read so that masked spin loops see the beam move.
func (r *IRQRegs) ReadISTNRM(addr uint32) uint32 {
	r.dev.spg.step()
	return r.PeekISTNRM(addr)
}

func (r *IRQRegs) PeekISTNRM(addr uint32) uint32 {
	r.dev.irqMu.Lock()
	defer r.dev.irqMu.Unlock()
	return r.dev.istnrm
}
