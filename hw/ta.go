package hw

import "encoding/binary"

// taEngine models the slice of tile accelerator behavior the driver
// observes: list-type tracking of streamed commands, the per-list-type
// transfer-finished interrupts on the end-of-list marker, and the
// render pass kicked by STARTRENDER. Geometry is accepted but not
// rasterized; a render resolves to the background plane.
type taEngine struct {
	dev *Device

	seenOpaque      bool
	seenTransparent bool
	seenPunchThru   bool
}

func (t *taEngine) listInit() {
	t.seenOpaque = false
	t.seenTransparent = false
	t.seenPunchThru = false
}

// command consumes the leading word of a 32-byte parameter record.
func (t *taEngine) command(word uint32) {
	if word == 0 {
		t.endOfList()
		return
	}
	// global parameters (polygon 0x8..., sprite 0xA...) carry the
	// list type in bits 26:24. Vertex parameters do not.
	switch word & 0xE0000000 {
	case 0x80000000, 0xA0000000:
		switch word & 0x07000000 {
		case 0x00000000:
			t.seenOpaque = true
		case 0x02000000:
			t.seenTransparent = true
		case 0x04000000:
			t.seenPunchThru = true
		}
	}
}

func (t *taEngine) endOfList() {
	if t.seenOpaque {
		t.dev.Raise(EvOpaqueDone)
	}
	if t.seenTransparent {
		t.dev.Raise(EvTransparentDone)
	}
	if t.seenPunchThru {
		t.dev.Raise(EvPunchThruDone)
	}
	t.listInit()
}

// startRender resolves the frame: the write framebuffer is filled with
// the background plane color, then the render-finished interrupt is
// raised.
func (d *Device) startRender() {
	r := &d.Regs

	// locate the background parameter block through the tag word.
	bgoff := (r.BGPLANET.Value >> 1) & 0x7FFFFC
	base := r.PARAMBASE.Value & VRAMMask
	bg := d.VRAM.Data[(base+bgoff)&VRAMMask:]
	colorWord := binary.LittleEndian.Uint32(bg[6*4:])
	cr := (colorWord >> 16) & 0xFF
	cg := (colorWord >> 8) & 0xFF
	cb := colorWord & 0xFF

	width := int((r.FBXCLIP.Value>>16)&0x7FF) + 1
	height := int((r.FBYCLIP.Value>>16)&0x3FF) + 1
	stride := int(r.FBWLINE.Value) * 8

	dst := d.VRAM.Data[r.FBWSOF1.Value&VRAMMask:]
	if r.FBWCTRL.Value&0x7 >= 4 {
		var px [4]byte
		binary.LittleEndian.PutUint32(px[:], cr<<16|cg<<8|cb)
		for y := 0; y < height; y++ {
			row := dst[y*stride:]
			for x := 0; x < width; x++ {
				copy(row[x*4:], px[:])
			}
		}
	} else {
		px := uint16((cr&0xF8)<<7 | (cg&0xF8)<<2 | cb>>3)
		for y := 0; y < height; y++ {
			row := dst[y*stride:]
			for x := 0; x < width; x++ {
				binary.LittleEndian.PutUint16(row[x*2:], px)
			}
		}
	}

	d.Raise(EvRenderDone)
}
