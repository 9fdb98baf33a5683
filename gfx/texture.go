package gfx

import (
	"encoding/binary"

	"holly/hw"
)

// Palette entry sizes for PaletteBank.
const (
	PaletteCLUT4 = 4
	PaletteCLUT8 = 8
)

// Palette RAM entry formats (PALRAMCTRL).
const (
	paletteCfgARGB1555 = 0
	paletteCfgARGB8888 = 3
)

// twiddletab spreads the bits of a 10-bit coordinate apart so x and y
// can be interleaved into a Z-order texture address.
var twiddletab [1024]uint32

func initTwiddleTab() {
	for x := uint32(0); x < 1024; x++ {
		twiddletab[x] = x&1 |
			x&2<<1 |
			x&4<<2 |
			x&8<<3 |
			x&16<<4 |
			x&32<<5 |
			x&64<<6 |
			x&128<<7 |
			x&256<<8 |
			x&512<<9
	}
}

func twiddle(x, y uint32) uint32 {
	return twiddletab[y] | twiddletab[x]<<1
}

// TextureBase returns the VRAM address where texture storage starts,
// directly above the accelerator buffers. Callers allocate from here
// on their own; nothing tracks an upper bound below the end of VRAM.
func (d *Driver) TextureBase() uint32 {
	return d.bufs.textureRAM
}

// LoadTexture twiddles a square uvsize x uvsize source image into
// texture memory at offset. Only 8-bit samples are supported, packed
// two vertically-adjacent rows at a time into 16-bit words. Writes go
// through the uncached alias so the accelerator never reads stale
// cache contents.
func (d *Driver) LoadTexture(offset uint32, uvsize int, bitsize int, data []byte) error {
	switch uvsize {
	case 8, 16, 32, 64, 128, 256, 512, 1024:
	default:
		return ErrBadTextureSize
	}
	if offset == 0 || data == nil {
		return ErrNilTexture
	}
	if bitsize != 8 {
		// No conversion path exists for other depths.
		return ErrBadTextureBits
	}

	tex := d.hw.VRAMSlice(offset | hw.UncachedMirror)
	for y := 0; y < uvsize; y += 2 {
		for x := 0; x < uvsize; x++ {
			word := uint16(data[x+y*uvsize]) | uint16(data[x+(y+1)*uvsize])<<8
			addr := twiddle(uint32(y)>>1, uint32(x))
			binary.LittleEndian.PutUint16(tex[addr*2:], word)
		}
	}

	modTex.DebugZ("texture loaded").
		Hex32("offset", offset).
		Int("uvsize", uvsize).
		End()
	return nil
}

// PaletteBank returns the palette RAM slice for one color lookup
// table: 16 entries per bank with 4-bit indices (64 banks), 256 with
// 8-bit indices (4 banks). Entries are 32-bit words in the format
// programmed into the palette-mode register. Returns nil for an
// invalid size or bank number.
func (d *Driver) PaletteBank(size int, bank int) []byte {
	pal := d.hw.Palette.Data
	switch size {
	case PaletteCLUT4:
		if bank < 0 || bank > 63 {
			return nil
		}
		return pal[16*4*bank : 16*4*(bank+1)]
	case PaletteCLUT8:
		if bank < 0 || bank > 3 {
			return nil
		}
		return pal[256*4*bank : 256*4*(bank+1)]
	}
	return nil
}
