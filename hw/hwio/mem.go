package hwio

import (
	"encoding/binary"

	"holly/emu/log"
)

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlagReadOnly  MemFlags = (1 << iota) // reject writes, log them
	MemFlagNoROLog                          // reject writes silently
)

// mem is the main structure used for linear memory access.
//
// We use this structure by pointer rather than by value because it is stored
// as BankIO32 interface within Table, and checking if a concrete pointer type
// is behind the interface is faster than checking a non-pointer type.
type mem struct {
	data []byte
	mask uint32
	wcb  func(uint32, uint32)
	ro   MemFlags
}

func newMem(buf []byte, wcb func(uint32, uint32), roflag MemFlags) *mem {
	if len(buf)&(len(buf)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	return &mem{
		data: buf,
		mask: uint32(len(buf) - 1),
		wcb:  wcb,
		ro:   roflag,
	}
}

// FetchPointer returns a slice aliasing the memory from addr to the end of
// the physical buffer. Bulk transfers (fills, texture uploads) go through it
// instead of paying for one bus access per word.
func (m *mem) FetchPointer(addr uint32) []uint8 {
	off := addr & m.mask
	return m.data[off:len(m.data):len(m.data)]
}

func (m *mem) Read32(addr uint32, peek bool) uint32 {
	off := (addr &^ 3) & m.mask
	return binary.LittleEndian.Uint32(m.data[off:])
}

func (m *mem) Write32(addr uint32, val uint32) {
	off := (addr &^ 3) & m.mask
	switch m.ro {
	case MemFlagReadWrite:
		binary.LittleEndian.PutUint32(m.data[off:], val)
		if m.wcb != nil {
			m.wcb(addr, val)
		}
	case MemFlagReadOnly:
		log.ModHwIo.ErrorZ("Write32 to readonly memory").
			Hex32("val", val).
			Hex32("addr", addr).
			End()
	case MemFlagNoROLog:
		return
	}
}

// Mem is a linear memory area that can be mapped into a Table.
//
// NOTE: this structure does not directly implement the BankIO32 interface;
// clients must call the BankIO32 method to create the adaptor that implements
// memory access depending on the memory bank configuration.
type Mem struct {
	Name    string               // name of the memory area (for debugging)
	Data    []byte               // actual memory buffer (pow2 length)
	VSize   int                  // virtual size of the memory (can be bigger than physical size)
	Flags   MemFlags             // flags determining how the memory can be accessed
	WriteCb func(uint32, uint32) // optional write callback, called after the write
}

func (m *Mem) BankIO32() BankIO32 {
	return newMem(m.Data, m.WriteCb, m.Flags)
}
