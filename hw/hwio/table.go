package hwio

import (
	"fmt"
	"sort"

	"holly/emu/log"
)

// log unmapped accesses (useful for debugging, verbose while probing)
const logUnmapped = true

type BankIO32 interface {
	// Read32 reads a word from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read32(addr uint32, peek bool) uint32
	Write32(addr uint32, val uint32)
}

// Table routes bus accesses to the device mapped at each address range.
type Table struct {
	Name string

	// Unmapped, if set, receives accesses that hit no mapped range.
	Unmapped BankIO32

	ranges []busRange
}

type busRange struct {
	start, end uint32 // inclusive
	io         BankIO32
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.ranges = nil
}

func (t *Table) insertRange(start, end uint32, io BankIO32) error {
	idx := sort.Search(len(t.ranges), func(i int) bool {
		return t.ranges[i].start > start
	})
	if idx > 0 && t.ranges[idx-1].end >= start {
		return fmt.Errorf("range %08x-%08x overlaps %08x-%08x",
			start, end, t.ranges[idx-1].start, t.ranges[idx-1].end)
	}
	if idx < len(t.ranges) && t.ranges[idx].start <= end {
		return fmt.Errorf("range %08x-%08x overlaps %08x-%08x",
			start, end, t.ranges[idx].start, t.ranges[idx].end)
	}
	t.ranges = append(t.ranges, busRange{})
	copy(t.ranges[idx+1:], t.ranges[idx:])
	t.ranges[idx] = busRange{start: start, end: end, io: io}
	return nil
}

func (t *Table) search(addr uint32) BankIO32 {
	idx := sort.Search(len(t.ranges), func(i int) bool {
		return t.ranges[i].end >= addr
	})
	if idx < len(t.ranges) && t.ranges[idx].start <= addr {
		return t.ranges[idx].io
	}
	return nil
}

// MapBank maps a register bank (that is, a structure containing multiple
// hwio.Reg32/Mem/Device fields). For this function to work, registers must
// have a struct tag "hwio", containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specifying the
//	                bank number.
func (t *Table) MapBank(addr uint32, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg32:
			t.MapReg32(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) MapReg32(addr uint32, io *Reg32) {
	t.mapBus32(addr, 4, io)
}

func (t *Table) MapDevice(addr uint32, io *Device) {
	t.mapBus32(addr, uint32(io.Size), io)
}

func (t *Table) MapMem(addr uint32, mem *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex32("addr", addr).
		Hex32("size", uint32(mem.VSize)).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	if len(mem.Data)&(len(mem.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}

	t.mapBus32(addr, uint32(mem.VSize), mem.BankIO32())
}

func (t *Table) mapBus32(addr, size uint32, io BankIO32) {
	if err := t.insertRange(addr, addr+size-1, io); err != nil {
		panic(err)
	}
}

func (t *Table) Unmap(begin, end uint32) {
	for i := 0; i < len(t.ranges); {
		r := t.ranges[i]
		if r.start >= begin && r.end <= end {
			t.ranges = append(t.ranges[:i], t.ranges[i+1:]...)
			continue
		}
		i++
	}
}

// Read32 searches in the table for the device mapped at the given address and
// forwards the read to it. Accesses to unmapped addresses are logged as
// errors if peek is false.
func (t *Table) Read32(addr uint32, peek bool) uint32 {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			return t.Unmapped.Read32(addr, peek)
		}
		if logUnmapped && !peek {
			log.ModHwIo.ErrorZ("unmapped Read32").
				String("name", t.Name).
				Hex32("addr", addr).
				End()
		}
		return 0
	}
	return io.Read32(addr, peek)
}

// Peek32 is a convenience function.
func (t *Table) Peek32(addr uint32) uint32 {
	return t.Read32(addr, true)
}

func (t *Table) Write32(addr uint32, val uint32) {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			t.Unmapped.Write32(addr, val)
			return
		}
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write32").
				String("name", t.Name).
				Hex32("addr", addr).
				Hex32("val", val).
				End()
		}
		return
	}
	io.Write32(addr, val)
}

// FetchPointer returns a slice aliasing the linear memory mapped at addr, or
// nil if addr does not fall into a Mem range.
func (t *Table) FetchPointer(addr uint32) []uint8 {
	io := t.search(addr)
	if mem, ok := io.(*mem); ok {
		return mem.FetchPointer(addr)
	}
	return nil
}
