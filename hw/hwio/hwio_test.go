package hwio_test

import (
	"testing"

	"holly/hw/hwio"
)

// Unmapped
type openbus struct{}

func (ob *openbus) Read32(addr uint32, peek bool) uint32 {
	if peek {
		return 0xD4D4D4D4
	}
	return 0xD3D3D3D3
}
func (ob *openbus) Write32(addr uint32, val uint32) {}

type testTable struct {
	t   testing.TB
	Bus *hwio.Table

	// mapped at 0x0000_0000-0x0000_07FF, mirrored up to 0x0000_1FFF
	RAM hwio.Mem `hwio:"bank=0,offset=0x0,size=0x800,vsize=0x2000"`

	// 0x0100_0000
	Reg0 hwio.Reg32 `hwio:"bank=1,offset=0x0,reset=0x77"`
	// 0x0100_0004
	Reg1 hwio.Reg32 `hwio:"bank=1,offset=0x4,rwmask=0xFFFF0000,rcb,reset=0x99"`
	// 0x0100_0008
	Reg2 hwio.Reg32 `hwio:"bank=1,offset=0x8,readonly,pcb=PeekReg2"`

	// 0x0200_0000-0x0200_00FF
	DefaultDev hwio.Device `hwio:"bank=2,offset=0x0,size=0x100"`
	// 0x0200_0100-0x0200_01FF
	DEV hwio.Device `hwio:"bank=2,offset=0x100,size=0x100,rcb,wcb"` // no peek-callback
	// 0x0200_0200-0x0200_02FF
	WoDEV hwio.Device `hwio:"bank=2,offset=0x200,size=0x100,wcb,writeonly"`

	devval uint32
}

func newTestTable(tb testing.TB) *testTable {
	tbl := &testTable{t: tb}
	hwio.MustInitRegs(tbl)

	tbl.Bus = hwio.NewTable("bus")
	tbl.Bus.MapBank(0x00000000, tbl, 0)
	tbl.Bus.MapBank(0x01000000, tbl, 1)
	tbl.Bus.MapBank(0x02000000, tbl, 2)
	tbl.Bus.Unmapped = &openbus{}
	return tbl
}

func (tbl *testTable) ReadREG1(val uint32) uint32 { return tbl.Reg1.Value + 1 }

func (tbl *testTable) PeekReg2(val uint32) uint32 { return 0x12 }

func (tbl *testTable) ReadDEV(addr uint32) uint32       { return 0xE1E1E1E1 }
func (tbl *testTable) WriteDEV(addr uint32, val uint32) { tbl.devval = addr & val }

func (tbl *testTable) WriteWODEV(addr uint32, val uint32) { tbl.devval = addr &^ val }

func (tbl *testTable) wantRead32(addr uint32, want uint32) {
	tbl.t.Helper()

	if got := tbl.Bus.Read32(addr, false); got != want {
		tbl.t.Errorf("Read32(%08X) = %08X, want %08X", addr, got, want)
	}
}

func (tbl *testTable) Write32(addr uint32, val uint32) {
	tbl.Bus.Write32(addr, val)
}

func (tbl *testTable) wantPeek32(addr uint32, want uint32) {
	tbl.t.Helper()

	if got := tbl.Bus.Peek32(addr); got != want {
		tbl.t.Errorf("Peek32(%08X) = %08X, want %08X", addr, got, want)
	}
}

func TestTableMem(t *testing.T) {
	tbl := newTestTable(t)

	tbl.wantRead32(0x00, 0)
	tbl.Write32(0x00, 0x12345678)
	tbl.wantRead32(0x00, 0x12345678)
	tbl.wantRead32(0x800, 0x12345678) // mirror
	tbl.wantRead32(0x1800, 0x12345678)
}

func TestTableRegs(t *testing.T) {
	tbl := newTestTable(t)

	// Reg1: high half writable, low half sticks at reset, reads
	// through the callback.
	tbl.wantRead32(0x01000004, 0x9A)
	tbl.Write32(0x01000004, 0xFFFFFFFF)
	tbl.wantRead32(0x01000004, 0xFFFF009A)
	tbl.Write32(0x01000004, 0x12340000)
	tbl.wantRead32(0x01000004, 0x1234009A)

	// Reg2: readonly, writes rejected, peek through the callback.
	tbl.wantRead32(0x01000008, 0x00)
	tbl.wantPeek32(0x01000008, 0x12)
	tbl.Write32(0x01000008, 0x9B)
	tbl.wantRead32(0x01000008, 0x00)
	tbl.wantPeek32(0x01000008, 0x12)
}

func TestTableDevice(t *testing.T) {
	tbl := newTestTable(t)

	tbl.wantRead32(0x02000100, 0xE1E1E1E1)
	tbl.Write32(0x02000104, 0xFFFFFFFF)
	if tbl.devval != 0x02000104 {
		t.Errorf("devval = %08X, want %08X", tbl.devval, 0x02000104)
	}

	tbl.Write32(0x02000204, 0xFFFFFF00)
	if tbl.devval != 0x02000204&^uint32(0xFFFFFF00) {
		t.Errorf("devval = %08X", tbl.devval)
	}

	// device without callbacks: writes vanish, reads return zero
	tbl.Write32(0x02000000, 0x1234)
	tbl.wantRead32(0x02000000, 0)
}

func TestTableUnmapped(t *testing.T) {
	tbl := newTestTable(t)

	tbl.wantRead32(0x01000020, 0xD3D3D3D3)
	tbl.wantPeek32(0x01000020, 0xD4D4D4D4)
}

func TestTableUnmap(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Write32(0x00, 0xCAFEBABE)
	tbl.wantRead32(0x00, 0xCAFEBABE)

	tbl.Bus.Unmap(0x00000000, 0x00001FFF)
	tbl.wantRead32(0x00, 0xD3D3D3D3)
}

func TestFetchPointer(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Write32(0x10, 0x11223344)
	buf := tbl.Bus.FetchPointer(0x10)
	if len(buf) == 0 {
		t.Fatal("FetchPointer returned empty slice")
	}
	if buf[0] != 0x44 || buf[1] != 0x33 {
		t.Errorf("FetchPointer bytes = % X", buf[:4])
	}
}
