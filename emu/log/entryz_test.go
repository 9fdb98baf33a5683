package log

import "testing"

type testStringer struct{ s string }

func (t testStringer) String() string { return t.s }

func TestZFieldValue(t *testing.T) {
	neg3 := int64(-3)
	tests := []struct {
		name string
		f    ZField
		want string
	}{
		{"bool-true", ZField{Type: FieldTypeBool, Boolean: true}, "true"},
		{"bool-false", ZField{Type: FieldTypeBool}, "false"},
		{"string", ZField{Type: FieldTypeString, String: "vram"}, "vram"},
		{"int", ZField{Type: FieldTypeInt, Integer: uint64(neg3)}, "-3"},
		{"hex32", ZField{Type: FieldTypeHex32, Integer: 0x5F8000}, "005f8000"},
		{"stringer", ZField{Type: FieldTypeStringer, Interface: testStringer{"vblank-in"}}, "vblank-in"},
		{"unknown", ZField{}, ""},
	}
	for _, tt := range tests {
		if got := tt.f.Value(); got != tt.want {
			t.Errorf("%s: Value() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNilEntryChain(t *testing.T) {
	// a disabled module hands out a nil *EntryZ; the whole field chain
	// must be callable on it.
	var e *EntryZ
	e.String("name", "x").
		Bool("flag", true).
		Int("n", 1).
		Hex32("addr", 0xA05F8000).
		Stringer("s", testStringer{"y"}).
		End()
}

func TestEntryZFieldOverflow(t *testing.T) {
	e := NewEntryZ()
	for i := 0; i < 2*len(e.zfbuf); i++ {
		e.Int("n", i)
	}
	if e.zfidx != len(e.zfbuf) {
		t.Errorf("zfidx = %d, want capped at %d", e.zfidx, len(e.zfbuf))
	}
	entryzPool.Put(e)
}
