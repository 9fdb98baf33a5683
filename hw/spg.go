package hw

// spg models the sync pulse generator beam position. The model is
// read-driven: every SPGSTATUS read advances the beam one scanline, so
// polling loops observe a monotonically sweeping line counter and the
// vblank interrupts fire at the programmed lines. Frontends that do not
// poll can drive it through Device.StepLine.
type spg struct {
	dev  *Device
	line uint32
}

func (s *spg) totalLines() uint32 {
	vcount := (s.dev.Regs.SPGLOAD.Value >> 16) & 0x3FF
	if vcount == 0 {
		return 525
	}
	return vcount + 1
}

func (s *spg) step() {
	s.line++
	if s.line >= s.totalLines() {
		s.line = 0
	}

	vbi := s.dev.Regs.SPGVBLANKI.Value
	if s.line == vbi&0x3FF {
		s.dev.Raise(EvVBlankIn)
	}
	if s.line == (vbi>>16)&0x3FF {
		s.dev.Raise(EvVBlankOut)
	}
	s.dev.Raise(EvHBlank)
}

// status builds the SPGSTATUS word: current scanline in bits 9:0,
// vsync flag in bit 13 while inside the blanking region.
func (s *spg) status() uint32 {
	s.step()
	st := s.line & 0x3FF
	vbl := s.dev.Regs.SPGVBLANK.Value
	vbstart := vbl & 0x3FF
	vbend := (vbl >> 16) & 0x3FF
	if s.line >= vbstart || s.line < vbend {
		st |= 1 << 13
	}
	return st
}
