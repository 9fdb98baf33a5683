package gfx

import "holly/hw"

// PolygonClass is one of the accelerator's hardware-distinguished
// geometry categories. At most one class may be streamed per
// submission cycle.
type PolygonClass uint8

//go:generate go tool stringer -type=PolygonClass -linecomment

const (
	Opaque       PolygonClass = iota // opaque
	Transparent                      // transparent
	PunchThrough                     // punchthru
)

// ClassSet is a set of polygon classes.
type ClassSet uint8

func (s ClassSet) Has(c PolygonClass) bool { return s&c.mask() != 0 }

func (c PolygonClass) mask() ClassSet { return 1 << c }

// Leading-word encoding of a streamed parameter record.
const (
	taCmdPolygon          = 0x80000000
	taCmdSprite           = 0xA0000000
	taCmdTypeMask         = 0xE0000000
	taCmdClassMask        = 0x07000000
	taCmdClassOpaque      = 0x00000000
	taCmdClassTransparent = 0x02000000
	taCmdClassPunchThru   = 0x04000000
)

// Streamed record sizes accepted by the command port.
const (
	ListShort = 32
	ListLong  = 64
)

func (c PolygonClass) event() hw.Event {
	switch c {
	case Opaque:
		return hw.EvOpaqueDone
	case Transparent:
		return hw.EvTransparentDone
	default:
		return hw.EvPunchThruDone
	}
}
