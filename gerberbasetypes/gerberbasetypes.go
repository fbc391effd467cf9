// Base types for Gerber image processing
package gerberbasetypes

const (
	MaxInt = int(^uint(0) >> 1)
	MinInt = int(-MaxInt - 1)
)

type GerberApType int

const (
	AptypeCircle GerberApType = iota + 1
	AptypeRectangle
	AptypeObround
	AptypePoly
	AptypeMacro
	AptypeBlock
)

func (ga GerberApType) String() string {
	switch ga {
	case AptypeCircle:
		return "circle aperture"
	case AptypeRectangle:
		return "rectangle aperture"
	case AptypeObround:
		return "obround (box) aperture"
	case AptypePoly:
		return "polygon aperture"
	case AptypeMacro:
		return "macro aperture"
	case AptypeBlock:
		return "block aperture"
	default:
	}
	return "Unknown aperture type"
}

type PolType int

const (
	PolTypeDark PolType = iota + 1
	PolTypeClear
)

func (p PolType) String() string {
	switch p {
	case PolTypeDark:
		return "Polarity: dark"
	case PolTypeClear:
		return "Polarity: clear"
	default:
	}
	return "Unknown polarity"
}

// Invert swaps dark and clear. Unknown values are returned as is.
func (p PolType) Invert() PolType {
	switch p {
	case PolTypeDark:
		return PolTypeClear
	case PolTypeClear:
		return PolTypeDark
	}
	return p
}

type ActType int

const (
	OpcodeD01_DRAW ActType = iota + 1
	OpcodeD02_MOVE
	OpcodeD03_FLASH
	OpcodeStop
)

func (act ActType) String() string {
	switch act {
	case OpcodeD01_DRAW:
		return "Opcode D01 (DRAW)"
	case OpcodeD02_MOVE:
		return "Opcode D02 (MOVE)"
	case OpcodeD03_FLASH:
		return "Opcode D03 (FLASH)"
	case OpcodeStop:
		return "Opcode Stop"
	default:
	}
	return "Unknown OpCode"
}

type QuadMode int

const (
	QuadModeSingle QuadMode = iota + 1
	QuadModeMulti
)

func (q QuadMode) String() string {
	switch q {
	case QuadModeSingle:
		return "QuadMode: Single"
	case QuadModeMulti:
		return "QuadMode: Multi"
	default:
	}
	return "Unknown QuadMode"
}

type IPmode int

const (
	IPModeLinear IPmode = iota + 1
	IPModeCwC
	IPModeCCwC
)

func (ipm IPmode) String() string {
	switch ipm {
	case IPModeLinear:
		return "Linear interpolation"
	case IPModeCwC:
		return "Clockwise interpolation"
	case IPModeCCwC:
		return "Counter-clockwise interpolation"
	default:
	}
	return "Unknown interpolation"
}

// Mirror is used both by the LM command (aperture level) and the legacy
// MI command (image level, A/B axes).
type Mirror int

const (
	NoMirror Mirror = iota
	MirrorX
	MirrorY
	MirrorXY
)

func (m Mirror) String() string {
	switch m {
	case NoMirror:
		return "Mirroring: none"
	case MirrorX:
		return "Mirroring: X"
	case MirrorY:
		return "Mirroring: Y"
	case MirrorXY:
		return "Mirroring: XY"
	default:
	}
	return "Unknown mirroring"
}

// Combine returns the mirroring equivalent to applying m and then another.
func (m Mirror) Combine(another Mirror) Mirror {
	x := m.FlipsX() != another.FlipsX()
	y := m.FlipsY() != another.FlipsY()
	return MirrorFromFlags(x, y)
}

// FlipsX reports whether the X coordinates change sign.
func (m Mirror) FlipsX() bool {
	return m == MirrorX || m == MirrorXY
}

// FlipsY reports whether the Y coordinates change sign.
func (m Mirror) FlipsY() bool {
	return m == MirrorY || m == MirrorXY
}

func MirrorFromFlags(x, y bool) Mirror {
	switch {
	case x && y:
		return MirrorXY
	case x:
		return MirrorX
	case y:
		return MirrorY
	}
	return NoMirror
}

type Units int

const (
	UnitsMM Units = iota + 1
	UnitsInch
)

func (u Units) String() string {
	switch u {
	case UnitsMM:
		return "Units: mm"
	case UnitsInch:
		return "Units: inch"
	default:
	}
	return "Unknown units"
}

// AxisSelect is the legacy AS parameter. AXBY maps the A axis to X,
// AYBX maps the A axis to Y.
type AxisSelect int

const (
	AxisAXBY AxisSelect = iota + 1
	AxisAYBX
)

func (as AxisSelect) String() string {
	switch as {
	case AxisAXBY:
		return "Axis select: AXBY"
	case AxisAYBX:
		return "Axis select: AYBX"
	default:
	}
	return "Unknown axis select"
}

// Exposure of an aperture macro primitive
type Exposure int

const (
	ExposureOff Exposure = iota
	ExposureOn
)

func (e Exposure) String() string {
	if e == ExposureOn {
		return "Exposure: on"
	}
	return "Exposure: off"
}
