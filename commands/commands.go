// Structured Gerber image commands, as handed over by a parser.
package commands

import (
	"errors"
	"strconv"

	"github.com/MakerPnP/gerber-viewer/apertures"
	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/xy"
)

// Command is the closed set of the command types declared below.
type Command interface {
	String() string
	command()
}

// Dnn, n >= 10
type SelectAperture struct {
	Code int
}

// G01, G02, G03
type SetInterpolation struct {
	Mode IPmode
}

// G74, G75
type SetQuadrant struct {
	Mode QuadMode
}

// D01, D02, D03 with coordinates
type Operation struct {
	Action ActType
	Coord  xy.XY
}

// G36
type RegionBegin struct{}

// G37
type RegionEnd struct{}

// LP
type LoadPolarity struct {
	Polarity PolType
}

// LM
type LoadMirroring struct {
	Mirroring Mirror
}

// LR, degrees counter-clockwise
type LoadRotation struct {
	Degrees float64
}

// LS
type LoadScaling struct {
	Scale float64
}

// MI, legacy
type ImageMirror struct {
	Mirroring Mirror
}

// SF, legacy
type ImageScale struct {
	A float64
	B float64
}

// OF, legacy
type ImageOffset struct {
	A float64
	B float64
}

// IR, legacy
type ImageRotation struct {
	Degrees int
}

// AS, legacy
type AxisSelection struct {
	Select AxisSelect
}

// IP, legacy
type ImagePolarity struct {
	Polarity PolType
}

// SR with parameters. DX and DY are in the image units.
type StepRepeatBegin struct {
	NX int
	NY int
	DX float64
	DY float64
}

// SR without parameters
type StepRepeatEnd struct{}

// ABDnn
type BlockBegin struct {
	Code int
}

// AB without parameters
type BlockEnd struct{}

// M02
type EndOfFile struct{}

func (SelectAperture) command()   {}
func (SetInterpolation) command() {}
func (SetQuadrant) command()      {}
func (Operation) command()        {}
func (RegionBegin) command()      {}
func (RegionEnd) command()        {}
func (LoadPolarity) command()     {}
func (LoadMirroring) command()    {}
func (LoadRotation) command()     {}
func (LoadScaling) command()      {}
func (ImageMirror) command()      {}
func (ImageScale) command()       {}
func (ImageOffset) command()      {}
func (ImageRotation) command()    {}
func (AxisSelection) command()    {}
func (ImagePolarity) command()    {}
func (StepRepeatBegin) command()  {}
func (StepRepeatEnd) command()    {}
func (BlockBegin) command()       {}
func (BlockEnd) command()         {}
func (EndOfFile) command()        {}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c SelectAperture) String() string { return "D" + strconv.Itoa(c.Code) }
func (c SetInterpolation) String() string {
	switch c.Mode {
	case IPModeLinear:
		return "G01"
	case IPModeCwC:
		return "G02"
	case IPModeCCwC:
		return "G03"
	default:
	}
	return "G0?"
}
func (c SetQuadrant) String() string {
	if c.Mode == QuadModeSingle {
		return "G74"
	}
	return "G75"
}
func (c Operation) String() string {
	switch c.Action {
	case OpcodeD01_DRAW:
		return c.Coord.String() + "D01"
	case OpcodeD02_MOVE:
		return c.Coord.String() + "D02"
	case OpcodeD03_FLASH:
		return c.Coord.String() + "D03"
	default:
	}
	return c.Coord.String() + "D??"
}
func (RegionBegin) String() string { return "G36" }
func (RegionEnd) String() string   { return "G37" }
func (c LoadPolarity) String() string {
	if c.Polarity == PolTypeClear {
		return "LPC"
	}
	return "LPD"
}
func (c LoadMirroring) String() string  { return "LM " + c.Mirroring.String() }
func (c LoadRotation) String() string   { return "LR" + ff(c.Degrees) }
func (c LoadScaling) String() string    { return "LS" + ff(c.Scale) }
func (c ImageMirror) String() string    { return "MI " + c.Mirroring.String() }
func (c ImageScale) String() string     { return "SFA" + ff(c.A) + "B" + ff(c.B) }
func (c ImageOffset) String() string    { return "OFA" + ff(c.A) + "B" + ff(c.B) }
func (c ImageRotation) String() string  { return "IR" + strconv.Itoa(c.Degrees) }
func (c AxisSelection) String() string  { return "AS " + c.Select.String() }
func (c ImagePolarity) String() string {
	if c.Polarity == PolTypeClear {
		return "IPNEG"
	}
	return "IPPOS"
}
func (c StepRepeatBegin) String() string {
	return "SRX" + strconv.Itoa(c.NX) + "Y" + strconv.Itoa(c.NY) + "I" + ff(c.DX) + "J" + ff(c.DY)
}
func (StepRepeatEnd) String() string  { return "SR" }
func (c BlockBegin) String() string   { return "ABD" + strconv.Itoa(c.Code) }
func (BlockEnd) String() string       { return "AB" }
func (EndOfFile) String() string      { return "M02" }

/*
############################## image ##############################
*/

// Image is one parsed Gerber file: its format, its aperture dictionary and
// its command stream. It is not modified by the geometry pipeline.
type Image struct {
	Format    xy.FormatSpec
	Apertures *apertures.Table
	Commands  []Command
}

func NewImage(fs xy.FormatSpec, table *apertures.Table, cmds ...Command) *Image {
	return &Image{Format: fs, Apertures: table, Commands: cmds}
}

func (img *Image) Validate() error {
	if img == nil {
		return errors.New("image is nil")
	}
	if err := img.Format.Validate(); err != nil {
		return err
	}
	if img.Apertures == nil {
		return errors.New("image has no aperture table")
	}
	return nil
}
