package xy

import (
	"errors"
	"math"
	"strconv"

	"github.com/akavel/polyclip-go"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
)

const InchesToMM float64 = 25.4

/*
############################ format specification #####################
*/

// Format specification object. Coordinate words arrive from the parser
// as raw fixed-decimal integers; the format says where the decimal point is.
type FormatSpec struct {
	Units Units
	XI    int // digits in the integer part
	XD    int // digits in the fractional part
	YI    int
	YD    int
}

// NewFormatSpec returns the format with equal X and Y precision.
func NewFormatSpec(units Units, intDigits, decDigits int) FormatSpec {
	return FormatSpec{Units: units, XI: intDigits, XD: decDigits, YI: intDigits, YD: decDigits}
}

// 4.1.1 gerber format conformance test
func (fs FormatSpec) Validate() error {
	if fs.Units != UnitsMM && fs.Units != UnitsInch {
		return errors.New("format: unknown units")
	}
	if (fs.XI != fs.YI) || (fs.XD != fs.YD) {
		return errors.New("format: X and Y precision differ")
	}
	if fs.XI < 1 || fs.XI > 6 {
		return errors.New("format: bad number of integer digits " + strconv.Itoa(fs.XI))
	}
	if (fs.XD > 7) || (fs.XD < 3) {
		return errors.New("format: bad number of decimal digits " + strconv.Itoa(fs.XD))
	}
	return nil
}

// Resolution is the value of one least significant digit.
func (fs FormatSpec) Resolution() float64 {
	d := fs.XD
	if fs.YD > d {
		d = fs.YD
	}
	return math.Pow10(-d)
}

func (fs FormatSpec) DecodeX(raw int64) float64 {
	return float64(raw) / math.Pow10(fs.XD)
}

func (fs FormatSpec) DecodeY(raw int64) float64 {
	return float64(raw) / math.Pow10(fs.YD)
}

// ToMM converts a value in the image units to millimetres.
func (fs FormatSpec) ToMM(v float64) float64 {
	if fs.Units == UnitsInch {
		return v * InchesToMM
	}
	return v
}

// Encode is the inverse of DecodeX, rounded to the nearest digit.
func (fs FormatSpec) Encode(v float64) int64 {
	return int64(math.Round(v * math.Pow10(fs.XD)))
}

/*
######################### coordinates #########################################
*/

// AxisValue is one optional coordinate word
type AxisValue struct {
	Raw     int64
	Present bool
}

func Val(raw int64) AxisValue {
	return AxisValue{Raw: raw, Present: true}
}

// XY holds the coordinate words of one operation. X and Y are modal:
// a missing word keeps the previous value. I and J are not modal.
type XY struct {
	X AxisValue
	Y AxisValue
	I AxisValue
	J AxisValue
}

// At builds the X/Y words
func At(x, y int64) XY {
	return XY{X: Val(x), Y: Val(y)}
}

// AtArc builds the X/Y/I/J words
func AtArc(x, y, i, j int64) XY {
	return XY{X: Val(x), Y: Val(y), I: Val(i), J: Val(j)}
}

func (xy XY) String() string {
	s := func(name string, v AxisValue) string {
		if !v.Present {
			return ""
		}
		return name + strconv.FormatInt(v.Raw, 10)
	}
	return s("X", xy.X) + s("Y", xy.Y) + s("I", xy.I) + s("J", xy.J)
}

// Resolve decodes the words against the previous point; returns the new
// point and the I/J offset.
func (fs FormatSpec) Resolve(xy XY, prev polyclip.Point) (polyclip.Point, polyclip.Point) {
	p := prev
	if xy.X.Present {
		p.X = fs.DecodeX(xy.X.Raw)
	}
	if xy.Y.Present {
		p.Y = fs.DecodeY(xy.Y.Raw)
	}
	var off polyclip.Point
	if xy.I.Present {
		off.X = fs.DecodeX(xy.I.Raw)
	}
	if xy.J.Present {
		off.Y = fs.DecodeY(xy.J.Raw)
	}
	return p, off
}

// tolerance is the radius of the circle around first point
// inisde of which another point will be treated as equal to the first one
func Equals(a, b polyclip.Point, tolerance float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) < tolerance
}

func Distance(a, b polyclip.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func PointString(p polyclip.Point) string {
	return "(" + strconv.FormatFloat(p.X, 'f', 5, 64) + "," + strconv.FormatFloat(p.Y, 'f', 5, 64) + ")"
}
