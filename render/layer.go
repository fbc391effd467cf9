package render

import (
	"math"
	"strconv"

	"github.com/akavel/polyclip-go"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
)

type SourceKind int

const (
	SourceFlash SourceKind = iota + 1
	SourceStroke
	SourceRegion
	SourceBackground // dark background of a negative image
)

func (sk SourceKind) String() string {
	switch sk {
	case SourceFlash:
		return "flash"
	case SourceStroke:
		return "stroke"
	case SourceRegion:
		return "region"
	case SourceBackground:
		return "background"
	default:
	}
	return "unknown source"
}

// Source identifies the command a primitive was built from
type Source struct {
	Kind     SourceKind
	Aperture int // aperture code, 0 for regions
	Region   int // region number, 0 for flashes and strokes
	Command  int // index in the command stream
}

func (s Source) String() string {
	retVal := s.Kind.String() + " at " + strconv.Itoa(s.Command)
	if s.Aperture != 0 {
		retVal += ", D" + strconv.Itoa(s.Aperture)
	}
	if s.Region != 0 {
		retVal += ", region #" + strconv.Itoa(s.Region)
	}
	return retVal
}

// Primitive is one filled (dark) or erasing (clear) polygon in image
// coordinates. Rings are filled by the nonzero winding rule.
type Primitive struct {
	Polygon  polyclip.Polygon
	Polarity PolType
	Source   Source
	BBox     polyclip.Rectangle
}

// Winding is +1 when the outer ring is counter-clockwise, -1 when clockwise
func (p *Primitive) Winding() int {
	if len(p.Polygon) == 0 {
		return 0
	}
	a := SignedArea(p.Polygon[0])
	switch {
	case a > 0:
		return 1
	case a < 0:
		return -1
	}
	return 0
}

// Contains reports whether the point is inside the filled area of the primitive
func (p *Primitive) Contains(pt polyclip.Point) bool {
	if pt.X < p.BBox.Min.X || pt.X > p.BBox.Max.X || pt.Y < p.BBox.Min.Y || pt.Y > p.BBox.Max.Y {
		return false
	}
	w := 0
	for _, c := range p.Polygon {
		w += WindingNumber(c, pt)
	}
	return w != 0
}

// SignedArea of the closed ring (shoelace); positive for counter-clockwise
func SignedArea(c polyclip.Contour) float64 {
	var a float64
	for i := 0; i+1 < len(c); i++ {
		a += c[i].X*c[i+1].Y - c[i+1].X*c[i].Y
	}
	return a / 2
}

// WindingNumber of the closed ring around the point
func WindingNumber(c polyclip.Contour, p polyclip.Point) int {
	w := 0
	for i := 0; i+1 < len(c); i++ {
		a, b := c[i], c[i+1]
		if a.Y <= p.Y {
			if b.Y > p.Y && cross(a, b, p) > 0 {
				w++
			}
		} else if b.Y <= p.Y && cross(a, b, p) < 0 {
			w--
		}
	}
	return w
}

func boundingBox(pol polyclip.Polygon) (polyclip.Rectangle, bool) {
	r := polyclip.Rectangle{
		Min: polyclip.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: polyclip.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	found := false
	for _, c := range pol {
		for _, p := range c {
			r = extend(r, p)
			found = true
		}
	}
	return r, found
}

func extend(r polyclip.Rectangle, p polyclip.Point) polyclip.Rectangle {
	r.Min.X = math.Min(r.Min.X, p.X)
	r.Min.Y = math.Min(r.Min.Y, p.Y)
	r.Max.X = math.Max(r.Max.X, p.X)
	r.Max.Y = math.Max(r.Max.Y, p.Y)
	return r
}

/*
################################## layer ######################################
*/

// Stats of a build
type Stats struct {
	Commands int // commands walked, replays included
	Flashes  int
	Strokes  int
	Regions  int
	Contours int
	Bridged  int // contours closed by a synthetic edge
	Snapped  int // contours closed by snapping the last vertex
	Skipped  int // primitives dropped with a diagnostic
	Vertices int
	Dark     int
	Clear    int
}

func (s Stats) String() string {
	return "commands: " + strconv.Itoa(s.Commands) +
		", flashes: " + strconv.Itoa(s.Flashes) +
		", strokes: " + strconv.Itoa(s.Strokes) +
		", regions: " + strconv.Itoa(s.Regions) +
		" (" + strconv.Itoa(s.Contours) + " contours, " + strconv.Itoa(s.Bridged) + " bridged, " + strconv.Itoa(s.Snapped) + " snapped)" +
		", skipped: " + strconv.Itoa(s.Skipped) +
		", vertices: " + strconv.Itoa(s.Vertices) +
		", dark/clear: " + strconv.Itoa(s.Dark) + "/" + strconv.Itoa(s.Clear)
}

// Layer is the result of a build: the primitives in draw order and their
// bounding box. It is not modified after Build returns.
type Layer struct {
	Primitives  []Primitive
	BBox        polyclip.Rectangle
	Units       Units
	Diagnostics []*BuildError
	Stats       Stats
}

func (l *Layer) IsEmpty() bool {
	return len(l.Primitives) == 0
}

func (l *Layer) add(p Primitive) {
	if len(l.Primitives) == 0 {
		l.BBox = p.BBox
	} else {
		l.BBox = extend(extend(l.BBox, p.BBox.Min), p.BBox.Max)
	}
	l.Primitives = append(l.Primitives, p)
	if p.Polarity == PolTypeClear {
		l.Stats.Clear++
	} else {
		l.Stats.Dark++
	}
}

// HitTest returns the index of the topmost dark primitive under the image
// point. A clear primitive drawn later over the point hides everything below.
func (l *Layer) HitTest(p polyclip.Point) (int, bool) {
	for i := len(l.Primitives) - 1; i >= 0; i-- {
		if !l.Primitives[i].Contains(p) {
			continue
		}
		if l.Primitives[i].Polarity == PolTypeClear {
			return -1, false
		}
		return i, true
	}
	return -1, false
}
