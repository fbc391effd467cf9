// Arc and circle tessellation under a sagitta (chord-to-arc deviation) bound.
package tessellate

import (
	"math"

	"github.com/akavel/polyclip-go"
	"github.com/go-gl/mathgl/mgl64"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/transform"
	"github.com/MakerPnP/gerber-viewer/xy"
)

const (
	DefaultRadiusFraction = 0.001
	DefaultMinSegments    = 3
	fullCircle            = 2 * math.Pi
)

// Tessellator chooses the number of chords of an arc so that the maximum
// deviation stays below max(MaxError, radius*RadiusFraction).
type Tessellator struct {
	MaxError       float64
	RadiusFraction float64
	MinSegments    int
}

// ForResolution returns the default tessellator of an image whose
// least significant digit is res.
func ForResolution(res float64) Tessellator {
	return Tessellator{MaxError: res, RadiusFraction: DefaultRadiusFraction, MinSegments: DefaultMinSegments}
}

// ErrorBound returns the allowed deviation for the radius
func (t Tessellator) ErrorBound(radius float64) float64 {
	return math.Max(t.MaxError, math.Abs(radius)*t.RadiusFraction)
}

// Segments returns the number of chords for the sweep, 0 for an empty sweep
// or a zero radius.
func (t Tessellator) Segments(radius, sweep float64) int {
	absSweep := math.Abs(sweep)
	if absSweep == 0 || radius <= 0 {
		return 0
	}
	eps := t.ErrorBound(radius)
	var step float64
	if eps <= 0 {
		step = math.Pi / 4
	} else {
		step = 2 * math.Acos(math.Max(-1, 1-eps/radius))
	}
	if step <= 0 || math.IsNaN(step) {
		step = math.Pi / 4
	}
	n := int(math.Ceil(absSweep / step))
	minSeg := t.MinSegments
	if minSeg < 1 {
		minSeg = DefaultMinSegments
	}
	if n < minSeg {
		n = minSeg
	}
	return n
}

/*
####################################### arcs #######################################
*/

// Arc is a circular arc. Sweep is signed, positive is counter-clockwise.
// From and To are the exact end points.
type Arc struct {
	Center polyclip.Point
	Radius float64
	Start  float64 // angle of From, radians
	Sweep  float64
	From   polyclip.Point
	To     polyclip.Point
}

// NewArc builds the arc from the center, radius and angles.
func NewArc(center polyclip.Point, radius, start, sweep float64) Arc {
	return Arc{
		Center: center,
		Radius: radius,
		Start:  start,
		Sweep:  sweep,
		From:   pointAt(center, radius, start),
		To:     pointAt(center, radius, start+sweep),
	}
}

func (a Arc) IsFullCircle() bool {
	return math.Abs(a.Sweep) >= fullCircle
}

// Clockwise of the sweep
func (a Arc) Clockwise() bool {
	return a.Sweep < 0
}

func pointAt(c polyclip.Point, r, angle float64) polyclip.Point {
	return polyclip.Point{X: c.X + r*math.Cos(angle), Y: c.Y + r*math.Sin(angle)}
}

// Arc returns the chain of points from a.From to a.To. A full circle is
// returned closed, the last point is an exact copy of the first one.
// A zero radius arc collapses to one point.
func (t Tessellator) Arc(a Arc) polyclip.Contour {
	if a.Radius <= 0 {
		return polyclip.Contour{a.From}
	}
	n := t.Segments(a.Radius, a.Sweep)
	if n == 0 {
		return polyclip.Contour{a.From}
	}
	full := a.IsFullCircle()
	sweep := a.Sweep
	if full {
		sweep = math.Copysign(fullCircle, a.Sweep)
	}
	retVal := make(polyclip.Contour, 0, n+1)
	retVal = append(retVal, a.From)
	dt := sweep / float64(n)
	for i := 1; i < n; i++ {
		retVal = append(retVal, pointAt(a.Center, a.Radius, a.Start+float64(i)*dt))
	}
	if full {
		retVal = append(retVal, retVal[0])
	} else {
		retVal = append(retVal, a.To)
	}
	return retVal
}

// Circle returns a closed counter-clockwise contour starting at angle 0.
func (t Tessellator) Circle(center polyclip.Point, radius float64) polyclip.Contour {
	return t.Arc(NewArc(center, radius, 0, fullCircle))
}

// Transformed returns the arc mapped by a similarity transform. A mirroring
// transform reverses the sweep. ok is false when tr does not keep circles.
func (a Arc) Transformed(tr transform.Transform) (Arc, bool) {
	if !tr.IsSimilarity() {
		return a, false
	}
	s, _ := tr.ScaleFactors()
	dir := tr.ApplyVector(polyclip.Point{X: math.Cos(a.Start), Y: math.Sin(a.Start)})
	sweep := a.Sweep
	if tr.Mirrored() {
		sweep = -sweep
	}
	return Arc{
		Center: tr.Apply(a.Center),
		Radius: a.Radius * s,
		Start:  math.Atan2(dir.Y, dir.X),
		Sweep:  sweep,
		From:   tr.Apply(a.From),
		To:     tr.Apply(a.To),
	}, true
}

// ArcUnder tessellates the arc in the target space of tr, so that the error
// bound holds after the transform. Non-similar transforms tessellate locally
// and map the points.
func (t Tessellator) ArcUnder(tr transform.Transform, a Arc) polyclip.Contour {
	if ta, ok := a.Transformed(tr); ok {
		return t.Arc(ta)
	}
	sx, sy := tr.ScaleFactors()
	local := t
	if k := math.Max(sx, sy); k > 0 {
		local.MaxError = t.MaxError / k
	}
	return tr.ApplyContour(local.Arc(a))
}

/*
################################ arcs from Gerber words ################################
*/

// ArcFromEndpoints builds the arc of a G02/G03 operation. offset is the I/J
// center offset from start. In single quadrant mode the offset is unsigned
// and the signs are chosen so that the sweep does not exceed 90 degrees.
// In multi quadrant mode start == end is a full circle.
func ArcFromEndpoints(start, end, offset polyclip.Point, dir IPmode, quad QuadMode) Arc {
	if quad == QuadModeSingle {
		return singleQuadrantArc(start, end, offset, dir)
	}
	center := polyclip.Point{X: start.X + offset.X, Y: start.Y + offset.Y}
	r := xy.Distance(start, center)
	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	var sweep float64
	if start == end {
		sweep = fullCircle
	} else {
		a1 := math.Atan2(end.Y-center.Y, end.X-center.X)
		sweep = positiveAngle(a1 - a0)
	}
	if dir == IPModeCwC {
		sweep = -positiveAngle(-sweep)
		if start == end {
			sweep = -fullCircle
		}
	}
	return Arc{Center: center, Radius: r, Start: a0, Sweep: sweep, From: start, To: end}
}

func singleQuadrantArc(start, end, offset polyclip.Point, dir IPmode) Arc {
	i, j := math.Abs(offset.X), math.Abs(offset.Y)
	var best Arc
	bestMismatch := math.Inf(1)
	for _, sgn := range [4][2]float64{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}} {
		center := polyclip.Point{X: start.X + sgn[0]*i, Y: start.Y + sgn[1]*j}
		r := xy.Distance(start, center)
		a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
		a1 := math.Atan2(end.Y-center.Y, end.X-center.X)
		sweep := positiveAngle(a1 - a0)
		if dir == IPModeCwC {
			sweep = -positiveAngle(a0 - a1)
		}
		if start == end {
			sweep = 0
		}
		if math.Abs(sweep) > math.Pi/2+1e-9 {
			continue
		}
		mismatch := math.Abs(r - xy.Distance(end, center))
		if mismatch < bestMismatch {
			bestMismatch = mismatch
			best = Arc{Center: center, Radius: r, Start: a0, Sweep: sweep, From: start, To: end}
		}
	}
	if math.IsInf(bestMismatch, 1) {
		// no candidate within one quadrant, take the offset as given
		return ArcFromEndpoints(start, end, offset, dir, QuadModeMulti)
	}
	return best
}

// positiveAngle folds the angle into (0, 2π]
func positiveAngle(a float64) float64 {
	a = math.Mod(a, fullCircle)
	if a <= 0 {
		a += fullCircle
	}
	return a
}

// Deg returns the sweep in degrees, for diagnostics
func (a Arc) Deg() float64 {
	return mgl64.RadToDeg(a.Sweep)
}
