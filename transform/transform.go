// Affine transforms of the image plane.
// A Transform is an immutable homogeneous 3x3 matrix. Composition order
// matters: Compose(outer, inner) applies inner first.
package transform

import (
	"math"

	"github.com/akavel/polyclip-go"
	"github.com/go-gl/mathgl/mgl64"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
)

type Transform struct {
	m mgl64.Mat3
}

func Identity() Transform {
	return Transform{m: mgl64.Ident3()}
}

func Translate(dx, dy float64) Transform {
	return Transform{m: mgl64.Translate2D(dx, dy)}
}

// Scale accepts zero factors; the result maps everything onto a line or a point.
func Scale(sx, sy float64) Transform {
	return Transform{m: mgl64.Scale2D(sx, sy)}
}

// Rotate counter-clockwise by angle radians about the origin
func Rotate(angle float64) Transform {
	return Transform{m: mgl64.HomogRotate2D(angle)}
}

// RotateDeg rotates by a multiple of 90 degrees exactly, any other angle via Rotate.
func RotateDeg(deg float64) Transform {
	switch math.Mod(math.Mod(deg, 360)+360, 360) {
	case 0:
		return Identity()
	case 90:
		return Transform{m: mgl64.Mat3{0, 1, 0, -1, 0, 0, 0, 0, 1}}
	case 180:
		return Transform{m: mgl64.Mat3{-1, 0, 0, 0, -1, 0, 0, 0, 1}}
	case 270:
		return Transform{m: mgl64.Mat3{0, -1, 0, 1, 0, 0, 0, 0, 1}}
	}
	return Rotate(mgl64.DegToRad(deg))
}

func Flip(m Mirror) Transform {
	sx, sy := 1.0, 1.0
	if m.FlipsX() {
		sx = -1
	}
	if m.FlipsY() {
		sy = -1
	}
	return Scale(sx, sy)
}

// SwapAxes exchanges X and Y
func SwapAxes() Transform {
	return Transform{m: mgl64.Mat3{0, 1, 0, 1, 0, 0, 0, 0, 1}}
}

// Compose returns the transform equivalent to applying inner, then outer.
func Compose(outer, inner Transform) Transform {
	return Transform{m: outer.m.Mul3(inner.m)}
}

// Chain composes the transforms so that the first one is applied last:
// Chain(a, b, c) == Compose(a, Compose(b, c)).
func Chain(ts ...Transform) Transform {
	retVal := Identity()
	for _, t := range ts {
		retVal = Compose(retVal, t)
	}
	return retVal
}

func (t Transform) Apply(p polyclip.Point) polyclip.Point {
	v := t.m.Mul3x1(mgl64.Vec3{p.X, p.Y, 1})
	return polyclip.Point{X: v[0], Y: v[1]}
}

// ApplyVector transforms a direction, ignoring translation.
func (t Transform) ApplyVector(p polyclip.Point) polyclip.Point {
	v := t.m.Mul3x1(mgl64.Vec3{p.X, p.Y, 0})
	return polyclip.Point{X: v[0], Y: v[1]}
}

func (t Transform) ApplyContour(c polyclip.Contour) polyclip.Contour {
	retVal := make(polyclip.Contour, len(c))
	for i := range c {
		retVal[i] = t.Apply(c[i])
	}
	return retVal
}

func (t Transform) ApplyPolygon(p polyclip.Polygon) polyclip.Polygon {
	retVal := make(polyclip.Polygon, len(p))
	for i := range p {
		retVal[i] = t.ApplyContour(p[i])
	}
	return retVal
}

// Det is the determinant of the linear part
func (t Transform) Det() float64 {
	return t.m[0]*t.m[4] - t.m[3]*t.m[1]
}

// Mirrored reports an orientation reversing transform; arc sweeps must be flipped.
func (t Transform) Mirrored() bool {
	return t.Det() < 0
}

// Inverse returns false for a singular transform.
func (t Transform) Inverse() (Transform, bool) {
	if t.Det() == 0 {
		return Transform{}, false
	}
	return Transform{m: t.m.Inv()}, true
}

func (t Transform) Matrix() mgl64.Mat3 {
	return t.m
}

func (t Transform) IsIdentity() bool {
	return t.m.ApproxEqual(mgl64.Ident3())
}

// ScaleFactors returns the lengths of the images of the unit X and Y vectors.
func (t Transform) ScaleFactors() (float64, float64) {
	return math.Hypot(t.m[0], t.m[1]), math.Hypot(t.m[3], t.m[4])
}

// IsSimilarity reports that circles stay circles under t.
func (t Transform) IsSimilarity() bool {
	sx, sy := t.ScaleFactors()
	dot := t.m[0]*t.m[3] + t.m[1]*t.m[4]
	tol := 1e-12 * math.Max(1, sx*sy)
	return math.Abs(sx-sy) <= 1e-12*math.Max(1, sx) && math.Abs(dot) <= tol
}
