// Mapping between image coordinates and a screen or widget coordinate system.
package viewport

import (
	"math"
	"strconv"

	"github.com/akavel/polyclip-go"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/render"
	"github.com/MakerPnP/gerber-viewer/transform"
)

const DefaultZoomFactor = 0.9

// Viewport maps image points to the screen:
// screen = Pan + F·R(Rotation)·Zoom·(p - Bounds.Min), where F negates Y when
// FlipY is set (Y-down surfaces). It is a plain value owned by the caller.
type Viewport struct {
	Pan      polyclip.Point // screen units
	Zoom     float64        // screen units per image unit
	Rotation float64        // radians, counter-clockwise in image space
	Bounds   polyclip.Rectangle
	FlipY    bool
}

// New returns the identity view of the bounds
func New(bounds polyclip.Rectangle, flipY bool) Viewport {
	return Viewport{Zoom: 1, Bounds: bounds, FlipY: flipY}
}

func (v Viewport) String() string {
	ff := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	return "viewport: pan (" + ff(v.Pan.X) + ", " + ff(v.Pan.Y) + "), zoom " + ff(v.Zoom) +
		", rotation " + ff(mgl64.RadToDeg(v.Rotation)) + " deg, flip Y " + strconv.FormatBool(v.FlipY)
}

// ToScreen maps an image point to the screen
func (v Viewport) ToScreen(p polyclip.Point) polyclip.Point {
	x := (p.X - v.Bounds.Min.X) * v.Zoom
	y := (p.Y - v.Bounds.Min.Y) * v.Zoom
	sin, cos := math.Sincos(v.Rotation)
	x, y = x*cos-y*sin, x*sin+y*cos
	if v.FlipY {
		y = -y
	}
	return polyclip.Point{X: x + v.Pan.X, Y: y + v.Pan.Y}
}

// ToImage is the inverse of ToScreen. A zero zoom maps every screen
// point onto Bounds.Min.
func (v Viewport) ToImage(s polyclip.Point) polyclip.Point {
	if v.Zoom == 0 {
		return v.Bounds.Min
	}
	x := s.X - v.Pan.X
	y := s.Y - v.Pan.Y
	if v.FlipY {
		y = -y
	}
	sin, cos := math.Sincos(v.Rotation)
	x, y = x*cos+y*sin, -x*sin+y*cos
	return polyclip.Point{X: x/v.Zoom + v.Bounds.Min.X, Y: y/v.Zoom + v.Bounds.Min.Y}
}

// GerberToScreen maps the image point with the explicit viewport
func GerberToScreen(v Viewport, p polyclip.Point) polyclip.Point {
	return v.ToScreen(p)
}

// ScreenToGerber maps the screen point back to image coordinates
func ScreenToGerber(v Viewport, s polyclip.Point) polyclip.Point {
	return v.ToImage(s)
}

// Transform returns the view as a matrix, for backends that take one
func (v Viewport) Transform() transform.Transform {
	flip := NoMirror
	if v.FlipY {
		flip = MirrorY
	}
	return transform.Chain(
		transform.Translate(v.Pan.X, v.Pan.Y),
		transform.Flip(flip),
		transform.Rotate(v.Rotation),
		transform.Scale(v.Zoom, v.Zoom),
		transform.Translate(-v.Bounds.Min.X, -v.Bounds.Min.Y),
	)
}

func (v Viewport) Matrix() mgl64.Mat3 {
	return v.Transform().Matrix()
}

/*
################################ view helpers ################################
*/

// Fit returns the view that shows the bounds centered in a width x height
// screen area. zoomFactor < 1 leaves a margin.
func Fit(bounds polyclip.Rectangle, width, height, zoomFactor float64, flipY bool) Viewport {
	v := New(bounds, flipY)
	bw := bounds.Max.X - bounds.Min.X
	bh := bounds.Max.Y - bounds.Min.Y
	switch {
	case bw > 0 && bh > 0:
		v.Zoom = math.Min(width/bw, height/bh) * zoomFactor
	case bw > 0:
		v.Zoom = width / bw * zoomFactor
	case bh > 0:
		v.Zoom = height / bh * zoomFactor
	}
	center := polyclip.Point{X: (bounds.Min.X + bounds.Max.X) / 2, Y: (bounds.Min.Y + bounds.Max.Y) / 2}
	v = v.centerOn(center, polyclip.Point{X: width / 2, Y: height / 2})
	return v
}

// centerOn pans the view so that the image point lands on the screen point
func (v Viewport) centerOn(p, s polyclip.Point) Viewport {
	v.Pan = polyclip.Point{}
	at := v.ToScreen(p)
	v.Pan = polyclip.Point{X: s.X - at.X, Y: s.Y - at.Y}
	return v
}

// ZoomAt scales the zoom by factor keeping the image point under the
// screen point fixed, the way a scroll-wheel zoom does.
func (v Viewport) ZoomAt(s polyclip.Point, factor float64) Viewport {
	if factor <= 0 || v.Zoom == 0 {
		return v
	}
	p := v.ToImage(s)
	v.Zoom *= factor
	return v.centerOn(p, s)
}

// PanBy moves the view by a screen vector
func (v Viewport) PanBy(dx, dy float64) Viewport {
	v.Pan.X += dx
	v.Pan.Y += dy
	return v
}

// RotateBy turns the view about the screen point
func (v Viewport) RotateBy(s polyclip.Point, angle float64) Viewport {
	p := v.ToImage(s)
	v.Rotation += angle
	return v.centerOn(p, s)
}

// TransformedBounds returns the axis aligned box of the transformed
// corners of the rectangle.
func TransformedBounds(r polyclip.Rectangle, tr transform.Transform) polyclip.Rectangle {
	corners := [4]polyclip.Point{
		r.Min, {X: r.Max.X, Y: r.Min.Y}, r.Max, {X: r.Min.X, Y: r.Max.Y},
	}
	retVal := polyclip.Rectangle{
		Min: polyclip.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: polyclip.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, c := range corners {
		p := tr.Apply(c)
		retVal.Min.X = math.Min(retVal.Min.X, p.X)
		retVal.Min.Y = math.Min(retVal.Min.Y, p.Y)
		retVal.Max.X = math.Max(retVal.Max.X, p.X)
		retVal.Max.Y = math.Max(retVal.Max.Y, p.Y)
	}
	return retVal
}

/*
################################ screen primitives ################################
*/

// Style of the mapped primitives
type Style struct {
	Dark              colorful.Color
	Clear             colorful.Color
	UniqueShapeColors bool
}

func DefaultStyle() Style {
	return Style{
		Dark:  colorful.Color{R: 0.85, G: 0.65, B: 0.13},
		Clear: colorful.Color{R: 0, G: 0, B: 0},
	}
}

// ScreenPrimitive is a primitive in screen coordinates, ready to be painted
// in slice order.
type ScreenPrimitive struct {
	Rings    [][]polyclip.Point
	Polarity PolType
	Color    colorful.Color
	Index    int // index in the layer
}

// ShapeColor returns a pastel colour for the shape index. Neighbouring
// indices get well separated hues.
func ShapeColor(index int) colorful.Color {
	const goldenAngle = 137.50776405
	hue := math.Mod(float64(index)*goldenAngle, 360)
	return colorful.Hsl(hue, 0.65, 0.75).Clamped()
}

// MapLayer maps every primitive of the layer to the screen. The layer is
// only read, so concurrent calls on the same layer are safe.
func MapLayer(layer *render.Layer, v Viewport, style Style) []ScreenPrimitive {
	retVal := make([]ScreenPrimitive, 0, len(layer.Primitives))
	for i := range layer.Primitives {
		p := &layer.Primitives[i]
		sp := ScreenPrimitive{Polarity: p.Polarity, Index: i, Rings: make([][]polyclip.Point, 0, len(p.Polygon))}
		switch {
		case p.Polarity == PolTypeClear:
			sp.Color = style.Clear
		case style.UniqueShapeColors:
			sp.Color = ShapeColor(i)
		default:
			sp.Color = style.Dark
		}
		for _, c := range p.Polygon {
			ring := make([]polyclip.Point, len(c))
			for k, pt := range c {
				ring[k] = v.ToScreen(pt)
			}
			sp.Rings = append(sp.Rings, ring)
		}
		retVal = append(retVal, sp)
	}
	return retVal
}
