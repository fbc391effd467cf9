package transform

import (
	"strconv"

	"github.com/akavel/polyclip-go"
	"github.com/go-gl/mathgl/mgl64"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
)

/*
############################### render transform ###############################
*/

// RenderTransform is the caller's placement of a layer: rotation and
// mirroring about Origin, uniform Scale, then Offset.
type RenderTransform struct {
	Rotation  float64 // radians, counter-clockwise
	Mirroring Mirror
	Origin    polyclip.Point
	Offset    polyclip.Point
	Scale     float64
}

func NewRenderTransform() RenderTransform {
	return RenderTransform{Scale: 1.0}
}

// Transform returns T(offset)·T(origin)·R·M·S·T(-origin)
func (rt RenderTransform) Transform() Transform {
	return Chain(
		Translate(rt.Offset.X, rt.Offset.Y),
		Translate(rt.Origin.X, rt.Origin.Y),
		Rotate(rt.Rotation),
		Flip(rt.Mirroring),
		Scale(rt.Scale, rt.Scale),
		Translate(-rt.Origin.X, -rt.Origin.Y),
	)
}

/*
############################### image transform ###############################
*/

// ImageTransform is the image level state set by the legacy MI, SF, OF, IR,
// AS and IP parameters, plus the render transform. It is a value; the With*
// methods return modified copies.
type ImageTransform struct {
	mirror   Mirror  // MI, A and B axes
	scaleA   float64 // SF
	scaleB   float64
	offsetA  float64 // OF
	offsetB  float64
	rotation int // IR, degrees: 0, 90, 180 or 270
	axis     AxisSelect
	polarity PolType // IP
	render   RenderTransform
}

func NewImageTransform() ImageTransform {
	return ImageTransform{
		scaleA:   1.0,
		scaleB:   1.0,
		axis:     AxisAXBY,
		polarity: PolTypeDark,
		render:   NewRenderTransform(),
	}
}

func (it ImageTransform) WithMirror(m Mirror) ImageTransform {
	it.mirror = m
	return it
}

func (it ImageTransform) WithScale(a, b float64) ImageTransform {
	it.scaleA, it.scaleB = a, b
	return it
}

func (it ImageTransform) WithOffset(a, b float64) ImageTransform {
	it.offsetA, it.offsetB = a, b
	return it
}

// WithRotation takes IR degrees; anything else than a multiple of 90 is rejected
func (it ImageTransform) WithRotation(deg int) (ImageTransform, bool) {
	if deg%90 != 0 {
		return it, false
	}
	it.rotation = ((deg % 360) + 360) % 360
	return it, true
}

func (it ImageTransform) WithAxis(as AxisSelect) ImageTransform {
	it.axis = as
	return it
}

func (it ImageTransform) WithPolarity(p PolType) ImageTransform {
	it.polarity = p
	return it
}

func (it ImageTransform) WithRender(rt RenderTransform) ImageTransform {
	it.render = rt
	return it
}

func (it ImageTransform) Mirror() Mirror         { return it.mirror }
func (it ImageTransform) Axis() AxisSelect       { return it.axis }
func (it ImageTransform) Polarity() PolType      { return it.polarity }
func (it ImageTransform) Render() RenderTransform { return it.render }

// Negative reports the IP NEG image polarity
func (it ImageTransform) Negative() bool {
	return it.polarity == PolTypeClear
}

// Legacy returns the A/B to X/Y mapping of the legacy parameters:
// R(IR)·AS·T(OF)·S(SF)·M(MI). MI acts first, IR last.
func (it ImageTransform) Legacy() Transform {
	as := Identity()
	if it.axis == AxisAYBX {
		as = SwapAxes()
	}
	return Chain(
		RotateDeg(float64(it.rotation)),
		as,
		Translate(it.offsetA, it.offsetB),
		Scale(it.scaleA, it.scaleB),
		Flip(it.mirror),
	)
}

// Transform is the whole image level: the render transform first, the
// legacy parameters after it.
func (it ImageTransform) Transform() Transform {
	return Compose(it.Legacy(), it.render.Transform())
}

func (it ImageTransform) String() string {
	return "image transform: " + it.mirror.String() +
		", SF A" + strconv.FormatFloat(it.scaleA, 'f', -1, 64) + " B" + strconv.FormatFloat(it.scaleB, 'f', -1, 64) +
		", OF A" + strconv.FormatFloat(it.offsetA, 'f', -1, 64) + " B" + strconv.FormatFloat(it.offsetB, 'f', -1, 64) +
		", IR " + strconv.Itoa(it.rotation) + ", " + it.axis.String() + ", " + it.polarity.String()
}

/*
############################### aperture transform ###############################
*/

// ApertureTransform is the LM/LR/LS state. Mirroring acts first, then
// rotation, then scaling.
type ApertureTransform struct {
	Mirroring Mirror
	Rotation  float64 // degrees, counter-clockwise
	Scale     float64
}

func NewApertureTransform() ApertureTransform {
	return ApertureTransform{Scale: 1.0}
}

func (at ApertureTransform) Transform() Transform {
	return Chain(Scale(at.Scale, at.Scale), RotateDeg(at.Rotation), Flip(at.Mirroring))
}

/*
############################### stack ###############################
*/

// Stack holds the three transform levels. The order of application is
// fixed: aperture-local, then path, then image.
type Stack struct {
	Image    ImageTransform
	Path     Transform // step and repeat copies, block placement
	Aperture ApertureTransform
}

func NewStack() Stack {
	return Stack{Image: NewImageTransform(), Path: Identity(), Aperture: NewApertureTransform()}
}

// PathTransform maps path (region, stroke) coordinates to image space
func (s Stack) PathTransform() Transform {
	return Compose(s.Image.Transform(), s.Path)
}

// FlashTransform maps aperture coordinates of a flash at the point to image space:
// image ∘ path ∘ T(at) ∘ aperture.
func (s Stack) FlashTransform(at polyclip.Point) Transform {
	return Chain(s.Image.Transform(), s.Path, Translate(at.X, at.Y), s.Aperture.Transform())
}

// Placed returns the stack for a body (block, step and repeat copy)
// placed at the point. The aperture-local transform of the stack applies to
// the body as a whole; inside the body it restarts from identity.
func (s Stack) Placed(at polyclip.Point) Stack {
	return Stack{
		Image:    s.Image,
		Path:     Chain(s.Path, Translate(at.X, at.Y), s.Aperture.Transform()),
		Aperture: NewApertureTransform(),
	}
}

// Shifted returns the stack translated by the path offset
func (s Stack) Shifted(dx, dy float64) Stack {
	s.Path = Compose(s.Path, Translate(dx, dy))
	return s
}

// Matrix exposes the composed mgl64 matrix of the path level.
func (s Stack) Matrix() mgl64.Mat3 {
	return s.PathTransform().Matrix()
}
