//Aperture Macros support
package amprocessor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/akavel/polyclip-go"

	"github.com/MakerPnP/gerber-viewer/calculator"
	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/tessellate"
	"github.com/MakerPnP/gerber-viewer/transform"
)

type AMPrimitiveType int

func (amp AMPrimitiveType) String() string {
	var retVal string
	switch amp {
	case AMPrimitive_Comment:
		retVal = "comment"
	case AMPrimitive_Circle:
		retVal = "circle"
	case AMPrimitive_VectLine, AMPrimitive_VectLine2:
		retVal = "vector line"
	case AMPrimitive_CenterLine:
		retVal = "center line"
	case AMPRimitive_OutLine:
		retVal = "outline"
	case AMPrimitive_Polygon:
		retVal = "polygon"
	case AMPrimitive_Moire:
		retVal = "moire"
	case AMPrimitive_Thermal:
		retVal = "thermal"
	default:
		retVal = "unknown"
	}
	return retVal
}

const (
	AMPrimitive_Comment    AMPrimitiveType = 0
	AMPrimitive_Circle     AMPrimitiveType = 1
	AMPrimitive_VectLine2  AMPrimitiveType = 2 // deprecated code of the vector line
	AMPrimitive_VectLine   AMPrimitiveType = 20
	AMPrimitive_CenterLine AMPrimitiveType = 21
	AMPRimitive_OutLine    AMPrimitiveType = 4
	AMPrimitive_Polygon    AMPrimitiveType = 5
	AMPrimitive_Moire      AMPrimitiveType = 6
	AMPrimitive_Thermal    AMPrimitiveType = 7
)

var modifierNames = map[AMPrimitiveType][]string{
	AMPrimitive_Circle:     {"Exposure", "Diameter", "Center X", "Center Y", "Rotation"},
	AMPrimitive_VectLine:   {"Exposure", "Width", "Start X", "Start Y", "End X", "End Y", "Rotation"},
	AMPrimitive_CenterLine: {"Exposure", "Width", "Hight", "Center X", "Center Y", "Rotation"},
	AMPRimitive_OutLine:    {"Exposure", "# vertices", "Start X", "Start Y"},
	AMPrimitive_Polygon:    {"Exposure", "# vertices", "Center X", "Center Y", "Diameter", "Rotation"},
	AMPrimitive_Moire: {"Center X", "Center Y", "Outer diameter rings", "Ring thickness", "Gap", "Max # rings",
		"Crosshair thickness", "Crosshair length", "Rotation"},
	AMPrimitive_Thermal: {"Center X", "Center Y", "Outer diameter", "Inner diameter", "Gap", "Rotation"},
}

/*
********************************************* statements *************************************************
*/

// Statement is either an *AMPrimitive or an AMVariable assignment.
type Statement interface {
	String() string
}

type AMPrimitive struct {
	PrimitiveType AMPrimitiveType
	AMModifiers   []calculator.Expr
}

// NewAMPrimitive parses the modifier expressions of a primitive.
func NewAMPrimitive(amp AMPrimitiveType, modifStrings ...string) (*AMPrimitive, error) {
	if amp == AMPrimitive_VectLine2 {
		amp = AMPrimitive_VectLine
	}
	retVal := &AMPrimitive{PrimitiveType: amp}
	for _, s := range modifStrings {
		e, err := calculator.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%s primitive: %w", amp.String(), err)
		}
		retVal.AMModifiers = append(retVal.AMModifiers, e)
	}
	return retVal, nil
}

func (amp *AMPrimitive) String() string {
	retVal := "Aperture macro primitive:\t"
	retVal = retVal + amp.PrimitiveType.String() + "\n"
	names := modifierNames[amp.PrimitiveType]
	if amp.PrimitiveType == AMPRimitive_OutLine && len(amp.AMModifiers) > 4 {
		numPairs := (len(amp.AMModifiers) - 5) / 2
		for i := 0; i < numPairs; i++ {
			names = append(names, "Vertice "+strconv.Itoa(i)+" X", "Vertice "+strconv.Itoa(i)+" Y")
		}
		names = append(names, "Rotation")
	}
	return retVal + ArrayInfo(amp.AMModifiers, names)
}

// AMVariable is the $n=expression statement
type AMVariable struct {
	Index int
	Value calculator.Expr
}

func (amv AMVariable) String() string {
	return "$" + strconv.Itoa(amv.Index) + "=" + amv.Value.String()
}

/*
********************************************* AM container *************************************************
*/

type ApertureMacro struct {
	Name       string // name from source string
	Comments   []string
	Statements []Statement
}

func (am ApertureMacro) String() string {
	retVal := "\nAperture macro name:\t" + am.Name + "\nComments:\n"
	for i := range am.Comments {
		retVal = retVal + "\t\t" + am.Comments[i] + "\n"
	}
	retVal = retVal + "Statements:\n"
	for i := range am.Statements {
		retVal = retVal + "\t" + am.Statements[i].String() + "\n"
	}
	return retVal
}

// NewApertureMacro parses a whole %AM...*% parameter.
func NewApertureMacro(src string) (*ApertureMacro, error) {
	src = strings.TrimSpace(src)
	if !strings.HasPrefix(src, "%AM") {
		return nil, errors.New("Aperture macro name not found")
	}
	if !strings.HasSuffix(src, "%") {
		return nil, errors.New("Aperture macro trailing % not found")
	}
	src = src[3 : len(src)-1]
	starPos := strings.Index(src, "*")
	if starPos == -1 {
		return nil, errors.New("Aperture macro name not found")
	}
	return ParseMacro(src[:starPos], src[starPos+1:])
}

// ParseMacro parses the '*' separated statements of the macro body
func ParseMacro(name string, body string) (*ApertureMacro, error) {
	retVal := &ApertureMacro{Name: strings.TrimSpace(name)}
	if retVal.Name == "" {
		return nil, errors.New("Aperture macro name is empty")
	}
	for _, s := range strings.Split(body, "*") {
		s = strings.TrimSpace(s)
		if len(s) == 0 {
			continue
		}
		if s == "0" || strings.HasPrefix(s, "0 ") {
			retVal.Comments = append(retVal.Comments, strings.TrimSpace(s[1:]))
			continue
		}
		if strings.HasPrefix(s, "$") {
			eqSignPos := strings.Index(s, "=")
			if eqSignPos == -1 {
				return nil, errors.New("Problem with variable: " + s)
			}
			idx, err := strconv.Atoi(strings.TrimSpace(s[1:eqSignPos]))
			if err != nil || idx < 1 {
				return nil, errors.New("Problem with variable: " + s)
			}
			val, err := calculator.Parse(s[eqSignPos+1:])
			if err != nil {
				return nil, err
			}
			retVal.Statements = append(retVal.Statements, AMVariable{idx, val})
			continue
		}
		fields := strings.Split(s, ",")
		primTypeI, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, errors.New("Bad aperture macro primitive: " + s)
		}
		prim, err := NewAMPrimitive(AMPrimitiveType(primTypeI), fields[1:]...)
		if err != nil {
			return nil, err
		}
		retVal.Statements = append(retVal.Statements, prim)
	}
	return retVal, nil
}

/*
********************************************* resolution *************************************************
*/

// SignedPolygon is one resolved primitive: rings filled by winding, with
// holes as rings of opposite orientation.
type SignedPolygon struct {
	Polygon  polyclip.Polygon
	Exposure Exposure
}

// Resolve evaluates the macro with the modifiers bound to $1..$n and returns
// the primitives in statement order. Coordinates are macro-local.
func (am ApertureMacro) Resolve(tes tessellate.Tessellator, modifiers []float64) ([]SignedPolygon, error) {
	env := make(calculator.Env, len(modifiers))
	for i, m := range modifiers {
		env[i+1] = m
	}
	retVal := make([]SignedPolygon, 0, len(am.Statements))
	for i, st := range am.Statements {
		switch st := st.(type) {
		case AMVariable:
			v, err := st.Value.Eval(env)
			if err != nil {
				return nil, fmt.Errorf("macro %s, statement %d: %w", am.Name, i, err)
			}
			env[st.Index] = v
		case *AMPrimitive:
			polys, err := st.resolve(tes, env)
			if err != nil {
				return nil, fmt.Errorf("macro %s, statement %d: %w", am.Name, i, err)
			}
			retVal = append(retVal, polys...)
		default:
			return nil, fmt.Errorf("macro %s, statement %d: %w", am.Name, i, ErrUnsupportedApertureKind)
		}
	}
	return retVal, nil
}

func (amp *AMPrimitive) eval(env calculator.Env) ([]float64, error) {
	retVal := make([]float64, len(amp.AMModifiers))
	for i := range amp.AMModifiers {
		v, err := amp.AMModifiers[i].Eval(env)
		if err != nil {
			return nil, err
		}
		retVal[i] = v
	}
	return retVal, nil
}

func (amp *AMPrimitive) arityError(want string) error {
	return fmt.Errorf("%w: %s needs %s, got %d", ErrInvalidModifierCount, amp.PrimitiveType.String(), want, len(amp.AMModifiers))
}

func (amp *AMPrimitive) resolve(tes tessellate.Tessellator, env calculator.Env) ([]SignedPolygon, error) {
	n := len(amp.AMModifiers)
	switch amp.PrimitiveType {
	case AMPrimitive_Comment:
		return nil, nil
	case AMPrimitive_Circle:
		if n != 4 && n != 5 {
			return nil, amp.arityError("4 or 5")
		}
	case AMPrimitive_VectLine:
		if n != 7 {
			return nil, amp.arityError("7")
		}
	case AMPrimitive_CenterLine, AMPrimitive_Polygon, AMPrimitive_Thermal:
		if n != 6 {
			return nil, amp.arityError("6")
		}
	case AMPRimitive_OutLine:
		if n < 2 {
			return nil, amp.arityError("2n+5")
		}
	case AMPrimitive_Moire:
		if n != 9 {
			return nil, amp.arityError("9")
		}
	default:
		return nil, fmt.Errorf("%w: macro primitive code %d", ErrUnsupportedApertureKind, int(amp.PrimitiveType))
	}
	m, err := amp.eval(env)
	if err != nil {
		return nil, err
	}
	switch amp.PrimitiveType {
	case AMPrimitive_Circle:
		rot := 0.0
		if n == 5 {
			rot = m[4]
		}
		c := tes.Circle(polyclip.Point{X: m[2], Y: m[3]}, m[1]/2)
		return signed(m[0], rotated(rot, c)), nil
	case AMPrimitive_VectLine:
		c := vectorLine(polyclip.Point{X: m[2], Y: m[3]}, polyclip.Point{X: m[4], Y: m[5]}, m[1])
		if c == nil {
			return nil, nil
		}
		return signed(m[0], rotated(m[6], c)), nil
	case AMPrimitive_CenterLine:
		c := rect(m[3], m[4], m[1], m[2])
		return signed(m[0], rotated(m[5], c)), nil
	case AMPRimitive_OutLine:
		c, err := outline(m)
		if err != nil {
			return nil, amp.arityError(err.Error())
		}
		return signed(m[0], rotated(m[len(m)-1], c)), nil
	case AMPrimitive_Polygon:
		nv := int(math.Round(m[1]))
		if nv < 3 || nv > 12 {
			return nil, fmt.Errorf("%w: polygon with %d vertices", ErrInvalidModifierCount, nv)
		}
		c := RegularPolygon(polyclip.Point{X: m[2], Y: m[3]}, m[4], nv, 0)
		return signed(m[0], rotated(m[5], c)), nil
	case AMPrimitive_Moire:
		return moire(tes, m)
	case AMPrimitive_Thermal:
		return thermal(tes, m), nil
	}
	return nil, nil
}

func signed(exposure float64, pol polyclip.Polygon) []SignedPolygon {
	e := ExposureOn
	if exposure == 0 {
		e = ExposureOff
	}
	return []SignedPolygon{{Polygon: pol, Exposure: e}}
}

// rotated turns the rings about the macro origin, degrees counter-clockwise
func rotated(deg float64, rings ...polyclip.Contour) polyclip.Polygon {
	tr := transform.RotateDeg(deg)
	retVal := make(polyclip.Polygon, 0, len(rings))
	for _, r := range rings {
		retVal = append(retVal, tr.ApplyContour(r))
	}
	return retVal
}

/*
	shape helpers
*/

// rect returns the closed counter-clockwise w x h rectangle centered at (cx, cy)
func rect(cx, cy, w, h float64) polyclip.Contour {
	return polyclip.Contour{
		{X: cx - w/2, Y: cy - h/2},
		{X: cx + w/2, Y: cy - h/2},
		{X: cx + w/2, Y: cy + h/2},
		{X: cx - w/2, Y: cy + h/2},
		{X: cx - w/2, Y: cy - h/2},
	}
}

// vectorLine returns the rectangle of the line with butt ends, nil for a zero length line
func vectorLine(s, e polyclip.Point, width float64) polyclip.Contour {
	l := math.Hypot(e.X-s.X, e.Y-s.Y)
	if l == 0 {
		return nil
	}
	nx, ny := -(e.Y-s.Y)/l*width/2, (e.X-s.X)/l*width/2
	return polyclip.Contour{
		{X: s.X - nx, Y: s.Y - ny},
		{X: e.X - nx, Y: e.Y - ny},
		{X: e.X + nx, Y: e.Y + ny},
		{X: s.X + nx, Y: s.Y + ny},
		{X: s.X - nx, Y: s.Y - ny},
	}
}

func outline(m []float64) (polyclip.Contour, error) {
	nv := int(math.Round(m[1]))
	if nv < 3 || len(m) != 2*nv+5 {
		return nil, errors.New("2n+5 with n=" + strconv.Itoa(nv))
	}
	retVal := make(polyclip.Contour, 0, nv+1)
	for i := 0; i <= nv; i++ {
		retVal = append(retVal, polyclip.Point{X: m[2+2*i], Y: m[3+2*i]})
	}
	if retVal[0] != retVal[nv] {
		retVal = append(retVal, retVal[0])
	}
	return retVal, nil
}

// RegularPolygon returns the closed polygon inscribed in the circle of
// the diameter; the first vertex is at rotation degrees.
func RegularPolygon(center polyclip.Point, diameter float64, vertices int, rotation float64) polyclip.Contour {
	retVal := make(polyclip.Contour, 0, vertices+1)
	step := 2 * math.Pi / float64(vertices)
	start := rotation * math.Pi / 180
	for i := 0; i < vertices; i++ {
		a := start + float64(i)*step
		retVal = append(retVal, polyclip.Point{X: center.X + diameter/2*math.Cos(a), Y: center.Y + diameter/2*math.Sin(a)})
	}
	return append(retVal, retVal[0])
}

// Reverse returns the ring with the opposite orientation
func Reverse(c polyclip.Contour) polyclip.Contour {
	retVal := make(polyclip.Contour, len(c))
	for i := range c {
		retVal[len(c)-1-i] = c[i]
	}
	return retVal
}

// Annulus returns the outer circle and, if inner > 0, the reversed inner circle.
func Annulus(tes tessellate.Tessellator, center polyclip.Point, outer, inner float64) polyclip.Polygon {
	retVal := polyclip.Polygon{tes.Circle(center, outer/2)}
	if inner > 0 {
		retVal = append(retVal, Reverse(tes.Circle(center, inner/2)))
	}
	return retVal
}

// MaxMoireRings bounds the ring count of a moire primitive
const MaxMoireRings = 1000

func moire(tes tessellate.Tessellator, m []float64) ([]SignedPolygon, error) {
	center := polyclip.Point{X: m[0], Y: m[1]}
	outer, thick, gap := m[2], m[3], m[4]
	crossThick, crossLen, rot := m[6], m[7], m[8]
	switch {
	case math.IsNaN(m[5]) || m[5] < 0:
		return nil, fmt.Errorf("%w: moire with %v rings", ErrInvalidModifierCount, m[5])
	case m[5] > MaxMoireRings:
		return nil, fmt.Errorf("%w: moire with %v rings, limit %d", ErrResourceLimitExceeded, m[5], MaxMoireRings)
	}
	maxRings := int(math.Round(m[5]))
	var retVal []SignedPolygon
	for k := 0; k < maxRings; k++ {
		d := outer - 2*float64(k)*(thick+gap)
		if d <= 0 {
			break
		}
		ring := Annulus(tes, center, d, d-2*thick)
		retVal = append(retVal, SignedPolygon{Polygon: rotated(rot, ring...), Exposure: ExposureOn})
	}
	if crossThick > 0 && crossLen > 0 {
		retVal = append(retVal,
			SignedPolygon{Polygon: rotated(rot, rect(center.X, center.Y, crossLen, crossThick)), Exposure: ExposureOn},
			SignedPolygon{Polygon: rotated(rot, rect(center.X, center.Y, crossThick, crossLen)), Exposure: ExposureOn})
	}
	return retVal, nil
}

// thermal returns the four pieces of the ring between the inner and the outer
// diameter cut by a cross of the gap width.
func thermal(tes tessellate.Tessellator, m []float64) []SignedPolygon {
	center := polyclip.Point{X: m[0], Y: m[1]}
	ro, ri, h := m[2]/2, m[3]/2, m[4]/2
	rot := m[5]
	if ro <= 0 || ro <= ri || 2*h*h >= ro*ro {
		return nil
	}
	// first quadrant piece about the origin
	xo := math.Sqrt(ro*ro - h*h)
	a0 := math.Atan2(h, xo)
	piece := tes.Arc(tessellate.Arc{
		Center: polyclip.Point{}, Radius: ro, Start: a0, Sweep: math.Pi/2 - 2*a0,
		From: polyclip.Point{X: xo, Y: h}, To: polyclip.Point{X: h, Y: xo},
	})
	if h < ri && 2*h*h < ri*ri {
		xi := math.Sqrt(ri*ri - h*h)
		b0 := math.Atan2(xi, h)
		inner := tes.Arc(tessellate.Arc{
			Center: polyclip.Point{}, Radius: ri, Start: b0, Sweep: -(math.Pi/2 - 2*math.Atan2(h, xi)),
			From: polyclip.Point{X: h, Y: xi}, To: polyclip.Point{X: xi, Y: h},
		})
		piece = append(piece, inner...)
	} else {
		piece = append(piece, polyclip.Point{X: h, Y: h})
	}
	piece = append(piece, piece[0])

	retVal := make([]SignedPolygon, 0, 4)
	for q := 0; q < 4; q++ {
		tr := transform.Chain(transform.RotateDeg(rot), transform.Translate(center.X, center.Y), transform.RotateDeg(float64(90*q)))
		retVal = append(retVal, SignedPolygon{Polygon: polyclip.Polygon{tr.ApplyContour(piece)}, Exposure: ExposureOn})
	}
	return retVal
}

/*
	auxiliary functions
*/

func ArrayInfo(inArray []calculator.Expr, itemNames []string) string {

	// each step constructs the sub-string
	// \t%itemname% = %itemValue%\n
	retVal := ""

	var limIn int = len(inArray)
	var limIt int = len(itemNames)
	var i int = 0

	for i < limIn || i < limIt {
		subStr1 := "\t"
		if i < limIt {
			subStr1 = subStr1 + itemNames[i]
		} else {
			subStr1 = subStr1 + "<unnamed>"
		}

		subStr2 := " = "
		if i < limIn {
			subStr2 = subStr2 + inArray[i].String() + "\n"
		} else {
			subStr2 = subStr2 + "<empty>\n"
		}
		retVal = retVal + subStr1 + subStr2
		i++
	}
	return retVal
}
