// Apertures support
package apertures

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/akavel/polyclip-go"

	"github.com/MakerPnP/gerber-viewer/amprocessor"
	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/tessellate"
)

/*
################################### shapes ###################################
*/

// Shape is one of Circle, Rectangle, Obround, Polygon, Macro, Block.
type Shape interface {
	Type() GerberApType
	String() string
}

type Circle struct {
	Diameter float64
}

type Rectangle struct {
	XSize float64
	YSize float64
}

type Obround struct {
	XSize float64
	YSize float64
}

type Polygon struct {
	Diameter float64 // OuterDiameter
	Vertices int
	RotAngle float64 // degrees
}

type Macro struct {
	Name      string
	Modifiers []float64
}

// Block is an aperture defined by an AB block; its body lives in the command stream
type Block struct{}

func (Circle) Type() GerberApType    { return AptypeCircle }
func (Rectangle) Type() GerberApType { return AptypeRectangle }
func (Obround) Type() GerberApType   { return AptypeObround }
func (Polygon) Type() GerberApType   { return AptypePoly }
func (Macro) Type() GerberApType     { return AptypeMacro }
func (Block) Type() GerberApType     { return AptypeBlock }

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s Circle) String() string    { return "C," + ff(s.Diameter) }
func (s Rectangle) String() string { return "R," + ff(s.XSize) + "X" + ff(s.YSize) }
func (s Obround) String() string   { return "O," + ff(s.XSize) + "X" + ff(s.YSize) }
func (s Polygon) String() string {
	return "P," + ff(s.Diameter) + "X" + strconv.Itoa(s.Vertices) + "X" + ff(s.RotAngle)
}
func (s Macro) String() string {
	mods := make([]string, len(s.Modifiers))
	for i := range s.Modifiers {
		mods[i] = ff(s.Modifiers[i])
	}
	if len(mods) == 0 {
		return s.Name
	}
	return s.Name + "," + strings.Join(mods, "X")
}
func (Block) String() string { return "block" }

/*
################################### aperture ###################################
*/

type Aperture struct {
	Code         int
	Shape        Shape
	HoleDiameter float64
}

func (apert *Aperture) GetCode() int {
	return apert.Code
}

func (apert *Aperture) String() string {
	retVal := "D" + strconv.Itoa(apert.Code) + ": " + apert.Shape.Type().String() + " " + apert.Shape.String()
	if apert.HoleDiameter > 0 {
		retVal = retVal + ", hole " + ff(apert.HoleDiameter)
	}
	return retVal
}

// Init fills the aperture from the body of an AD parameter, e.g. "10C,0.5X0.2"
// or "12THERMAL80,1.2X0.8". Values are kept in the image units.
func (apert *Aperture) Init(sourceString string) error {
	sourceString = strings.TrimSpace(sourceString)
	if strings.HasPrefix(sourceString, "D") {
		sourceString = sourceString[1:]
	}
	digits := 0
	for digits < len(sourceString) && sourceString[digits] >= '0' && sourceString[digits] <= '9' {
		digits++
	}
	code, err := strconv.Atoi(sourceString[:digits])
	if err != nil || code < 10 {
		return errors.New("bad aperture number " + sourceString)
	}
	apert.Code = code
	rest := sourceString[digits:]
	name, params := rest, ""
	if commaPos := strings.Index(rest, ","); commaPos != -1 {
		name, params = rest[:commaPos], rest[commaPos+1:]
	}
	var vals []float64
	if params != "" {
		for _, s := range strings.Split(params, "X") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return errors.New("bad aperture parameter " + s)
			}
			vals = append(vals, v)
		}
	}
	hole := func(i int) {
		if len(vals) > i {
			apert.HoleDiameter = vals[i]
		}
	}
	switch name {
	case "C":
		if len(vals) != 1 && len(vals) != 2 {
			return fmt.Errorf("%w: circle aperture", ErrInvalidModifierCount)
		}
		apert.Shape = Circle{vals[0]}
		hole(1)
	case "R", "O":
		if len(vals) != 2 && len(vals) != 3 {
			return fmt.Errorf("%w: rectangle or obround aperture", ErrInvalidModifierCount)
		}
		if name == "R" {
			apert.Shape = Rectangle{vals[0], vals[1]}
		} else {
			apert.Shape = Obround{vals[0], vals[1]}
		}
		hole(2)
	case "P":
		if len(vals) < 2 || len(vals) > 4 {
			return fmt.Errorf("%w: polygon aperture", ErrInvalidModifierCount)
		}
		p := Polygon{Diameter: vals[0], Vertices: int(math.Round(vals[1]))}
		if len(vals) > 2 {
			p.RotAngle = vals[2]
		}
		apert.Shape = p
		hole(3)
	case "":
		return errors.New("aperture template is missing " + sourceString)
	default:
		apert.Shape = Macro{Name: name, Modifiers: vals}
	}
	return nil
}

func NewAperture(code int, shape Shape) *Aperture {
	return &Aperture{Code: code, Shape: shape}
}

/*
################################### table ###################################
*/

// Table is the per-image aperture dictionary. It is built once and then
// only read.
type Table struct {
	apertures map[int]*Aperture
	macros    map[string]*amprocessor.ApertureMacro
}

func NewTable() *Table {
	return &Table{
		apertures: make(map[int]*Aperture),
		macros:    make(map[string]*amprocessor.ApertureMacro),
	}
}

func (t *Table) Define(a *Aperture) error {
	if a == nil || a.Shape == nil {
		return errors.New("aperture without shape")
	}
	if _, ok := t.apertures[a.Code]; ok {
		return errors.New("aperture D" + strconv.Itoa(a.Code) + " is already defined")
	}
	t.apertures[a.Code] = a
	return nil
}

func (t *Table) DefineMacro(m *amprocessor.ApertureMacro) error {
	if _, ok := t.macros[m.Name]; ok {
		return errors.New("aperture macro " + m.Name + " is already defined")
	}
	t.macros[m.Name] = m
	return nil
}

func (t *Table) Lookup(code int) (*Aperture, bool) {
	a, ok := t.apertures[code]
	return a, ok
}

func (t *Table) Macro(name string) (*amprocessor.ApertureMacro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// Codes returns the defined aperture codes in ascending order
func (t *Table) Codes() []int {
	retVal := make([]int, 0, len(t.apertures))
	for k := range t.apertures {
		retVal = append(retVal, k)
	}
	sort.Ints(retVal)
	return retVal
}

func (t *Table) String() string {
	retVal := ""
	for _, c := range t.Codes() {
		retVal = retVal + t.apertures[c].String() + "\n"
	}
	for _, m := range t.macros {
		retVal = retVal + m.String()
	}
	return retVal
}

/*
################################### resolver ###################################
*/

type resolved struct {
	parts []amprocessor.SignedPolygon
	err   error
}

type resolveKey struct {
	code  int
	scale float64
}

// Resolver turns apertures into signed polygons in aperture-local
// coordinates. Results, errors included, are cached per code and
// magnification. It is safe for concurrent use.
type Resolver struct {
	table *Table
	tes   tessellate.Tessellator
	mu    sync.Mutex
	cache map[resolveKey]resolved
}

func NewResolver(table *Table, tes tessellate.Tessellator) *Resolver {
	return &Resolver{table: table, tes: tes, cache: make(map[resolveKey]resolved)}
}

func (r *Resolver) Table() *Table {
	return r.table
}

func (r *Resolver) Resolve(code int) ([]amprocessor.SignedPolygon, error) {
	return r.ResolveScaled(code, 1)
}

// ResolveScaled resolves the aperture for a placement that magnifies it by
// scale. The tessellation is refined so that the error bound holds after
// the placement; scales up to 1 share the unscaled result.
func (r *Resolver) ResolveScaled(code int, scale float64) ([]amprocessor.SignedPolygon, error) {
	if !(scale > 1) || math.IsInf(scale, 1) {
		scale = 1
	}
	key := resolveKey{code: code, scale: scale}
	r.mu.Lock()
	res, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return res.parts, res.err
	}
	tes := r.tes
	tes.MaxError /= scale
	parts, err := r.resolve(code, tes)
	r.mu.Lock()
	r.cache[key] = resolved{parts, err}
	r.mu.Unlock()
	return parts, err
}

func (r *Resolver) resolve(code int, tes tessellate.Tessellator) ([]amprocessor.SignedPolygon, error) {
	apert, ok := r.table.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: D%d", ErrUnknownAperture, code)
	}
	var outer polyclip.Contour
	switch s := apert.Shape.(type) {
	case Circle:
		outer = tes.Circle(polyclip.Point{}, s.Diameter/2)
	case Rectangle:
		outer = polyclip.Contour{
			{X: -s.XSize / 2, Y: -s.YSize / 2},
			{X: s.XSize / 2, Y: -s.YSize / 2},
			{X: s.XSize / 2, Y: s.YSize / 2},
			{X: -s.XSize / 2, Y: s.YSize / 2},
			{X: -s.XSize / 2, Y: -s.YSize / 2},
		}
	case Obround:
		outer = Stadium(tes, polyclip.Point{}, s.XSize, s.YSize)
	case Polygon:
		if s.Vertices < 3 || s.Vertices > 12 {
			return nil, fmt.Errorf("%w: D%d polygon with %d vertices", ErrInvalidModifierCount, code, s.Vertices)
		}
		outer = amprocessor.RegularPolygon(polyclip.Point{}, s.Diameter, s.Vertices, s.RotAngle)
	case Macro:
		m, ok := r.table.Macro(s.Name)
		if !ok {
			return nil, fmt.Errorf("%w: D%d macro %s is not defined", ErrUnknownAperture, code, s.Name)
		}
		parts, err := m.Resolve(tes, s.Modifiers)
		if err != nil {
			return nil, fmt.Errorf("D%d: %w", code, err)
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("%w: D%d %s", ErrUnsupportedApertureKind, code, apert.Shape.Type().String())
	}
	pol := polyclip.Polygon{outer}
	if apert.HoleDiameter > 0 {
		pol = append(pol, amprocessor.Reverse(tes.Circle(polyclip.Point{}, apert.HoleDiameter/2)))
	}
	return []amprocessor.SignedPolygon{{Polygon: pol, Exposure: ExposureOn}}, nil
}

// Stadium returns the closed counter-clockwise obround of the size centered at c
func Stadium(tes tessellate.Tessellator, c polyclip.Point, w, h float64) polyclip.Contour {
	if w == h {
		return tes.Circle(c, w/2)
	}
	var a, b polyclip.Point
	var rad, start float64
	if w > h {
		rad = h / 2
		a = polyclip.Point{X: c.X + (w-h)/2, Y: c.Y}
		b = polyclip.Point{X: c.X - (w-h)/2, Y: c.Y}
		start = -math.Pi / 2
	} else {
		rad = w / 2
		a = polyclip.Point{X: c.X, Y: c.Y + (h-w)/2}
		b = polyclip.Point{X: c.X, Y: c.Y - (h-w)/2}
		start = 0
	}
	retVal := tes.Arc(tessellate.NewArc(a, rad, start, math.Pi))
	retVal = append(retVal, tes.Arc(tessellate.NewArc(b, rad, start+math.Pi, math.Pi))...)
	return append(retVal, retVal[0])
}
