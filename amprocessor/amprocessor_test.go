package amprocessor

import (
	"errors"
	"math"
	"testing"

	"github.com/akavel/polyclip-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/tessellate"
)

var tes = tessellate.ForResolution(1e-4)

func bbox(p polyclip.Polygon) polyclip.Rectangle {
	bb := p[0].BoundingBox()
	for _, c := range p[1:] {
		b := c.BoundingBox()
		bb.Min.X = math.Min(bb.Min.X, b.Min.X)
		bb.Min.Y = math.Min(bb.Min.Y, b.Min.Y)
		bb.Max.X = math.Max(bb.Max.X, b.Max.X)
		bb.Max.Y = math.Max(bb.Max.Y, b.Max.Y)
	}
	return bb
}

func TestNewApertureMacro(t *testing.T) {
	am, err := NewApertureMacro("%AMDONUTCAL*0 donut with calculated hole*$3=$1x0.5*1,1,$1,0,0*1,0,$3,0,0*%")
	require.NoError(t, err)
	assert.Equal(t, "DONUTCAL", am.Name)
	assert.Equal(t, []string{"donut with calculated hole"}, am.Comments)
	require.Len(t, am.Statements, 3)
	t.Log(am.String())

	res, err := am.Resolve(tes, []float64{2})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, ExposureOn, res[0].Exposure)
	assert.Equal(t, ExposureOff, res[1].Exposure)
	assert.InDelta(t, 1, bbox(res[0].Polygon).Max.X, 1e-12)
	assert.InDelta(t, 0.5, bbox(res[1].Polygon).Max.X, 1e-12)

	_, err = NewApertureMacro("AMX*1,1,1,0,0*%")
	assert.Error(t, err)
	_, err = NewApertureMacro("%AMX*1,1,1,0,0*")
	assert.Error(t, err)
	_, err = NewApertureMacro("%AMX*$=2*%")
	assert.Error(t, err)
}

func TestResolve_Errors(t *testing.T) {
	cases := []struct {
		body string
		mods []float64
		err  error
	}{
		{"1,1,1.5*", nil, ErrInvalidModifierCount},
		{"20,1,0.2,0,0,1,1*", nil, ErrInvalidModifierCount},
		{"21,1,1,1,0,0*", nil, ErrInvalidModifierCount},
		{"4,1,3,0,0,1,0,1,1*", nil, ErrInvalidModifierCount},
		{"4,1,2,0,0,1,0,0,0,0*", nil, ErrInvalidModifierCount},
		{"4,1,1,0,0,1,0,0*", nil, ErrInvalidModifierCount},
		{"5,1,13,0,0,1,0*", nil, ErrInvalidModifierCount},
		{"6,0,0,1,0.1,0.1,3,0.01,1.2*", nil, ErrInvalidModifierCount},
		{"6,0,0,1,0.1,0.1,$1,0.05,1,0*", []float64{-5}, ErrInvalidModifierCount},
		{"6,0,0,1,0.1,0.1,$1,0.05,1,0*", []float64{math.NaN()}, ErrInvalidModifierCount},
		{"6,0,0,1,0.1,0.1,$1,0.05,1,0*", []float64{1e19}, ErrResourceLimitExceeded},
		{"6,0,0,1,0.0,0.0,$1,0.05,1,0*", []float64{MaxMoireRings + 1}, ErrResourceLimitExceeded},
		{"9,1,2,3*", nil, ErrUnsupportedApertureKind},
		{"1,1,$1,0,0*", nil, ErrUnboundVariable},
		{"1,1,$2,0,0*", []float64{1}, ErrUnboundVariable},
	}
	for _, c := range cases {
		am, err := ParseMacro("M", c.body)
		require.NoError(t, err, c.body)
		_, err = am.Resolve(tes, c.mods)
		if !errors.Is(err, c.err) {
			t.Fatal(c.body + ": expected " + c.err.Error() + ", got " + errString(err))
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "no error"
	}
	return err.Error()
}

func TestResolve_Primitives(t *testing.T) {
	am, err := ParseMacro("ALL", `
0 one of each*
20,1,0.2,0,0,2,0,0*
2,1,0.2,0,0,0,2,0*
21,1,2,1,0,0,90*
4,1,3,0,0,1,0,1,1,0,0,0*
5,1,6,0,0,2,0*
`)
	require.NoError(t, err)
	res, err := am.Resolve(tes, nil)
	require.NoError(t, err)
	require.Len(t, res, 5)

	// vector line along X
	bb := bbox(res[0].Polygon)
	assert.InDelta(t, 0, bb.Min.X, 1e-12)
	assert.InDelta(t, 2, bb.Max.X, 1e-12)
	assert.InDelta(t, 0.1, bb.Max.Y, 1e-12)
	// code 2 is the vector line too
	bb = bbox(res[1].Polygon)
	assert.InDelta(t, 2, bb.Max.Y, 1e-12)
	// center line rotated by 90
	bb = bbox(res[2].Polygon)
	assert.InDelta(t, 0.5, bb.Max.X, 1e-12)
	assert.InDelta(t, 1, bb.Max.Y, 1e-12)
	// outline keeps its vertices and is closed
	ol := res[3].Polygon[0]
	assert.Len(t, ol, 4)
	assert.Equal(t, ol[0], ol[len(ol)-1])
	// hexagon, first vertex on the X axis
	hex := res[4].Polygon[0]
	assert.Len(t, hex, 7)
	assert.InDelta(t, 1, hex[0].X, 1e-12)
	assert.InDelta(t, 0, hex[0].Y, 1e-12)
}

func TestResolve_Thermal(t *testing.T) {
	am, err := ParseMacro("THERMAL", "7,0,0,1,0.6,0.1,0*")
	require.NoError(t, err)
	res, err := am.Resolve(tes, nil)
	require.NoError(t, err)
	require.Len(t, res, 4)
	for q, sp := range res {
		assert.Equal(t, ExposureOn, sp.Exposure)
		c := sp.Polygon[0]
		assert.Equal(t, c[0], c[len(c)-1])
		for _, p := range c {
			r := math.Hypot(p.X, p.Y)
			assert.LessOrEqual(t, r, 0.5+1e-9)
			assert.GreaterOrEqual(t, r, 0.3-1e-4)
			// every point stays out of the gap cross
			assert.GreaterOrEqual(t, math.Abs(p.X), 0.05-1e-9, "quadrant %d", q)
			assert.GreaterOrEqual(t, math.Abs(p.Y), 0.05-1e-9, "quadrant %d", q)
		}
	}
	// first piece is in the first quadrant
	bb := bbox(res[0].Polygon)
	assert.Greater(t, bb.Min.X, 0.0)
	assert.Greater(t, bb.Min.Y, 0.0)
}

func TestResolve_Moire(t *testing.T) {
	am, err := ParseMacro("MOIRE", "6,0,0,1,0.1,0.1,3,0.01,1.2,0*")
	require.NoError(t, err)
	res, err := am.Resolve(tes, nil)
	require.NoError(t, err)
	// three rings and two crosshair bars
	require.Len(t, res, 5)
	assert.Len(t, res[0].Polygon, 2, "ring has a hole")
	bb := bbox(res[3].Polygon)
	assert.InDelta(t, 0.6, bb.Max.X, 1e-12)
}

func TestRegularPolygon(t *testing.T) {
	sq := RegularPolygon(polyclip.Point{X: 1, Y: 1}, 2, 4, 45)
	require.Len(t, sq, 5)
	assert.InDelta(t, 1+math.Sqrt2/2, sq[0].X, 1e-12)
	assert.Equal(t, sq[0], sq[4])
	rev := Reverse(sq)
	assert.Equal(t, sq[0], rev[4])
	assert.Equal(t, sq[1], rev[3])
}
