package render

import (
	"errors"
	"flag"
	"math"
	"os"
	"testing"

	"github.com/akavel/polyclip-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MakerPnP/gerber-viewer/amprocessor"
	"github.com/MakerPnP/gerber-viewer/apertures"
	"github.com/MakerPnP/gerber-viewer/commands"
	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/regions"
	"github.com/MakerPnP/gerber-viewer/tessellate"
	"github.com/MakerPnP/gerber-viewer/transform"
	"github.com/MakerPnP/gerber-viewer/xy"
)

func TestMain(m *testing.M) {
	flag.Set("stderrthreshold", "ERROR")
	flag.Set("alsologtostderr", "true")
	flag.Set("logtostderr", "true")

	flag.Parse()
	os.Exit(m.Run())
}

var testFormat = xy.NewFormatSpec(UnitsMM, 3, 3)

func at(x, y float64) xy.XY {
	return xy.At(testFormat.Encode(x), testFormat.Encode(y))
}

func move(x, y float64) commands.Command {
	return commands.Operation{Action: OpcodeD02_MOVE, Coord: at(x, y)}
}

func line(x, y float64) commands.Command {
	return commands.Operation{Action: OpcodeD01_DRAW, Coord: at(x, y)}
}

func flash(x, y float64) commands.Command {
	return commands.Operation{Action: OpcodeD03_FLASH, Coord: at(x, y)}
}

func arc(x, y, i, j float64) commands.Command {
	return commands.Operation{Action: OpcodeD01_DRAW, Coord: xy.AtArc(
		testFormat.Encode(x), testFormat.Encode(y), testFormat.Encode(i), testFormat.Encode(j))}
}

func testTable(t *testing.T) *apertures.Table {
	tbl := apertures.NewTable()
	require.NoError(t, tbl.Define(apertures.NewAperture(10, apertures.Circle{Diameter: 1})))
	require.NoError(t, tbl.Define(apertures.NewAperture(11, apertures.Rectangle{XSize: 1, YSize: 1})))
	require.NoError(t, tbl.Define(apertures.NewAperture(12, apertures.Obround{XSize: 2, YSize: 1})))
	return tbl
}

func build(t *testing.T, opts Options, cmds ...commands.Command) *Layer {
	layer, err := Build(commands.NewImage(testFormat, testTable(t), cmds...), opts)
	require.NoError(t, err)
	return layer
}

func rect(x0, y0, x1, y1 float64) polyclip.Rectangle {
	return polyclip.Rectangle{Min: polyclip.Point{X: x0, Y: y0}, Max: polyclip.Point{X: x1, Y: y1}}
}

func assertRect(t *testing.T, want, got polyclip.Rectangle, delta float64) {
	t.Helper()
	assert.InDelta(t, want.Min.X, got.Min.X, delta, "min x")
	assert.InDelta(t, want.Min.Y, got.Min.Y, delta, "min y")
	assert.InDelta(t, want.Max.X, got.Max.X, delta, "max x")
	assert.InDelta(t, want.Max.Y, got.Max.Y, delta, "max y")
}

func TestBuild_RegionBoundingBox(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.RegionBegin{},
		move(2, 3), line(7, 3), line(7, 7), line(2, 7), line(2, 3),
		commands.RegionEnd{},
		commands.EndOfFile{},
	)
	require.Len(t, layer.Primitives, 1)
	p := layer.Primitives[0]
	assert.Equal(t, PolTypeDark, p.Polarity)
	assert.Equal(t, SourceRegion, p.Source.Kind)
	assert.Equal(t, 1, p.Source.Region)
	assert.Equal(t, 1, p.Winding())
	assert.Equal(t, rect(2, 3, 7, 7), layer.BBox)
	assert.Equal(t, rect(2, 3, 7, 7), p.BBox)
	assert.Empty(t, layer.Diagnostics)
	assert.Equal(t, UnitsMM, layer.Units)
}

func TestBuild_EasyEDAContour(t *testing.T) {
	unclosed := build(t, DefaultOptions(),
		commands.RegionBegin{},
		move(0, 5), line(0, 10), line(10, 10), line(10, 0), line(0, 0), line(0, 5),
		commands.RegionEnd{},
	)
	closed := build(t, DefaultOptions(),
		commands.RegionBegin{},
		move(0, 0), line(0, 10), line(10, 10), line(10, 0), line(0, 0),
		commands.RegionEnd{},
	)
	require.Len(t, unclosed.Primitives, 1)
	assert.Equal(t, closed.BBox, unclosed.BBox)
	assert.Equal(t, rect(0, 0, 10, 10), unclosed.BBox)
	assert.Zero(t, unclosed.Stats.Bridged)
	assert.Zero(t, unclosed.Stats.Snapped)
	assert.InDelta(t, math.Abs(SignedArea(closed.Primitives[0].Polygon[0])),
		math.Abs(SignedArea(unclosed.Primitives[0].Polygon[0])), 1e-9)
}

func TestBuild_ClosePolicy(t *testing.T) {
	cmds := []commands.Command{
		commands.RegionBegin{},
		move(0, 0), line(10, 0), line(10, 10), line(0, 10),
		commands.RegionEnd{},
	}
	bridged := build(t, DefaultOptions(), cmds...)
	require.Len(t, bridged.Primitives, 1)
	assert.Equal(t, 1, bridged.Stats.Bridged)
	assert.InDelta(t, 100.0, SignedArea(bridged.Primitives[0].Polygon[0]), 1e-9)

	opts := DefaultOptions()
	opts.ClosePolicy = regions.ClosePolicyStrict
	strict := build(t, opts, cmds...)
	assert.Empty(t, strict.Primitives)
	require.Len(t, strict.Diagnostics, 1)
	assert.True(t, errors.Is(strict.Diagnostics[0], ErrUnclosableRegion))
	assert.Equal(t, 1, strict.Diagnostics[0].Region)
}

func TestBuild_DegenerateRegionIsSkipped(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.RegionBegin{},
		move(0, 0), line(1, 0), line(0, 0),
		commands.RegionEnd{},
		commands.SelectAperture{Code: 10},
		flash(5, 5),
	)
	require.Len(t, layer.Diagnostics, 1)
	assert.True(t, errors.Is(layer.Diagnostics[0], ErrDegenerateRegion))
	require.Len(t, layer.Primitives, 1)
	assert.Equal(t, SourceFlash, layer.Primitives[0].Source.Kind)
	assert.Equal(t, 1, layer.Stats.Skipped)
}

func TestBuild_MacroExposure(t *testing.T) {
	tbl := testTable(t)
	m, err := amprocessor.ParseMacro("PADHOLE", "5,1,4,0,0,2,0*1,0,0.5,0,0*")
	require.NoError(t, err)
	require.NoError(t, tbl.DefineMacro(m))
	require.NoError(t, tbl.Define(apertures.NewAperture(20, apertures.Macro{Name: "PADHOLE"})))

	layer, err := Build(commands.NewImage(testFormat, tbl,
		commands.SelectAperture{Code: 20},
		flash(1, 1),
	), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, layer.Primitives, 2)
	assert.Equal(t, PolTypeDark, layer.Primitives[0].Polarity)
	assert.Equal(t, PolTypeClear, layer.Primitives[1].Polarity)
	assert.Equal(t, 20, layer.Primitives[1].Source.Aperture)

	_, hit := layer.HitTest(polyclip.Point{X: 1, Y: 1})
	assert.False(t, hit, "the hole is clear")
	idx, hit := layer.HitTest(polyclip.Point{X: 1.6, Y: 1})
	assert.True(t, hit)
	assert.Equal(t, 0, idx)
	_, hit = layer.HitTest(polyclip.Point{X: 1.9, Y: 1.9})
	assert.False(t, hit, "outside of the diamond")
}

func TestBuild_ApertureTransformOrder(t *testing.T) {
	tbl := testTable(t)
	m, err := amprocessor.ParseMacro("L", "4,1,6,0,0,2,0,2,1,1,1,1,3,0,3,0,0,0*")
	require.NoError(t, err)
	require.NoError(t, tbl.DefineMacro(m))
	require.NoError(t, tbl.Define(apertures.NewAperture(30, apertures.Macro{Name: "L"})))

	layer, err := Build(commands.NewImage(testFormat, tbl,
		commands.SelectAperture{Code: 30},
		commands.LoadMirroring{Mirroring: MirrorX},
		commands.LoadRotation{Degrees: 90},
		flash(0, 0),
	), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, layer.Primitives, 1)
	// mirror first, then rotate
	assertRect(t, rect(-3, -2, 0, 0), layer.Primitives[0].BBox, 1e-9)

	parts, err := m.Resolve(tessellate.ForResolution(testFormat.Resolution()), nil)
	require.NoError(t, err)
	rotateThenMirror := transform.Compose(transform.Flip(MirrorX), transform.RotateDeg(90))
	other, _ := boundingBox(rotateThenMirror.ApplyPolygon(parts[0].Polygon))
	assertRect(t, rect(0, 0, 3, 2), other, 1e-9)
	assert.NotEqual(t, layer.Primitives[0].BBox, other)
}

func TestBuild_ResourceLimits(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCommands = 2
	_, err := Build(commands.NewImage(testFormat, testTable(t),
		commands.SelectAperture{Code: 10}, flash(0, 0), flash(1, 1)), opts)
	assert.True(t, errors.Is(err, ErrResourceLimitExceeded))

	opts = DefaultOptions()
	opts.MaxVertices = 10
	_, err = Build(commands.NewImage(testFormat, testTable(t),
		commands.SelectAperture{Code: 10}, flash(0, 0)), opts)
	assert.True(t, errors.Is(err, ErrResourceLimitExceeded))

	// step and repeat multiplies the walked commands
	opts = DefaultOptions()
	opts.MaxCommands = 50
	_, err = Build(commands.NewImage(testFormat, testTable(t),
		commands.SelectAperture{Code: 11},
		commands.StepRepeatBegin{NX: 10, NY: 10, DX: 1, DY: 1},
		flash(0, 0),
		commands.StepRepeatEnd{}), opts)
	assert.True(t, errors.Is(err, ErrResourceLimitExceeded))
}

func TestBuild_BadStream(t *testing.T) {
	streams := [][]commands.Command{
		{nil},
		{commands.RegionEnd{}},
		{commands.RegionBegin{}, commands.RegionBegin{}},
		{commands.StepRepeatEnd{}},
		{commands.BlockEnd{}},
		{commands.SelectAperture{Code: 10}, commands.RegionBegin{}, flash(0, 0)},
		{commands.StepRepeatBegin{NX: 0, NY: 1}},
	}
	for i, s := range streams {
		layer, err := Build(commands.NewImage(testFormat, testTable(t), s...), DefaultOptions())
		if !errors.Is(err, ErrBadCommandStream) || layer != nil {
			t.Fatal("stream", i, "must abort the build")
		}
	}
	_, err := Build(commands.NewImage(xy.NewFormatSpec(UnitsMM, 3, 9), testTable(t)), DefaultOptions())
	assert.True(t, errors.Is(err, ErrBadCommandStream))
}

func TestBuild_StepAndRepeat(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.SelectAperture{Code: 11},
		commands.StepRepeatBegin{NX: 2, NY: 2, DX: 10, DY: 5},
		flash(0, 0),
		commands.StepRepeatEnd{},
		flash(20, 20),
	)
	require.Len(t, layer.Primitives, 5)
	want := []polyclip.Rectangle{
		rect(-0.5, -0.5, 0.5, 0.5),
		rect(9.5, -0.5, 10.5, 0.5),
		rect(-0.5, 4.5, 0.5, 5.5),
		rect(9.5, 4.5, 10.5, 5.5),
		rect(19.5, 19.5, 20.5, 20.5),
	}
	for i := range want {
		assertRect(t, want[i], layer.Primitives[i].BBox, 1e-12)
	}
	assertRect(t, rect(-0.5, -0.5, 20.5, 20.5), layer.BBox, 1e-12)
}

func TestBuild_BlockAperture(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.BlockBegin{Code: 100},
		commands.SelectAperture{Code: 11},
		flash(1, 0),
		commands.LoadPolarity{Polarity: PolTypeClear},
		flash(1, 0),
		commands.BlockEnd{},
		commands.SelectAperture{Code: 100},
		flash(5, 5),
		commands.LoadPolarity{Polarity: PolTypeClear},
		flash(0, 0),
	)
	require.Len(t, layer.Primitives, 4)
	assertRect(t, rect(5.5, 4.5, 6.5, 5.5), layer.Primitives[0].BBox, 1e-12)
	assert.Equal(t, PolTypeDark, layer.Primitives[0].Polarity)
	assert.Equal(t, PolTypeClear, layer.Primitives[1].Polarity)
	// flashed with clear polarity the block is inverted
	assert.Equal(t, PolTypeClear, layer.Primitives[2].Polarity)
	assert.Equal(t, PolTypeDark, layer.Primitives[3].Polarity)
	assertRect(t, rect(0.5, -0.5, 1.5, 0.5), layer.Primitives[2].BBox, 1e-12)
	assert.Equal(t, 4, layer.Stats.Flashes)
}

func TestBuild_BlockNestingLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNesting = 3
	_, err := Build(commands.NewImage(testFormat, testTable(t),
		commands.BlockBegin{Code: 100},
		commands.SelectAperture{Code: 100},
		flash(0, 0),
		commands.BlockEnd{},
		commands.SelectAperture{Code: 100},
		flash(0, 0),
	), opts)
	assert.True(t, errors.Is(err, ErrResourceLimitExceeded))
}

func legacyOptions() Options {
	opts := DefaultOptions()
	opts.LegacyImageParameters = true
	return opts
}

func TestBuild_ImageTransforms(t *testing.T) {
	region := []commands.Command{
		commands.RegionBegin{},
		move(1, 0), line(2, 0), line(2, 1), line(1, 1), line(1, 0),
		commands.RegionEnd{},
	}
	rt := transform.NewRenderTransform()
	rt.Rotation = math.Pi / 2
	opts := legacyOptions()
	opts.Transform = &rt
	rotated := build(t, opts, region...)
	assertRect(t, rect(-1, 1, 0, 2), rotated.BBox, 1e-12)

	// the render transform applies first, the legacy offset after it
	both := build(t, opts, append([]commands.Command{commands.ImageOffset{A: 10, B: 0}}, region...)...)
	assertRect(t, rect(9, 1, 10, 2), both.BBox, 1e-12)

	swapped := build(t, legacyOptions(), append([]commands.Command{commands.AxisSelection{Select: AxisAYBX}}, region...)...)
	assertRect(t, rect(0, 1, 1, 2), swapped.BBox, 0)

	mirrored := build(t, legacyOptions(), append([]commands.Command{commands.ImageMirror{Mirroring: MirrorX}}, region...)...)
	assertRect(t, rect(-2, 0, -1, 1), mirrored.BBox, 0)
	assert.Equal(t, -1, mirrored.Primitives[0].Winding(), "mirroring reverses the region winding")
}

func TestBuild_LegacyImageParametersSkipped(t *testing.T) {
	cmds := []commands.Command{
		commands.ImageMirror{Mirroring: MirrorX},
		commands.ImageScale{A: 2, B: 2},
		commands.ImageOffset{A: 10, B: 10},
		commands.ImageRotation{Degrees: 90},
		commands.AxisSelection{Select: AxisAYBX},
		commands.RegionBegin{},
		move(1, 0), line(2, 0),
		commands.ImageOffset{A: 1, B: 0},
		line(2, 1), line(1, 1), line(1, 0),
		commands.RegionEnd{},
	}
	layer := build(t, DefaultOptions(), cmds...)
	require.Len(t, layer.Primitives, 1)
	assert.Empty(t, layer.Diagnostics)
	assert.Equal(t, rect(1, 0, 2, 1), layer.BBox)
	assert.Equal(t, 1, layer.Primitives[0].Winding())

	applied := build(t, legacyOptions(), cmds...)
	assert.Empty(t, applied.Primitives, "the region is dropped")
	require.Len(t, applied.Diagnostics, 1)
	assert.True(t, errors.Is(applied.Diagnostics[0], ErrAxisConfigurationConflict))
}

func TestBuild_AxisConflictInRegion(t *testing.T) {
	layer := build(t, legacyOptions(),
		commands.RegionBegin{},
		move(0, 0), line(1, 0),
		commands.AxisSelection{Select: AxisAYBX},
		line(1, 1), line(0, 0),
		commands.RegionEnd{},
		commands.ImageRotation{Degrees: 45},
	)
	assert.Empty(t, layer.Primitives)
	require.Len(t, layer.Diagnostics, 2)
	assert.True(t, errors.Is(layer.Diagnostics[0], ErrAxisConfigurationConflict))
	assert.True(t, errors.Is(layer.Diagnostics[1], ErrAxisConfigurationConflict))
}

func TestBuild_ImagePolarity(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.ImagePolarity{Polarity: PolTypeClear},
		commands.SelectAperture{Code: 10},
		flash(0, 0),
		commands.LoadPolarity{Polarity: PolTypeClear},
		flash(0, 0),
	)
	require.Len(t, layer.Primitives, 3)
	assert.Equal(t, SourceBackground, layer.Primitives[0].Source.Kind)
	assert.Equal(t, PolTypeDark, layer.Primitives[0].Polarity)
	assert.Equal(t, PolTypeClear, layer.Primitives[1].Polarity)
	assert.Equal(t, PolTypeDark, layer.Primitives[2].Polarity)
}

func TestBuild_NegativeImageBackground(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.ImagePolarity{Polarity: PolTypeClear},
		commands.SelectAperture{Code: 11},
		flash(0, 0),
		flash(3, 0),
	)
	require.Len(t, layer.Primitives, 3)
	bg := layer.Primitives[0]
	assert.Equal(t, SourceBackground, bg.Source.Kind)
	assert.Equal(t, rect(-0.5, -0.5, 3.5, 0.5), bg.BBox)
	assert.Equal(t, layer.BBox, bg.BBox)
	assert.Equal(t, 1, bg.Winding())
	assert.Equal(t, 1, layer.Stats.Dark)
	assert.Equal(t, 2, layer.Stats.Clear)

	idx, hit := layer.HitTest(polyclip.Point{X: 1.5, Y: 0})
	assert.True(t, hit, "between the pads the background stays dark")
	assert.Equal(t, 0, idx)
	_, hit = layer.HitTest(polyclip.Point{X: 3, Y: 0})
	assert.False(t, hit, "the pads are holes in the background")

	positive := build(t, DefaultOptions(), commands.SelectAperture{Code: 11}, flash(0, 0))
	require.Len(t, positive.Primitives, 1)
	empty := build(t, DefaultOptions(), commands.ImagePolarity{Polarity: PolTypeClear})
	assert.True(t, empty.IsEmpty())
}

func TestBuild_ScaledFlashErrorBound(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.SelectAperture{Code: 10},
		commands.LoadScaling{Scale: 100},
		flash(0, 0),
	)
	require.Len(t, layer.Primitives, 1)
	c := layer.Primitives[0].Polygon[0]
	bound := tessellate.ForResolution(testFormat.Resolution()).ErrorBound(50)
	for i := 0; i+1 < len(c); i++ {
		mid := polyclip.Point{X: (c[i].X + c[i+1].X) / 2, Y: (c[i].Y + c[i+1].Y) / 2}
		if dev := 50 - math.Hypot(mid.X, mid.Y); dev > bound+1e-9 {
			t.Fatal("chord", i, "deviates by", dev, "bound", bound)
		}
	}
	assertRect(t, rect(-50, -50, 50, 50), layer.BBox, bound)
}

func TestBuild_BadMoireIsSkipped(t *testing.T) {
	tbl := testTable(t)
	m, err := amprocessor.ParseMacro("MOIRE", "6,0,0,1,0.1,0.1,$1,0.05,1,0*")
	require.NoError(t, err)
	require.NoError(t, tbl.DefineMacro(m))
	require.NoError(t, tbl.Define(apertures.NewAperture(40, apertures.Macro{Name: "MOIRE", Modifiers: []float64{-5}})))
	require.NoError(t, tbl.Define(apertures.NewAperture(41, apertures.Macro{Name: "MOIRE", Modifiers: []float64{1e19}})))

	layer, err := Build(commands.NewImage(testFormat, tbl,
		commands.SelectAperture{Code: 40},
		flash(0, 0),
		commands.SelectAperture{Code: 41},
		flash(0, 0),
		commands.SelectAperture{Code: 10},
		flash(5, 5),
	), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, layer.Primitives, 1)
	assert.Equal(t, 10, layer.Primitives[0].Source.Aperture)
	require.Len(t, layer.Diagnostics, 2)
	assert.True(t, errors.Is(layer.Diagnostics[0], ErrInvalidModifierCount))
	assert.Equal(t, 40, layer.Diagnostics[0].Aperture)
	assert.True(t, errors.Is(layer.Diagnostics[1], ErrResourceLimitExceeded))
	assert.Equal(t, 41, layer.Diagnostics[1].Aperture)
}

func TestBuild_Strokes(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.SelectAperture{Code: 10},
		move(0, 0), line(10, 0),
		commands.SelectAperture{Code: 11},
		move(0, 5), line(10, 10),
		commands.SelectAperture{Code: 10},
		line(10, 10),
		commands.SelectAperture{Code: 12},
		line(20, 20),
		commands.SelectAperture{Code: 99},
		line(30, 30),
	)
	require.Len(t, layer.Primitives, 3)
	assert.Equal(t, SourceStroke, layer.Primitives[0].Source.Kind)
	assertRect(t, rect(-0.5, -0.5, 10.5, 0.5), layer.Primitives[0].BBox, 2e-3)
	assert.Equal(t, SourceStroke, layer.Primitives[1].Source.Kind)
	assertRect(t, rect(-0.5, 4.5, 10.5, 10.5), layer.Primitives[1].BBox, 1e-12)
	assert.Equal(t, 6, len(layer.Primitives[1].Polygon[0])-1, "hull of two squares on a diagonal")
	// zero length draw flashes the aperture
	assert.Equal(t, SourceFlash, layer.Primitives[2].Source.Kind)
	assertRect(t, rect(9.5, 9.5, 10.5, 10.5), layer.Primitives[2].BBox, 2e-3)

	require.Len(t, layer.Diagnostics, 2)
	assert.True(t, errors.Is(layer.Diagnostics[0], ErrUnsupportedApertureKind))
	assert.Equal(t, 12, layer.Diagnostics[0].Aperture)
	assert.True(t, errors.Is(layer.Diagnostics[1], ErrUnknownAperture))
	assert.Equal(t, 2, layer.Stats.Strokes)
}

func TestBuild_ArcStrokes(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.SelectAperture{Code: 10},
		commands.SetQuadrant{Mode: QuadModeMulti},
		commands.SetInterpolation{Mode: IPModeCCwC},
		move(5, 0), arc(5, 0, -5, 0),
		move(10, 0), arc(0, 10, -10, 0),
	)
	require.Len(t, layer.Primitives, 2)
	ring := layer.Primitives[0]
	require.Len(t, ring.Polygon, 2, "full circle stroke is an annulus")
	assertRect(t, rect(-5.5, -5.5, 5.5, 5.5), ring.BBox, 1e-2)
	assert.False(t, ring.Contains(polyclip.Point{}))
	assert.True(t, ring.Contains(polyclip.Point{X: 5}))

	quarter := layer.Primitives[1]
	require.Len(t, quarter.Polygon, 1)
	assert.True(t, quarter.Contains(polyclip.Point{X: 10 * math.Cos(math.Pi/4), Y: 10 * math.Sin(math.Pi/4)}))
	assert.False(t, quarter.Contains(polyclip.Point{X: -5, Y: -5}))
	assert.InDelta(t, -0.5, quarter.BBox.Min.X, 1e-2)
	assert.InDelta(t, 10.5, quarter.BBox.Max.Y, 1e-2)
}

func TestBuild_Workers(t *testing.T) {
	cmds := []commands.Command{
		commands.SelectAperture{Code: 10}, flash(0, 0),
		commands.SelectAperture{Code: 11}, flash(3, 0),
		commands.SelectAperture{Code: 12}, flash(6, 0),
	}
	seq := build(t, DefaultOptions(), cmds...)
	opts := DefaultOptions()
	opts.Workers = 4
	par := build(t, opts, cmds...)
	assert.Equal(t, seq.Primitives, par.Primitives)
	assert.Equal(t, seq.BBox, par.BBox)
}

func TestLayer_HitTest(t *testing.T) {
	layer := build(t, DefaultOptions(),
		commands.SelectAperture{Code: 11},
		flash(0, 0),
		flash(0.25, 0),
	)
	idx, ok := layer.HitTest(polyclip.Point{X: 0.6, Y: 0})
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	idx, ok = layer.HitTest(polyclip.Point{X: -0.4, Y: 0})
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	_, ok = layer.HitTest(polyclip.Point{X: 5, Y: 5})
	assert.False(t, ok)
}

func TestBuild_PrintStatistic(t *testing.T) {
	opts := DefaultOptions()
	opts.PrintStatistic = true
	opts.PrintAperturesInfo = true
	opts.PrintRegionsInfo = true
	layer := build(t, opts,
		commands.SelectAperture{Code: 10}, flash(0, 0),
		commands.RegionBegin{}, move(0, 0), line(1, 0), line(1, 1), line(0, 0), commands.RegionEnd{},
	)
	assert.Equal(t, 1, layer.Stats.Flashes)
	assert.Equal(t, 1, layer.Stats.Regions)
	assert.Contains(t, layer.Stats.String(), "flashes: 1")
}
