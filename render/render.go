// Geometry assembler: walks the command stream of an image and builds the
// ordered list of dark and clear polygons.
package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/akavel/polyclip-go"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/MakerPnP/gerber-viewer/amprocessor"
	"github.com/MakerPnP/gerber-viewer/apertures"
	"github.com/MakerPnP/gerber-viewer/blockapertures"
	"github.com/MakerPnP/gerber-viewer/commands"
	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/regions"
	"github.com/MakerPnP/gerber-viewer/srblocks"
	"github.com/MakerPnP/gerber-viewer/tessellate"
	"github.com/MakerPnP/gerber-viewer/transform"
	"github.com/MakerPnP/gerber-viewer/xy"
)

const (
	DefaultMaxCommands = 10000000
	DefaultMaxVertices = 50000000
	DefaultMaxNesting  = 16
)

/*
 ************************** Build options ****************************
 */
type Options struct {
	// closing tolerance of region contours, <= 0 means one LSD of the format
	ClosingTolerance float64
	ClosePolicy      regions.ClosePolicy

	// tessellation; MaxError <= 0 means one LSD of the format
	MaxError       float64
	RadiusFraction float64
	MinSegments    int

	// limits, <= 0 means the default
	MaxCommands int
	MaxVertices int
	MaxNesting  int

	// render transform of the layer, nil is the identity
	Transform *transform.RenderTransform

	// apply the legacy MI, SF, OF, IR and AS image parameters of the
	// file; when false they are skipped
	LegacyImageParameters bool

	// workers resolving the aperture table before the walk, <= 1 resolves on demand
	Workers int

	PrintAperturesInfo bool
	PrintRegionsInfo   bool
	PrintStatistic     bool
}

func DefaultOptions() Options {
	return Options{
		ClosePolicy:    regions.ClosePolicyBridge,
		RadiusFraction: tessellate.DefaultRadiusFraction,
		MinSegments:    tessellate.DefaultMinSegments,
		MaxCommands:    DefaultMaxCommands,
		MaxVertices:    DefaultMaxVertices,
		MaxNesting:     DefaultMaxNesting,
	}
}

func (opts Options) normalized(res float64) Options {
	if opts.ClosingTolerance <= 0 {
		opts.ClosingTolerance = res
	}
	if opts.MaxError <= 0 {
		opts.MaxError = res
	}
	if opts.RadiusFraction < 0 {
		opts.RadiusFraction = 0
	}
	if opts.MinSegments <= 0 {
		opts.MinSegments = tessellate.DefaultMinSegments
	}
	if opts.MaxCommands <= 0 {
		opts.MaxCommands = DefaultMaxCommands
	}
	if opts.MaxVertices <= 0 {
		opts.MaxVertices = DefaultMaxVertices
	}
	if opts.MaxNesting <= 0 {
		opts.MaxNesting = DefaultMaxNesting
	}
	return opts
}

/*
 ************************** Errors ****************************
 */

// BuildError is a per-primitive failure; the primitive is skipped.
type BuildError struct {
	Index    int // command index
	Aperture int // aperture code or 0
	Region   int // region number or 0
	Err      error
}

func (be *BuildError) Error() string {
	retVal := "command " + strconv.Itoa(be.Index)
	if be.Aperture != 0 {
		retVal += ", D" + strconv.Itoa(be.Aperture)
	}
	if be.Region != 0 {
		retVal += ", region #" + strconv.Itoa(be.Region)
	}
	return retVal + ": " + be.Err.Error()
}

func (be *BuildError) Unwrap() error {
	return be.Err
}

/*
 ************************** Assembler ****************************
 */

type walker struct {
	opts        Options
	format      xy.FormatSpec
	resolver    *apertures.Resolver
	tes         tessellate.Tessellator
	blocks      map[int]*blockapertures.BlockAperture
	region      *regions.Builder
	layer       *Layer
	regionCount int
}

// Build walks the commands of the image once and returns the layer.
// Per-primitive failures end up in Layer.Diagnostics; a malformed stream or
// an exceeded limit aborts the build.
func Build(img *commands.Image, opts Options) (*Layer, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCommandStream, err)
	}
	opts = opts.normalized(img.Format.Resolution())
	if len(img.Commands) > opts.MaxCommands {
		return nil, fmt.Errorf("%w: %d commands, limit %d", ErrResourceLimitExceeded, len(img.Commands), opts.MaxCommands)
	}
	tes := tessellate.Tessellator{MaxError: opts.MaxError, RadiusFraction: opts.RadiusFraction, MinSegments: opts.MinSegments}
	w := &walker{
		opts:     opts,
		format:   img.Format,
		resolver: apertures.NewResolver(img.Apertures, tes),
		tes:      tes,
		region:   regions.NewBuilder(opts.ClosingTolerance, opts.ClosePolicy, tes),
		layer:    &Layer{Units: img.Format.Units},
	}
	if opts.PrintAperturesInfo {
		glog.Infoln(img.Apertures.String())
	}

	for i, c := range img.Commands {
		if c == nil {
			return nil, fmt.Errorf("%w: command %d is nil", ErrBadCommandStream, i)
		}
	}
	blocks, stream, err := blockapertures.Extract(commands.FromCommands(img.Commands))
	if err != nil {
		return nil, err
	}
	w.blocks = blocks
	if opts.PrintAperturesInfo {
		for _, b := range blocks {
			b.Print()
		}
	}

	if opts.Workers > 1 {
		w.warmUp(img.Apertures.Codes())
	}

	st := NewState()
	if opts.Transform != nil {
		st.Stack.Image = st.Stack.Image.WithRender(*opts.Transform)
	}
	if err := w.run(st, stream, 0); err != nil {
		return nil, err
	}
	if st.Stack.Image.Negative() {
		w.background()
	}

	rs := w.region.Stats()
	w.layer.Stats.Regions = rs.Regions
	w.layer.Stats.Contours = rs.Contours
	w.layer.Stats.Bridged = rs.Bridged
	w.layer.Stats.Snapped = rs.Snapped
	if w.opts.PrintStatistic || bool(glog.V(1)) {
		glog.Infof("build done: %s", w.layer.Stats.String())
	}
	return w.layer, nil
}

// background puts a dark rectangle over the bounding box under every
// primitive of a negative image, so that the inverted primitives erase it.
func (w *walker) background() {
	l := w.layer
	if l.IsEmpty() {
		return
	}
	b := l.BBox
	ring := polyclip.Contour{
		b.Min, {X: b.Max.X, Y: b.Min.Y}, b.Max, {X: b.Min.X, Y: b.Max.Y}, b.Min,
	}
	bg := Primitive{
		Polygon:  polyclip.Polygon{ring},
		Polarity: PolTypeDark,
		Source:   Source{Kind: SourceBackground},
		BBox:     b,
	}
	l.Primitives = append([]Primitive{bg}, l.Primitives...)
	l.Stats.Dark++
	l.Stats.Vertices += len(ring)
}

// warmUp resolves every aperture of the table in parallel. Failures are
// cached by the resolver and reported when the aperture is used.
func (w *walker) warmUp(codes []int) {
	var g errgroup.Group
	g.SetLimit(w.opts.Workers)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			_, _ = w.resolver.Resolve(code)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *walker) diagnose(idx, aperture, region int, err error) {
	be := &BuildError{Index: idx, Aperture: aperture, Region: region, Err: err}
	glog.Warningf("skipped: %v", be)
	w.layer.Diagnostics = append(w.layer.Diagnostics, be)
	w.layer.Stats.Skipped++
}

func (w *walker) emit(pol polyclip.Polygon, polarity PolType, src Source) error {
	bbox, ok := boundingBox(pol)
	if !ok {
		return nil
	}
	n := 0
	for _, c := range pol {
		n += len(c)
	}
	w.layer.Stats.Vertices += n
	if w.layer.Stats.Vertices > w.opts.MaxVertices {
		return fmt.Errorf("%w: more than %d vertices at command %d", ErrResourceLimitExceeded, w.opts.MaxVertices, src.Command)
	}
	w.layer.add(Primitive{Polygon: pol, Polarity: polarity, Source: src, BBox: bbox})
	return nil
}

// run walks one command stream with the graphics state
func (w *walker) run(st *State, src commands.Supplier, depth int) error {
	for {
		e, ok := src.Next()
		if !ok {
			break
		}
		w.layer.Stats.Commands++
		if w.layer.Stats.Commands > w.opts.MaxCommands {
			return fmt.Errorf("%w: more than %d commands walked", ErrResourceLimitExceeded, w.opts.MaxCommands)
		}
		if st.SRBlock != nil {
			switch e.Cmd.(type) {
			case commands.StepRepeatBegin, commands.StepRepeatEnd, commands.EndOfFile:
			default:
				st.SRBlock.Accept(e.Index, e.Cmd)
				continue
			}
		}
		stop, err := w.step(st, e, depth)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	if st.SRBlock != nil {
		if err := w.flushSR(st, depth); err != nil {
			return err
		}
	}
	if w.region.IsRegionOpened() {
		idx := w.region.G36Index
		w.region.End(idx, st.Stack.PathTransform())
		w.diagnose(idx, 0, st.regionNum, fmt.Errorf("%w: G36 without G37", ErrUnclosableRegion))
		st.regionDropped = false
	}
	return nil
}

// step executes one command; stop is true after M02
func (w *walker) step(st *State, e commands.Entry, depth int) (bool, error) {
	inRegion := w.region.IsRegionOpened()
	switch c := e.Cmd.(type) {
	case commands.SelectAperture:
		st.Aperture = c.Code
	case commands.SetInterpolation:
		st.IpMode = c.Mode
	case commands.SetQuadrant:
		st.QMode = c.Mode
	case commands.Operation:
		return false, w.operation(st, e.Index, c, depth)
	case commands.RegionBegin:
		if inRegion {
			return false, fmt.Errorf("%w: G36 at %d inside the region opened at %d", ErrBadCommandStream, e.Index, w.region.G36Index)
		}
		w.regionCount++
		st.regionNum = w.regionCount
		st.regionPol = st.Polarity
		st.regionDropped = false
		if err := w.region.Begin(e.Index, st.Pen); err != nil {
			return false, fmt.Errorf("%w: %v", ErrBadCommandStream, err)
		}
	case commands.RegionEnd:
		if !inRegion {
			return false, fmt.Errorf("%w: G37 at %d without G36", ErrBadCommandStream, e.Index)
		}
		return false, w.endRegion(st, e.Index)
	case commands.LoadPolarity:
		st.Polarity = c.Polarity
	case commands.LoadMirroring:
		st.Stack.Aperture.Mirroring = c.Mirroring
	case commands.LoadRotation:
		st.Stack.Aperture.Rotation = c.Degrees
	case commands.LoadScaling:
		st.Stack.Aperture.Scale = c.Scale
	case commands.ImageMirror, commands.ImageScale, commands.ImageOffset, commands.ImageRotation, commands.AxisSelection:
		w.legacy(st, e.Index, c)
	case commands.ImagePolarity:
		st.Stack.Image = st.Stack.Image.WithPolarity(c.Polarity)
	case commands.StepRepeatBegin:
		if inRegion {
			return false, fmt.Errorf("%w: SR at %d inside a region", ErrBadCommandStream, e.Index)
		}
		if st.SRBlock != nil {
			// a new SR ends the previous one
			if err := w.flushSR(st, depth); err != nil {
				return false, err
			}
		}
		sr, err := srblocks.NewSRBlock(e.Index, c)
		if err != nil {
			return false, err
		}
		st.SRBlock = sr
	case commands.StepRepeatEnd:
		if st.SRBlock == nil {
			return false, fmt.Errorf("%w: SR end at %d without SR", ErrBadCommandStream, e.Index)
		}
		return false, w.flushSR(st, depth)
	case commands.BlockBegin, commands.BlockEnd:
		return false, fmt.Errorf("%w: stray %s at %d", ErrBadCommandStream, c.String(), e.Index)
	case commands.EndOfFile:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown command %T at %d", ErrBadCommandStream, e.Cmd, e.Index)
	}
	return false, nil
}

// legacy applies one legacy image parameter, if enabled
func (w *walker) legacy(st *State, idx int, c commands.Command) {
	if !w.opts.LegacyImageParameters {
		if glog.V(1) {
			glog.Infof("command %d: legacy image parameter %s skipped", idx, c.String())
		}
		return
	}
	switch c := c.(type) {
	case commands.ImageMirror:
		w.imageChange(st, idx, st.Stack.Image.WithMirror(c.Mirroring))
	case commands.ImageScale:
		w.imageChange(st, idx, st.Stack.Image.WithScale(c.A, c.B))
	case commands.ImageOffset:
		w.imageChange(st, idx, st.Stack.Image.WithOffset(c.A, c.B))
	case commands.ImageRotation:
		it, ok := st.Stack.Image.WithRotation(c.Degrees)
		if !ok {
			w.diagnose(idx, 0, 0, fmt.Errorf("%w: IR%d is not a multiple of 90", ErrAxisConfigurationConflict, c.Degrees))
			return
		}
		w.imageChange(st, idx, it)
	case commands.AxisSelection:
		w.imageChange(st, idx, st.Stack.Image.WithAxis(c.Select))
	}
}

// imageChange applies a legacy image parameter. Inside a region the
// contour would mix two coordinate mappings, so the region is dropped.
func (w *walker) imageChange(st *State, idx int, it transform.ImageTransform) {
	if w.region.IsRegionOpened() && !st.regionDropped {
		st.regionDropped = true
		w.diagnose(idx, 0, st.regionNum, fmt.Errorf("%w: image parameter changed inside the region", ErrAxisConfigurationConflict))
	}
	st.Stack.Image = it
}

func (w *walker) endRegion(st *State, idx int) error {
	contours, errs := w.region.End(idx, st.Stack.PathTransform())
	if st.regionDropped {
		st.regionDropped = false
		return nil
	}
	for _, err := range errs {
		w.diagnose(idx, 0, st.regionNum, err)
	}
	if len(contours) == 0 {
		return nil
	}
	pol := make(polyclip.Polygon, 0, len(contours))
	for _, c := range contours {
		pol = append(pol, c.Points)
	}
	if w.opts.PrintRegionsInfo {
		glog.Infof("region #%d: %d contours, commands %d-%d", st.regionNum, len(contours), w.region.G36Index, idx)
	}
	return w.emit(pol, st.EffectivePolarity(st.regionPol), Source{Kind: SourceRegion, Region: st.regionNum, Command: idx})
}

func (w *walker) operation(st *State, idx int, op commands.Operation, depth int) error {
	target, offset := w.format.Resolve(op.Coord, st.Pen)
	from := st.Pen
	st.Pen = target

	if w.region.IsRegionOpened() {
		if st.regionDropped {
			return nil
		}
		switch op.Action {
		case OpcodeD02_MOVE:
			w.region.MoveTo(idx, target)
		case OpcodeD01_DRAW:
			if st.IpMode == IPModeLinear {
				w.region.LineTo(idx, target)
			} else {
				w.region.ArcTo(idx, tessellate.ArcFromEndpoints(from, target, offset, st.IpMode, st.QMode))
			}
		case OpcodeD03_FLASH:
			return fmt.Errorf("%w: D03 at %d inside a region", ErrBadCommandStream, idx)
		default:
			return fmt.Errorf("%w: bad operation at %d", ErrBadCommandStream, idx)
		}
		return nil
	}

	switch op.Action {
	case OpcodeD02_MOVE:
		return nil
	case OpcodeD03_FLASH:
		return w.flash(st, idx, target, depth)
	case OpcodeD01_DRAW:
		return w.draw(st, idx, from, target, offset, depth)
	}
	return fmt.Errorf("%w: bad operation at %d", ErrBadCommandStream, idx)
}

// flash places the current aperture at the point
func (w *walker) flash(st *State, idx int, at polyclip.Point, depth int) error {
	if st.Aperture == 0 {
		w.diagnose(idx, 0, 0, fmt.Errorf("%w: no aperture selected", ErrUnknownAperture))
		return nil
	}
	if b, ok := w.blocks[st.Aperture]; ok {
		return w.flashBlock(st, idx, b, at, depth)
	}
	tr := st.Stack.FlashTransform(at)
	sx, sy := tr.ScaleFactors()
	parts, err := w.resolver.ResolveScaled(st.Aperture, math.Max(sx, sy))
	if err != nil {
		w.diagnose(idx, st.Aperture, 0, err)
		return nil
	}
	src := Source{Kind: SourceFlash, Aperture: st.Aperture, Command: idx}
	w.layer.Stats.Flashes++
	for _, part := range parts {
		if err := w.emit(w.place(part, tr), w.partPolarity(st, part), src); err != nil {
			return err
		}
	}
	return nil
}

// place maps a resolved aperture part to image space. A mirroring
// transform reverses the rings; they are turned back so that outer
// rings stay counter-clockwise.
func (w *walker) place(part amprocessor.SignedPolygon, tr transform.Transform) polyclip.Polygon {
	pol := tr.ApplyPolygon(part.Polygon)
	if tr.Mirrored() {
		for i := range pol {
			pol[i] = amprocessor.Reverse(pol[i])
		}
	}
	return pol
}

func (w *walker) partPolarity(st *State, part amprocessor.SignedPolygon) PolType {
	pol := st.Polarity
	if part.Exposure == ExposureOff {
		pol = pol.Invert()
	}
	return st.EffectivePolarity(pol)
}

func (w *walker) flashBlock(st *State, idx int, b *blockapertures.BlockAperture, at polyclip.Point, depth int) error {
	if depth+1 > w.opts.MaxNesting {
		return fmt.Errorf("%w: block D%d at %d nested deeper than %d", ErrResourceLimitExceeded, b.Code, idx, w.opts.MaxNesting)
	}
	body := st.body(at)
	s := commands.NewStorage()
	for _, e := range b.Body {
		s.Accept(e.Index, e.Cmd)
	}
	return w.run(&body, s, depth+1)
}

// flushSR replays the collected step and repeat body for every copy. The
// state after the block is the state after the last copy.
func (w *walker) flushSR(st *State, depth int) error {
	sr := st.SRBlock
	st.SRBlock = nil
	start := *st
	last := start
	for _, off := range sr.Offsets() {
		cp := start
		cp.Stack = start.Stack.Shifted(off.X, off.Y)
		if err := w.run(&cp, sr.Body(), depth); err != nil {
			return err
		}
		last = cp
	}
	last.Stack.Path = start.Stack.Path
	*st = last
	return nil
}

// draw strokes the segment with the current aperture
func (w *walker) draw(st *State, idx int, from, to, offset polyclip.Point, depth int) error {
	if st.Aperture == 0 {
		w.diagnose(idx, 0, 0, fmt.Errorf("%w: no aperture selected", ErrUnknownAperture))
		return nil
	}
	linear := st.IpMode == IPModeLinear
	var arc tessellate.Arc
	if !linear {
		arc = tessellate.ArcFromEndpoints(from, to, offset, st.IpMode, st.QMode)
	}
	if from == to && (linear || !arc.IsFullCircle()) {
		// zero length draw
		return w.flash(st, idx, to, depth)
	}
	apert, ok := w.resolver.Table().Lookup(st.Aperture)
	if !ok {
		w.diagnose(idx, st.Aperture, 0, fmt.Errorf("%w: D%d", ErrUnknownAperture, st.Aperture))
		return nil
	}
	tr := st.Stack.PathTransform()
	tes := localTessellator(w.tes, tr)
	var pol polyclip.Polygon
	switch s := apert.Shape.(type) {
	case apertures.Circle:
		d := s.Diameter * st.Stack.Aperture.Scale
		if linear {
			pol = polyclip.Polygon{linearCircleStroke(tes, from, to, d)}
		} else {
			pol = arcCircleStroke(tes, arc, d)
		}
	case apertures.Rectangle:
		if !linear {
			w.diagnose(idx, st.Aperture, 0, fmt.Errorf("%w: arc drawn with a rectangle", ErrUnsupportedApertureKind))
			return nil
		}
		pol = polyclip.Polygon{rectangleStroke(from, to, s, st.Stack.Aperture.Transform())}
	default:
		w.diagnose(idx, st.Aperture, 0, fmt.Errorf("%w: draw with %s aperture", ErrUnsupportedApertureKind, apert.Shape.String()))
		return nil
	}
	w.layer.Stats.Strokes++
	pol = tr.ApplyPolygon(pol)
	if tr.Mirrored() {
		for i := range pol {
			pol[i] = amprocessor.Reverse(pol[i])
		}
	}
	return w.emit(pol, st.EffectivePolarity(st.Polarity), Source{Kind: SourceStroke, Aperture: st.Aperture, Command: idx})
}
