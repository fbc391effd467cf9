package regions

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/akavel/polyclip-go"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/tessellate"
	"github.com/MakerPnP/gerber-viewer/transform"
	"github.com/MakerPnP/gerber-viewer/xy"
)

/*####################  path segments ##################################
 */

// Segment is one of MoveTo, LineTo, ArcTo
type Segment interface {
	End() polyclip.Point
}

type MoveTo struct {
	To polyclip.Point
}

type LineTo struct {
	To polyclip.Point
}

type ArcTo struct {
	Arc tessellate.Arc
}

func (s MoveTo) End() polyclip.Point { return s.To }
func (s LineTo) End() polyclip.Point { return s.To }
func (s ArcTo) End() polyclip.Point  { return s.Arc.To }

/*####################  close policy ##################################
 */

type ClosePolicy int

const (
	// a gap above the tolerance is closed by a synthetic edge
	ClosePolicyBridge ClosePolicy = iota
	// a gap above the tolerance fails with ErrUnclosableRegion
	ClosePolicyStrict
)

func (cp ClosePolicy) String() string {
	switch cp {
	case ClosePolicyBridge:
		return "bridge"
	case ClosePolicyStrict:
		return "strict"
	default:
	}
	return "Unknown close policy"
}

type RegionState int

const (
	RegionIdle RegionState = iota
	RegionOpen
	RegionClosed
)

func (rs RegionState) String() string {
	switch rs {
	case RegionIdle:
		return "idle"
	case RegionOpen:
		return "open"
	case RegionClosed:
		return "closed"
	default:
	}
	return "Unknown region state"
}

/*####################  contours ##################################
 */

// Contour is one closed boundary of a region; Points[0] == Points[len-1].
type Contour struct {
	Points     polyclip.Contour
	Synthetic  bool // a closing edge was inserted
	StartIndex int  // command index of the first segment
	EndIndex   int  // command index of the closing command
}

// ContourError is a contour dropped from the region
type ContourError struct {
	StartIndex int
	EndIndex   int
	Err        error
}

func (ce *ContourError) Error() string {
	return "contour " + strconv.Itoa(ce.StartIndex) + "-" + strconv.Itoa(ce.EndIndex) + ": " + ce.Err.Error()
}

func (ce *ContourError) Unwrap() error {
	return ce.Err
}

type pendingContour struct {
	segments   []Segment
	startIndex int
}

/*####################  region builder ##################################
 */

// Builder accumulates the segments of one G36/G37 region into contours.
// Coordinates are in path space; End maps them to image space.
type Builder struct {
	Tolerance   float64
	Policy      ClosePolicy
	Tessellator tessellate.Tessellator

	G36Index int // command index of G36
	G37Index int // command index of G37

	state    RegionState
	pen      polyclip.Point
	cur      *pendingContour
	finished []pendingContour
	errs     []error
	stats    Stats
}

// Stats counts what happened with the contours of all regions of a builder
type Stats struct {
	Regions  int
	Contours int
	Bridged  int
	Snapped  int
	Dropped  int
	Vertices int
}

func NewBuilder(tolerance float64, policy ClosePolicy, tes tessellate.Tessellator) *Builder {
	return &Builder{Tolerance: tolerance, Policy: policy, Tessellator: tes, G36Index: -1, G37Index: -1}
}

func (b *Builder) String() string {
	return "Region:\n" +
		"\t\tstate " + b.state.String() + "\n" +
		"\t\tcontains " + strconv.Itoa(len(b.finished)) + " contours\n" +
		"\t\tG36 command is at index " + strconv.Itoa(b.G36Index) + "\n" +
		"\t\tG37 command is at index " + strconv.Itoa(b.G37Index)
}

func (b *Builder) State() RegionState {
	return b.state
}

// returns true if region is opened
func (b *Builder) IsRegionOpened() bool {
	return b.state == RegionOpen
}

func (b *Builder) Stats() Stats {
	return b.stats
}

// Begin opens the region (G36) with the current point pen
func (b *Builder) Begin(idx int, pen polyclip.Point) error {
	if b.state == RegionOpen {
		return errors.New("region is already opened at " + strconv.Itoa(b.G36Index))
	}
	b.state = RegionOpen
	b.G36Index = idx
	b.G37Index = -1
	b.pen = pen
	b.cur = nil
	b.finished = nil
	b.errs = nil
	return nil
}

// MoveTo (D02) closes the current contour and starts a new one at p
func (b *Builder) MoveTo(idx int, p polyclip.Point) {
	if b.state != RegionOpen {
		return
	}
	b.closeCurrent(idx)
	b.pen = p
}

// LineTo (D01, linear)
func (b *Builder) LineTo(idx int, p polyclip.Point) {
	if b.state != RegionOpen {
		return
	}
	b.ensureContour(idx)
	if p == b.pen {
		return
	}
	b.cur.segments = append(b.cur.segments, LineTo{p})
	b.pen = p
}

// ArcTo (D01, circular). The arc starts at the current point.
func (b *Builder) ArcTo(idx int, arc tessellate.Arc) {
	if b.state != RegionOpen {
		return
	}
	b.ensureContour(idx)
	b.cur.segments = append(b.cur.segments, ArcTo{arc})
	b.pen = arc.To
}

func (b *Builder) ensureContour(idx int) {
	if b.cur == nil {
		b.cur = &pendingContour{segments: []Segment{MoveTo{b.pen}}, startIndex: idx}
	}
}

func (b *Builder) closeCurrent(idx int) {
	if b.cur == nil {
		return
	}
	c := *b.cur
	b.cur = nil
	if len(c.segments) < 2 {
		// a lone move encloses nothing
		return
	}
	first := c.segments[0].End()
	last := c.segments[len(c.segments)-1].End()
	gap := xy.Distance(first, last)
	switch {
	case gap == 0:
	case gap < b.Tolerance:
		b.stats.Snapped++
		n := len(c.segments) - 1
		switch s := c.segments[n].(type) {
		case LineTo:
			c.segments[n] = LineTo{first}
		case ArcTo:
			s.Arc.To = first
			c.segments[n] = s
		}
	case b.Policy == ClosePolicyStrict:
		b.errs = append(b.errs, &ContourError{c.startIndex, idx,
			fmt.Errorf("%w: gap %g exceeds tolerance %g", ErrUnclosableRegion, gap, b.Tolerance)})
		b.stats.Dropped++
		return
	default:
		b.stats.Bridged++
		c.segments = append(c.segments, bridge{LineTo{first}})
	}
	b.finished = append(b.finished, c)
}

// bridge is the synthetic closing edge
type bridge struct {
	LineTo
}

// End closes the region (G37) and returns the contours mapped by tr, and
// the errors of the contours that were dropped.
func (b *Builder) End(idx int, tr transform.Transform) ([]Contour, []error) {
	if b.state != RegionOpen {
		return nil, []error{errors.New("region is not opened")}
	}
	b.closeCurrent(idx)
	b.state = RegionClosed
	b.G37Index = idx
	b.stats.Regions++

	retVal := make([]Contour, 0, len(b.finished))
	errs := b.errs
	for _, c := range b.finished {
		pts, synthetic := b.flatten(c.segments, tr)
		if distinctVertices(pts) < 3 {
			errs = append(errs, &ContourError{c.startIndex, idx, ErrDegenerateRegion})
			b.stats.Dropped++
			continue
		}
		b.stats.Contours++
		b.stats.Vertices += len(pts)
		retVal = append(retVal, Contour{Points: pts, Synthetic: synthetic, StartIndex: c.startIndex, EndIndex: idx})
	}
	b.finished = nil
	b.errs = nil
	return retVal, errs
}

func (b *Builder) flatten(segs []Segment, tr transform.Transform) (polyclip.Contour, bool) {
	synthetic := false
	pts := make(polyclip.Contour, 0, len(segs)+1)
	for _, s := range segs {
		switch s := s.(type) {
		case MoveTo:
			pts = append(pts, tr.Apply(s.To))
		case LineTo:
			pts = append(pts, tr.Apply(s.To))
		case bridge:
			synthetic = true
			pts = append(pts, tr.Apply(s.To))
		case ArcTo:
			chain := b.Tessellator.ArcUnder(tr, s.Arc)
			if len(chain) > 1 {
				pts = append(pts, chain[1:len(chain)-1]...)
			}
			pts = append(pts, tr.Apply(s.Arc.To))
		}
	}
	// the closing vertex is the exact image of the first one
	pts[len(pts)-1] = pts[0]
	return pts, synthetic
}

func distinctVertices(c polyclip.Contour) int {
	seen := make(map[polyclip.Point]struct{}, len(c))
	for _, p := range c {
		seen[p] = struct{}{}
	}
	return len(seen)
}
