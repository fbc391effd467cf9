package render

import (
	"math"
	"sort"

	"github.com/akavel/polyclip-go"

	"github.com/MakerPnP/gerber-viewer/amprocessor"
	"github.com/MakerPnP/gerber-viewer/apertures"
	"github.com/MakerPnP/gerber-viewer/tessellate"
	"github.com/MakerPnP/gerber-viewer/transform"
)

/*
	Strokes are built in path coordinates and mapped to the image by the
	path transform. The tessellator is tightened by the scale of the
	transform so that the error bound holds in image space.
*/

func localTessellator(tes tessellate.Tessellator, tr transform.Transform) tessellate.Tessellator {
	sx, sy := tr.ScaleFactors()
	if k := math.Max(sx, sy); k > 0 {
		tes.MaxError /= k
	}
	return tes
}

// appendChain appends the points of the chain, skipping a repeated junction point
func appendChain(dst, chain polyclip.Contour) polyclip.Contour {
	for _, p := range chain {
		if len(dst) > 0 && dst[len(dst)-1] == p {
			continue
		}
		dst = append(dst, p)
	}
	return dst
}

func closeContour(c polyclip.Contour) polyclip.Contour {
	if len(c) > 0 && c[0] != c[len(c)-1] {
		c = append(c, c[0])
	}
	return c
}

// linearCircleStroke is the stadium swept by a circle of the diameter from a to b
func linearCircleStroke(tes tessellate.Tessellator, a, b polyclip.Point, diameter float64) polyclip.Contour {
	hw := diameter / 2
	alpha := math.Atan2(b.Y-a.Y, b.X-a.X)
	retVal := tes.Arc(tessellate.NewArc(b, hw, alpha-math.Pi/2, math.Pi))
	retVal = appendChain(retVal, tes.Arc(tessellate.NewArc(a, hw, alpha+math.Pi/2, math.Pi)))
	return closeContour(retVal)
}

// arcCircleStroke is the thick arc with round caps swept by a circle of the
// diameter along the arc. A full circle gives an annulus, or a disc when the
// pen is wider than the hole.
func arcCircleStroke(tes tessellate.Tessellator, arc tessellate.Arc, diameter float64) polyclip.Polygon {
	hw := diameter / 2
	if arc.IsFullCircle() {
		outer := tes.Circle(arc.Center, arc.Radius+hw)
		if arc.Radius-hw <= 0 {
			return polyclip.Polygon{outer}
		}
		return polyclip.Polygon{outer, amprocessor.Reverse(tes.Circle(arc.Center, arc.Radius-hw))}
	}
	sign := 1.0
	if arc.Clockwise() {
		sign = -1.0
	}
	end := arc.Start + arc.Sweep
	retVal := tes.Arc(tessellate.NewArc(arc.Center, arc.Radius+hw, arc.Start, arc.Sweep))
	retVal = appendChain(retVal, tes.Arc(tessellate.NewArc(arc.To, hw, end, sign*math.Pi)))
	if inner := arc.Radius - hw; inner > 0 {
		retVal = appendChain(retVal, tes.Arc(tessellate.NewArc(arc.Center, inner, end, -arc.Sweep)))
	} else {
		retVal = appendChain(retVal, polyclip.Contour{arc.Center})
	}
	retVal = appendChain(retVal, tes.Arc(tessellate.NewArc(arc.From, hw, arc.Start+math.Pi, sign*math.Pi)))
	return polyclip.Polygon{closeContour(retVal)}
}

// rectangleStroke is the convex hull of the pen rectangle placed at a and at b.
// pen maps the aperture-local rectangle (LM/LR/LS).
func rectangleStroke(a, b polyclip.Point, r apertures.Rectangle, pen transform.Transform) polyclip.Contour {
	corners := [4]polyclip.Point{
		{X: -r.XSize / 2, Y: -r.YSize / 2},
		{X: r.XSize / 2, Y: -r.YSize / 2},
		{X: r.XSize / 2, Y: r.YSize / 2},
		{X: -r.XSize / 2, Y: r.YSize / 2},
	}
	pts := make([]polyclip.Point, 0, 8)
	for _, at := range []polyclip.Point{a, b} {
		for _, c := range corners {
			p := pen.Apply(c)
			pts = append(pts, polyclip.Point{X: p.X + at.X, Y: p.Y + at.Y})
		}
	}
	return convexHull(pts)
}

func cross(o, a, b polyclip.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// convexHull returns the closed counter-clockwise hull (monotone chain)
func convexHull(pts []polyclip.Point) polyclip.Contour {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	hull := make(polyclip.Contour, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// the last point repeats the first one
	return hull
}
