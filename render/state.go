/*
################################## Graphics state ######################################
*/
package render

import (
	"strconv"

	"github.com/akavel/polyclip-go"
	"github.com/golang/glog"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/srblocks"
	"github.com/MakerPnP/gerber-viewer/transform"
	"github.com/MakerPnP/gerber-viewer/xy"
)

/*
	The State object is the graphics state of one command stream: the top
	level image, a step and repeat copy or a flashed block body. It is copied
	by value when a body is replayed.
*/
type State struct {
	Polarity PolType // %LPD*% or %LPC*%
	QMode    QuadMode
	IpMode   IPmode
	Aperture int            // current aperture code, 0 if none
	Pen      polyclip.Point // current point, path coordinates
	Stack    transform.Stack
	Inverted bool // the body is flashed with clear polarity

	SRBlock       *srblocks.SRBlock
	regionPol     PolType
	regionNum     int
	regionDropped bool
}

// creates and initializes the state object with default values
func NewState() *State {
	return &State{
		Polarity: PolTypeDark,
		QMode:    QuadModeMulti,
		IpMode:   IPModeLinear,
		Stack:    transform.NewStack(),
	}
}

// effective polarity of a new primitive: LP, block inversion, IP NEG
func (step *State) EffectivePolarity(pol PolType) PolType {
	if step.Inverted {
		pol = pol.Invert()
	}
	if step.Stack.Image.Negative() {
		pol = pol.Invert()
	}
	return pol
}

// body returns the initial state of a block flashed at the point
func (step *State) body(at polyclip.Point) State {
	return State{
		Polarity: PolTypeDark,
		QMode:    step.QMode,
		IpMode:   step.IpMode,
		Stack:    step.Stack.Placed(at),
		Inverted: (step.Polarity == PolTypeClear) != step.Inverted,
	}
}

// diagnostic print
func (step *State) Print() {
	glog.Infoln("Graphics state:")
	glog.Infoln("\t" + step.Polarity.String())
	glog.Infoln("\t" + step.QMode.String())
	glog.Infoln("\t" + step.IpMode.String())
	if step.Aperture != 0 {
		glog.Infoln("\tAperture D" + strconv.Itoa(step.Aperture))
	} else {
		glog.Infoln("\tAperture <nil>")
	}
	glog.Infoln("\tCurrent point: " + xy.PointString(step.Pen))
	glog.Infoln("\t" + step.Stack.Image.String())
	if step.SRBlock != nil {
		glog.Infoln("\t" + step.SRBlock.String())
	}
}
