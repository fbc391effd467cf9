/*
Step and repeat blocks
*/
package srblocks

import (
	"fmt"
	"strconv"

	"github.com/akavel/polyclip-go"

	"github.com/MakerPnP/gerber-viewer/commands"
	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
)

/*
############################## step and repeat blocks #################################
*/
type SRBlock struct {
	StartIndex int
	numX       int
	numY       int
	dX         float64
	dY         float64
	body       []commands.Entry
}

// NewSRBlock checks the SR parameters; both counts must be at least 1.
func NewSRBlock(idx int, c commands.StepRepeatBegin) (*SRBlock, error) {
	if c.NX < 1 {
		return nil, fmt.Errorf("%w: SR at %d: X count < 1", ErrBadCommandStream, idx)
	}
	if c.NY < 1 {
		return nil, fmt.Errorf("%w: SR at %d: Y count < 1", ErrBadCommandStream, idx)
	}
	return &SRBlock{StartIndex: idx, numX: c.NX, numY: c.NY, dX: c.DX, dY: c.DY}, nil
}

func (srblock *SRBlock) String() string {

	if srblock == nil {
		return "<nil>"
	}
	return "Step and repeat block:\n" +
		"\tstarts at command " + strconv.Itoa(srblock.StartIndex) + "\n" +
		"\tcontains " + strconv.Itoa(srblock.numX) + " repeats along X axis and " + strconv.Itoa(srblock.numY) + " repeats along Y axis\n" +
		"\tnumber of steps in each repetition: " + strconv.Itoa(srblock.NSteps()) + "\n" +
		"\tdX=" + strconv.FormatFloat(srblock.dX, 'f', 5, 64) +
		", dY=" + strconv.FormatFloat(srblock.dY, 'f', 5, 64) + "\n"
}

func (srblock *SRBlock) NumX() int {
	return srblock.numX
}

func (srblock *SRBlock) NumY() int {
	return srblock.numY
}

func (srblock *SRBlock) DX() float64 {
	return srblock.dX
}

func (srblock *SRBlock) DY() float64 {
	return srblock.dY
}

// number of steps in the SRBlock block
func (srblock *SRBlock) NSteps() int {
	return len(srblock.body)
}

func (srblock *SRBlock) Accept(idx int, c commands.Command) {
	srblock.body = append(srblock.body, commands.Entry{Index: idx, Cmd: c})
}

// Body returns a fresh cursor over the block commands
func (srblock *SRBlock) Body() *commands.Storage {
	s := commands.NewStorage()
	for _, e := range srblock.body {
		s.Accept(e.Index, e.Cmd)
	}
	return s
}

// Copies returns the number of repetitions
func (srblock *SRBlock) Copies() int {
	return srblock.numX * srblock.numY
}

// Offsets returns the path offsets of the copies: X varies first, then Y.
func (srblock *SRBlock) Offsets() []polyclip.Point {
	retVal := make([]polyclip.Point, 0, srblock.Copies())
	for j := 0; j < srblock.numY; j++ {
		for i := 0; i < srblock.numX; i++ {
			retVal = append(retVal, polyclip.Point{X: float64(i) * srblock.dX, Y: float64(j) * srblock.dY})
		}
	}
	return retVal
}
