package blockapertures

import (
	"fmt"
	"strconv"

	"github.com/golang/glog"

	"github.com/MakerPnP/gerber-viewer/commands"
	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
)

type BlockAperture struct {
	StartIndex int // index of the ABDnn command
	EndIndex   int // index of the closing AB command
	Code       int
	Body       []commands.Entry
}

//Print info
func (ba *BlockAperture) Print() {
	glog.Infoln("***** Block aperture *****")
	glog.Infoln("\tBlock aperture code:", ba.Code)
	glog.Infoln("\tSource commands:")
	for _, b := range ba.Body {
		glog.Infoln("\t\t", b.Index, "  ", b.Cmd.String())
	}
}

func (ba *BlockAperture) String() string {
	return "block aperture D" + strconv.Itoa(ba.Code) + " at " + strconv.Itoa(ba.StartIndex) +
		", " + strconv.Itoa(len(ba.Body)) + " commands"
}

// Extract moves the bodies of the AB blocks out of the stream. Blocks may
// be nested; a nested block belongs to the block table, not to the body of
// the enclosing block. It returns the blocks and the remaining commands.
func Extract(src commands.Supplier) (map[int]*BlockAperture, *commands.Storage, error) {
	blocks := make(map[int]*BlockAperture)
	rest := commands.NewStorage()
	openBlocks := make([]*BlockAperture, 0)
	for {
		e, ok := src.Next()
		if !ok {
			break
		}
		switch c := e.Cmd.(type) {
		case commands.BlockBegin:
			if _, dup := blocks[c.Code]; dup {
				return nil, nil, fmt.Errorf("%w: block aperture D%d redefined at %d", ErrBadCommandStream, c.Code, e.Index)
			}
			for _, ob := range openBlocks {
				if ob.Code == c.Code {
					return nil, nil, fmt.Errorf("%w: block aperture D%d nested in itself at %d", ErrBadCommandStream, c.Code, e.Index)
				}
			}
			openBlocks = append(openBlocks, &BlockAperture{StartIndex: e.Index, Code: c.Code, Body: make([]commands.Entry, 0)})
		case commands.BlockEnd:
			if len(openBlocks) == 0 {
				return nil, nil, fmt.Errorf("%w: AB without open block at %d", ErrBadCommandStream, e.Index)
			}
			ob := openBlocks[len(openBlocks)-1]
			openBlocks = openBlocks[:len(openBlocks)-1]
			ob.EndIndex = e.Index
			blocks[ob.Code] = ob
		default:
			if len(openBlocks) > 0 {
				ob := openBlocks[len(openBlocks)-1]
				ob.Body = append(ob.Body, e)
			} else {
				rest.Accept(e.Index, e.Cmd)
			}
		}
	}
	if len(openBlocks) != 0 {
		return nil, nil, fmt.Errorf("%w: block aperture D%d is not closed", ErrBadCommandStream, openBlocks[len(openBlocks)-1].Code)
	}
	return blocks, rest, nil
}
