package commands

import (
	"testing"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/xy"
)

var testArray = []Command{
	SelectAperture{10},
	SetInterpolation{IPModeLinear},
	Operation{OpcodeD02_MOVE, xy.At(0, 0)},
	Operation{OpcodeD01_DRAW, xy.At(1000, 0)},
	Operation{OpcodeD03_FLASH, xy.At(2000, 0)},
	RegionBegin{},
	Operation{OpcodeD01_DRAW, xy.At(1000, 1000)},
	RegionEnd{},
	EndOfFile{},
}

func TestStorage_Next(t *testing.T) {
	storage := NewStorage()
	if _, ok := storage.Next(); ok {
		t.Fatal("reading from the empty storage error")
	}
}

func TestNewStorage(t *testing.T) {
	const arrLen int = 1000
	var storageArray [arrLen]*Storage

	for i := 0; i < arrLen; i++ {
		storageArray[i] = NewStorage()
	}

	for i := range storageArray {
		for j, c := range testArray {
			storageArray[i].Accept(j, c)
		}
		if storageArray[i].Len() != len(testArray) {
			t.Fatal("storageArray[i].Len() != len(testArray)")
		}
	}

	for j := range testArray {
		for i := range storageArray {
			e, ok := storageArray[i].Next()
			if !ok || e.Index != j || e.Cmd.String() != testArray[j].String() {
				t.Fatal("testArray[j] not equal storageArray[i].Next()")
			}
		}
	}
	// try to read beyond storage size
	for i := range storageArray {
		if _, ok := storageArray[i].Next(); ok {
			t.Fatal("read beyond storage size returned a command!")
		}
	}
	// reset indexes
	for i := range storageArray {
		storageArray[i].ResetPos()
	}
	t.Log("read again after resetting positions")
	for j := range testArray {
		for i := range storageArray {
			if e, _ := storageArray[i].Next(); e.Index != j {
				t.Fatal("testArray[j] not equal storageArray[i].Next()")
			}
		}
	}
	if storageArray[0].PeekPos() != len(testArray) {
		t.Fatal("bad position")
	}
	storageArray[0].Empty()
	if storageArray[0].Len() != 0 || storageArray[0].PeekPos() != 0 {
		t.Fatal("storage must be empty")
	}
}

func TestFromCommands(t *testing.T) {
	s := FromCommands(testArray)
	arr := s.ToArray()
	if len(arr) != len(testArray) {
		t.Fatal("bad length")
	}
	for i := range arr {
		if arr[i].Index != i {
			t.Fatal("bad index")
		}
	}
	want := []string{"D10", "G01", "X0Y0D02", "X1000Y0D01", "X2000Y0D03", "G36", "X1000Y1000D01", "G37", "M02"}
	for i := range arr {
		if arr[i].Cmd.String() != want[i] {
			t.Fatal("expected " + want[i] + ", got " + arr[i].Cmd.String())
		}
	}
}
