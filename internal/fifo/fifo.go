package fifo

import "github.com/mupfdev/CANopenTerm/pkg/can"

// Circular Fifo of CAN frames used as receive queue by the drivers.
// It is not safe for concurrent use, owners must provide the locking.
type Fifo struct {
	buffer   []can.Frame
	writePos int
	readPos  int
	overrun  bool
}

// Create a fifo that can hold size-1 frames
func NewFifo(size uint16) *Fifo {
	if size < 2 {
		size = 2
	}
	f := &Fifo{
		buffer:   make([]can.Frame, size),
		writePos: 0,
		readPos:  0,
		overrun:  false,
	}
	return f
}

func (f *Fifo) Reset() {
	f.readPos = 0
	f.writePos = 0
	f.overrun = false
}

func (f *Fifo) GetSpace() int {
	sizeLeft := f.readPos - f.writePos - 1
	if sizeLeft < 0 {
		sizeLeft += len(f.buffer)
	}
	return sizeLeft
}

func (f *Fifo) GetOccupied() int {
	sizeOccupied := f.writePos - f.readPos
	if sizeOccupied < 0 {
		sizeOccupied += len(f.buffer)
	}
	return sizeOccupied
}

// Write frames to fifo and return number of frames written.
// Frames that do not fit are dropped and the overrun flag is raised.
func (f *Fifo) Write(frames ...can.Frame) int {
	writeCounter := 0
	for _, frame := range frames {
		writePosNext := f.writePos + 1
		if writePosNext == len(f.buffer) {
			writePosNext = 0
		}
		if writePosNext == f.readPos {
			f.overrun = true
			break
		}
		f.buffer[f.writePos] = frame
		f.writePos = writePosNext
		writeCounter++
	}
	return writeCounter
}

// Read frames from fifo and return number of frames read
func (f *Fifo) Read(buffer []can.Frame) int {
	readCounter := 0
	for index := range buffer {
		if f.readPos == f.writePos {
			break
		}
		buffer[index] = f.buffer[f.readPos]
		readCounter++
		f.readPos++
		if f.readPos == len(f.buffer) {
			f.readPos = 0
		}
	}
	return readCounter
}

// Pop the oldest frame, ok is false if fifo is empty
func (f *Fifo) Pop() (frame can.Frame, ok bool) {
	buffer := [1]can.Frame{}
	if f.Read(buffer[:]) == 0 {
		return can.Frame{}, false
	}
	return buffer[0], true
}

// Overrun reports whether frames were dropped since the last call
func (f *Fifo) Overrun() bool {
	overrun := f.overrun
	f.overrun = false
	return overrun
}
