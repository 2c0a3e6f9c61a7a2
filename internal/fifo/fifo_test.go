package fifo

import (
	"testing"

	"github.com/mupfdev/CANopenTerm/pkg/can"
	"github.com/stretchr/testify/assert"
)

func frameWithId(id uint32) can.Frame {
	return can.Frame{ID: id, DLC: 1, Data: [8]byte{byte(id)}}
}

func TestFifoWrite(t *testing.T) {
	fifo := NewFifo(10)
	res := fifo.Write(frameWithId(1), frameWithId(2), frameWithId(3))
	assert.Equal(t, 3, res)
	assert.Equal(t, 3, fifo.GetOccupied())
	assert.Equal(t, 6, fifo.GetSpace())
	assert.False(t, fifo.Overrun())

	frames := make([]can.Frame, 0, 20)
	for i := uint32(0); i < 20; i++ {
		frames = append(frames, frameWithId(i))
	}
	res = fifo.Write(frames...)
	assert.Equal(t, 6, res)
	assert.Equal(t, 0, fifo.GetSpace())
	assert.True(t, fifo.Overrun())
	// Flag is cleared once read
	assert.False(t, fifo.Overrun())

	// Free up some space by reading then re writing
	fifo.Read(make([]can.Frame, 4))
	res = fifo.Write(frames[:4]...)
	assert.Equal(t, 4, res)
}

func TestFifoRead(t *testing.T) {
	fifo := NewFifo(4)
	buffer := make([]can.Frame, 10)
	assert.Equal(t, 0, fifo.Read(buffer))

	fifo.Write(frameWithId(0x10), frameWithId(0x20))
	res := fifo.Read(buffer)
	assert.Equal(t, 2, res)
	assert.EqualValues(t, 0x10, buffer[0].ID)
	assert.EqualValues(t, 0x20, buffer[1].ID)

	// Wrap around several times, order must be kept
	for i := uint32(0); i < 10; i++ {
		assert.Equal(t, 1, fifo.Write(frameWithId(i)))
		frame, ok := fifo.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, frame.ID)
	}
	_, ok := fifo.Pop()
	assert.False(t, ok)
}

func TestFifoReset(t *testing.T) {
	fifo := NewFifo(3)
	fifo.Write(frameWithId(1), frameWithId(2), frameWithId(3))
	assert.Equal(t, 2, fifo.GetOccupied())
	fifo.Reset()
	assert.Equal(t, 0, fifo.GetOccupied())
	assert.False(t, fifo.Overrun())
}
