package sdo

import (
	"errors"
	"testing"

	"github.com/mupfdev/CANopenTerm/pkg/can"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

type recordingWriter struct {
	status can.Status
	frames []can.Frame
}

func (w *recordingWriter) WriteFrame(frame can.Frame) can.Status {
	w.frames = append(w.frames, frame)
	return w.status
}

func (w *recordingWriter) ErrorText(status can.Status) string {
	return status.Text()
}

func TestClientId(t *testing.T) {
	assert.Equal(t, uint32(0x600), ClientId(0))
	assert.Equal(t, uint32(0x605), ClientId(5))
	assert.Equal(t, uint32(0x67F), ClientId(127))
	assert.Equal(t, uint32(0x600), ClientId(128))
	assert.Equal(t, uint32(0x648), ClientId(200))
}

func TestBuildWrite(t *testing.T) {
	for _, dataType := range []DataType{Unsigned8, Unsigned16, Unsigned32} {
		frame, err := BuildWrite(0x17, 0, dataType, 1000, 5)
		assert.Nil(t, err)
		assert.Equal(t, uint32(0x605), frame.ID)
		assert.Equal(t, uint8(dataType), frame.DLC)
	}
	frame, err := BuildWrite(0x17, 0, Unsigned8, 1, 200)
	assert.Nil(t, err)
	assert.Equal(t, uint32(0x648), frame.ID)
}

func TestBuildWriteInvalidDataType(t *testing.T) {
	for _, dataType := range []DataType{0, 3, 5, 8} {
		_, err := BuildWrite(0x17, 0, dataType, 0, 1)
		assert.ErrorIs(t, err, ErrInvalidDataType)
	}
	assert.Equal(t, "UNSIGNED16", Unsigned16.String())
	assert.Equal(t, "unknown data type (3)", DataType(3).String())
}

func TestClientWrite(t *testing.T) {
	logger, hook := test.NewNullLogger()
	writer := &recordingWriter{}
	client := NewClient(writer, logger)

	assert.Nil(t, client.Write(0x17, 0, Unsigned16, 1000, 5))
	assert.Len(t, writer.frames, 1)
	assert.Equal(t, uint32(0x605), writer.frames[0].ID)
	assert.Empty(t, hook.AllEntries())
}

func TestClientWriteFailureLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	writer := &recordingWriter{status: can.StatusBusOff}
	client := NewClient(writer, logger)

	err := client.Write(0x17, 0, Unsigned8, 1, 5)
	var driverErr *can.DriverError
	assert.True(t, errors.As(err, &driverErr))
	assert.Equal(t, can.StatusBusOff, driverErr.Status)
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "Could not write SDO: Bus error: the CAN controller is in bus-off state", hook.LastEntry().Message)

	hook.Reset()
	err = client.Write(0x17, 0, 3, 1, 5)
	assert.ErrorIs(t, err, ErrInvalidDataType)
	assert.Len(t, writer.frames, 1)
	assert.Equal(t, 1, len(hook.AllEntries()))
}
