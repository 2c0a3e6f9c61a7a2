package slcan

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mupfdev/CANopenTerm/pkg/can"
	"github.com/stretchr/testify/assert"
)

// Serial port replacement, device output is fed through a pipe
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	reader  *io.PipeReader
	device  *io.PipeWriter
}

func newFakePort() *fakePort {
	reader, device := io.Pipe()
	return &fakePort{reader: reader, device: device}
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	return p.reader.Close()
}

func (p *fakePort) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func newTestDriver(port *fakePort) *Driver {
	return New("/dev/ttyACM0", func(address string) (io.ReadWriteCloser, error) {
		return port, nil
	}, nil)
}

func TestEncodeFrame(t *testing.T) {
	frame := can.Frame{ID: 0x123, DLC: 3, Data: [8]byte{0xAA, 0x01, 0xFF, 0x55}}
	assert.Equal(t, "t1233AA01FF\r", string(encodeFrame(frame)))
	assert.Equal(t, "t7FF0\r", string(encodeFrame(can.Frame{ID: 0x7FF})))
}

func TestDecodeFrame(t *testing.T) {
	frame, err := decodeFrame([]byte("t1233AA01FF"))
	assert.Nil(t, err)
	assert.Equal(t, can.Frame{ID: 0x123, DLC: 3, Data: [8]byte{0xAA, 0x01, 0xFF}}, frame)

	// With timestamp
	frame, err = decodeFrame([]byte("t00011234"))
	assert.Nil(t, err)
	assert.Equal(t, can.Frame{ID: 0, DLC: 1, Data: [8]byte{0x12}}, frame)

	_, err = decodeFrame([]byte("T123456781AA"))
	assert.ErrorIs(t, err, ErrUnsupportedFrame)
	for _, line := range []string{"", "t12", "tFFF0", "t1239", "t1232AA", "t1231ZZ", "tXYZ0"} {
		_, err = decodeFrame([]byte(line))
		assert.ErrorIs(t, err, ErrMalformedFrame, line)
	}
}

func TestInitializeSetup(t *testing.T) {
	port := newFakePort()
	driver := newTestDriver(port)
	assert.Equal(t, can.StatusIllegalParamVal, driver.Initialize(can.BitRate95K))
	assert.Equal(t, can.StatusInitialize, driver.GetStatus())

	assert.Equal(t, can.StatusOK, driver.Initialize(can.BitRate250K))
	assert.Equal(t, "C\rS5\rO\r", port.output())
	assert.Equal(t, can.StatusOK, driver.GetStatus())
	assert.Equal(t, can.StatusOK, driver.Uninitialize())
	assert.Equal(t, "C\rS5\rO\rC\r", port.output())
	assert.Equal(t, can.StatusInitialize, driver.Uninitialize())
}

func TestInitializeOpenFailure(t *testing.T) {
	driver := New("/dev/null0", func(address string) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such file or directory")
	}, nil)
	assert.Equal(t, can.StatusIllegalHardware, driver.Initialize(can.DefaultBitRate))
}

func TestWriteRead(t *testing.T) {
	port := newFakePort()
	driver := newTestDriver(port)
	assert.Equal(t, can.StatusInitialize, driver.Write(can.Frame{ID: 0x1}))
	driver.Initialize(can.BitRate1M)
	defer driver.Uninitialize()

	assert.Equal(t, can.StatusOK, driver.Write(can.Frame{ID: 0x601, DLC: 2, Data: [8]byte{0x2F, 0x00}}))
	assert.Contains(t, port.output(), "t60122F00\r")
	assert.Equal(t, can.StatusIllegalParamVal, driver.Write(can.Frame{ID: 0x801}))

	// Acknowledge, refused command and two frames
	_, err := port.device.Write([]byte("z\r\at5811AB\rgarbage\rt0000\r"))
	assert.Nil(t, err)
	received := []can.Frame{}
	assert.Eventually(t, func() bool {
		frame, status := driver.Read()
		if status == can.StatusOK {
			received = append(received, frame)
		}
		return len(received) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, can.Frame{ID: 0x581, DLC: 1, Data: [8]byte{0xAB}}, received[0])
	assert.Equal(t, can.Frame{ID: 0x000}, received[1])
	assert.Equal(t, 1, driver.Refused())
}

func TestAdapterRemoved(t *testing.T) {
	port := newFakePort()
	driver := newTestDriver(port)
	driver.Initialize(can.DefaultBitRate)
	port.device.CloseWithError(io.ErrUnexpectedEOF)
	assert.Eventually(t, func() bool {
		return driver.GetStatus() == can.StatusIllegalHardware
	}, time.Second, time.Millisecond)
	assert.Equal(t, can.StatusIllegalHardware, driver.Write(can.Frame{ID: 0x1}))
	assert.Equal(t, can.StatusOK, driver.Uninitialize())
}
