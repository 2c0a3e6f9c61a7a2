package virtual

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mupfdev/CANopenTerm/internal/fifo"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Virtual CAN adapter over TCP, primarily used for testing
// This needs a broker server to send CAN frames to all connected clients
// More information : https://github.com/windelbouwman/virtualcan
// Losing the connection to the broker is reported like a removed adapter.

func init() {
	can.RegisterDriver("virtual", NewVirtualDriver)
	can.RegisterDriver("virtualcan", NewVirtualDriver)
}

const (
	rxQueueSize = 512
	dialTimeout = 500 * time.Millisecond
	sendTimeout = 10 * time.Millisecond
)

type Driver struct {
	mu      sync.Mutex
	logger  *log.Entry
	channel string
	conn    net.Conn
	rx      *fifo.Fifo
	lost    bool
	wg      sync.WaitGroup
}

func NewVirtualDriver(channel string) (can.Driver, error) {
	return New(channel, nil), nil
}

func New(channel string, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Driver{
		channel: channel,
		logger:  logger.WithField("service", "[VIRTUAL]"),
		rx:      fifo.NewFifo(rxQueueSize),
	}
}

// Frame layout shared with the broker and its other clients
type wireFrame struct {
	ID    uint32
	Flags uint8
	DLC   uint8
	Data  [8]byte
}

// Helper function for serializing a CAN frame into the expected binary format
func serializeFrame(frame can.Frame) ([]byte, error) {
	buffer := new(bytes.Buffer)
	err := binary.Write(buffer, binary.BigEndian, wireFrame{ID: frame.ID, DLC: frame.DLC, Data: frame.Data})
	if err != nil {
		return nil, err
	}
	dataBytes := buffer.Bytes()
	frameBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(frameBytes, uint32(len(dataBytes)))
	frameBytes = append(frameBytes, dataBytes...)
	return frameBytes, nil
}

// Helper function for deserializing a CAN frame from expected binary format
// Flags are not used on a standard frame and are dropped
func deserializeFrame(buffer []byte) (*can.Frame, error) {
	var wire wireFrame
	buf := bytes.NewBuffer(buffer)
	err := binary.Read(buf, binary.BigEndian, &wire)
	if err != nil {
		return nil, err
	}
	return &can.Frame{ID: wire.ID, DLC: wire.DLC, Data: wire.Data}, nil
}

// Read one length prefixed frame from the broker
func readFrame(r io.Reader) (*can.Frame, error) {
	headerBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(headerBytes)
	if length > 64 {
		return nil, fmt.Errorf("error deserializing : unexpected frame size %v", length)
	}
	frameBytes := make([]byte, length)
	if _, err := io.ReadFull(r, frameBytes); err != nil {
		return nil, err
	}
	return deserializeFrame(frameBytes)
}

// "Connect" to broker e.g. localhost:18000
// The bit rate has no meaning on a virtual bus and is ignored.
func (d *Driver) Initialize(bitRate can.BitRate) can.Status {
	d.mu.Lock()
	if d.conn != nil {
		d.mu.Unlock()
		return can.StatusOK
	}
	d.mu.Unlock()

	conn, err := net.DialTimeout("tcp", d.channel, dialTimeout)
	if err != nil {
		d.logger.Debugf("unable to reach broker %v : %v", d.channel, err)
		return can.StatusIllegalHardware
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	d.mu.Lock()
	d.conn = conn
	d.lost = false
	d.rx.Reset()
	d.mu.Unlock()

	d.wg.Add(1)
	go d.handleReception(conn)
	d.logger.Debugf("connected to broker %v (%v ignored)", d.channel, bitRate)
	return can.StatusOK
}

// "Disconnect" from broker
func (d *Driver) Uninitialize() can.Status {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()
	if conn == nil {
		return can.StatusInitialize
	}
	_ = conn.Close()
	d.wg.Wait()
	return can.StatusOK
}

func (d *Driver) GetStatus() can.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return can.StatusInitialize
	}
	if d.lost {
		return can.StatusIllegalHardware
	}
	if d.rx.Overrun() {
		return can.StatusQOverrun
	}
	return can.StatusOK
}

func (d *Driver) Write(frame can.Frame) can.Status {
	d.mu.Lock()
	conn, lost := d.conn, d.lost
	d.mu.Unlock()
	if conn == nil {
		return can.StatusInitialize
	}
	if lost {
		return can.StatusIllegalHardware
	}
	if frame.ID > can.CanSffMask || frame.DLC > can.MaxDataLength {
		return can.StatusIllegalParamVal
	}
	frameBytes, err := serializeFrame(frame)
	if err != nil {
		return can.StatusIllegalData
	}
	_ = conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	_, err = conn.Write(frameBytes)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return can.StatusXmtFull
	}
	if err != nil {
		return can.StatusIllegalHardware
	}
	return can.StatusOK
}

func (d *Driver) Read() (can.Frame, can.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return can.Frame{}, can.StatusInitialize
	}
	frame, ok := d.rx.Pop()
	if !ok {
		return can.Frame{}, can.StatusQRcvEmpty
	}
	return frame, can.StatusOK
}

// Handle incoming traffic until connection is closed
func (d *Driver) handleReception(conn net.Conn) {
	defer d.wg.Done()
	for {
		frame, err := readFrame(conn)
		if err != nil {
			d.mu.Lock()
			// Closed by Uninitialize, nothing to report
			if d.conn == conn {
				d.logger.Errorf("listening routine has closed because : %v", err)
				d.lost = true
			}
			d.mu.Unlock()
			return
		}
		d.mu.Lock()
		d.rx.Write(*frame)
		d.mu.Unlock()
	}
}
