package slcan

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"
	"github.com/mupfdev/CANopenTerm/internal/fifo"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Driver for serial line CAN adapters (CANable, USBtin, Lawicel CANUSB, ...)
// The channel is the serial device e.g. /dev/ttyACM0

func init() {
	can.RegisterDriver("slcan", NewSlcanDriver)
}

const (
	rxQueueSize     = 1024
	serialBaudRate  = 115200
	readTimeout     = 50 * time.Millisecond
	maxLineLength   = 64
	asciiBell       = 0x07
	asciiCarriageRt = '\r'
)

type OpenFunc func(address string) (io.ReadWriteCloser, error)

func openSerial(address string) (io.ReadWriteCloser, error) {
	return serial.Open(&serial.Config{
		Address:  address,
		BaudRate: serialBaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  readTimeout,
	})
}

type Driver struct {
	mu      sync.Mutex
	logger  *log.Entry
	channel string
	open    OpenFunc
	port    io.ReadWriteCloser
	rx      *fifo.Fifo
	lost    bool
	nbBell  int
	wg      sync.WaitGroup
}

func NewSlcanDriver(channel string) (can.Driver, error) {
	return New(channel, nil, nil), nil
}

// Create a new slcan driver, open defaults to a 115200 8N1 serial port
func New(channel string, open OpenFunc, logger *log.Logger) *Driver {
	if open == nil {
		open = openSerial
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Driver{
		channel: channel,
		open:    open,
		logger:  logger.WithField("service", "[SLCAN]"),
		rx:      fifo.NewFifo(rxQueueSize),
	}
}

func (d *Driver) Initialize(bitRate can.BitRate) can.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port != nil {
		return can.StatusOK
	}
	setup, ok := bitRateCommands[bitRate]
	if !ok {
		d.logger.Warnf("bit rate %v is not available on slcan adapters", bitRate)
		return can.StatusIllegalParamVal
	}
	port, err := d.open(d.channel)
	if err != nil {
		d.logger.Debugf("unable to open %v : %v", d.channel, err)
		return can.StatusIllegalHardware
	}
	// Close first in case the adapter was left open
	_, err = port.Write([]byte("C\r" + setup + "\rO\r"))
	if err != nil {
		port.Close()
		return can.StatusIllegalHardware
	}
	d.port = port
	d.lost = false
	d.nbBell = 0
	d.rx.Reset()
	d.wg.Add(1)
	go d.handleReception(port)
	return can.StatusOK
}

func (d *Driver) Uninitialize() can.Status {
	d.mu.Lock()
	port := d.port
	d.port = nil
	d.mu.Unlock()
	if port == nil {
		return can.StatusInitialize
	}
	_, _ = port.Write([]byte("C\r"))
	_ = port.Close()
	d.wg.Wait()
	return can.StatusOK
}

func (d *Driver) GetStatus() can.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
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
	port, lost := d.port, d.lost
	d.mu.Unlock()
	if port == nil {
		return can.StatusInitialize
	}
	if lost {
		return can.StatusIllegalHardware
	}
	if frame.ID > can.CanSffMask || frame.DLC > can.MaxDataLength {
		return can.StatusIllegalParamVal
	}
	if _, err := port.Write(encodeFrame(frame)); err != nil {
		d.logger.Debugf("write failed : %v", err)
		return can.StatusIllegalHardware
	}
	return can.StatusOK
}

func (d *Driver) Read() (can.Frame, can.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return can.Frame{}, can.StatusInitialize
	}
	frame, ok := d.rx.Pop()
	if !ok {
		return can.Frame{}, can.StatusQRcvEmpty
	}
	return frame, can.StatusOK
}

// Number of commands refused by the adapter since initialization
func (d *Driver) Refused() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nbBell
}

// Read the serial port and split it into lines
func (d *Driver) handleReception(port io.ReadWriteCloser) {
	defer d.wg.Done()
	buffer := make([]byte, 128)
	line := make([]byte, 0, maxLineLength)
	for {
		n, err := port.Read(buffer)
		for _, b := range buffer[:n] {
			switch b {
			case asciiCarriageRt:
				d.handleLine(line)
				line = line[:0]
			case asciiBell:
				d.mu.Lock()
				d.nbBell++
				d.mu.Unlock()
				line = line[:0]
			default:
				if len(line) < maxLineLength {
					line = append(line, b)
				}
			}
		}
		if errors.Is(err, serial.ErrTimeout) {
			continue
		}
		if err != nil {
			d.mu.Lock()
			if d.port == port {
				d.logger.Errorf("listening routine has closed because : %v", err)
				d.lost = true
			}
			d.mu.Unlock()
			return
		}
	}
}

func (d *Driver) handleLine(line []byte) {
	// Acknowledge of a command
	if len(line) == 0 || line[0] == 'z' || line[0] == 'Z' {
		return
	}
	frame, err := decodeFrame(line)
	if err != nil {
		d.logger.Debugf("ignored line %q : %v", line, err)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rx.Write(frame)
}
