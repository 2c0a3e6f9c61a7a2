package socketcan

import (
	"errors"
	"net"
	"sync"
	"syscall"

	sockcan "github.com/brutella/can"
	"github.com/mupfdev/CANopenTerm/internal/fifo"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Basic wrapper for socketcan it uses the implementation
// that can be found here : https://github.com/brutella/can
// The bit rate of a SocketCAN interface is configured by the system
// (ip link set can0 type can bitrate ...), it is only logged here.

func init() {
	can.RegisterDriver("socketcan", NewSocketCanDriver)
}

const rxQueueSize = 1024

type Driver struct {
	mu      sync.Mutex
	logger  *log.Entry
	channel string
	bus     *sockcan.Bus
	rx      *fifo.Fifo
	lost    bool
	wg      sync.WaitGroup
	// Overridable for tests
	lookup func(name string) (*net.Interface, error)
}

func NewSocketCanDriver(channel string) (can.Driver, error) {
	return New(channel, nil), nil
}

func New(channel string, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Driver{
		channel: channel,
		logger:  logger.WithField("service", "[SOCKETCAN]"),
		rx:      fifo.NewFifo(rxQueueSize),
		lookup:  net.InterfaceByName,
	}
}

// Check that the interface exists and is up
func (d *Driver) interfaceStatus() can.Status {
	iface, err := d.lookup(d.channel)
	if err != nil {
		return can.StatusIllegalHardware
	}
	if iface.Flags&net.FlagUp == 0 {
		return can.StatusIllegalNet
	}
	return can.StatusOK
}

// "Initialize" implementation of Driver interface
func (d *Driver) Initialize(bitRate can.BitRate) can.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bus != nil {
		return can.StatusOK
	}
	if status := d.interfaceStatus(); !status.OK() {
		return status
	}
	bus, err := sockcan.NewBusForInterfaceWithName(d.channel)
	if err != nil {
		d.logger.Debugf("unable to open %v : %v", d.channel, err)
		return can.StatusResource
	}
	// brutella/can defines a "Handle" interface for handling received CAN frames
	bus.Subscribe(d)
	d.bus = bus
	d.lost = false
	d.rx.Reset()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := bus.ConnectAndPublish()
		d.mu.Lock()
		defer d.mu.Unlock()
		// Still the active bus, reception stopped on its own
		if d.bus == bus {
			d.logger.Warnf("reception on %v stopped : %v", d.channel, err)
			d.lost = true
		}
	}()
	d.logger.Infof("opened %v, bit rate %v is expected to be configured on the interface", d.channel, bitRate)
	return can.StatusOK
}

// "Uninitialize" implementation of Driver interface
func (d *Driver) Uninitialize() can.Status {
	d.mu.Lock()
	bus := d.bus
	d.bus = nil
	d.mu.Unlock()
	if bus == nil {
		return can.StatusInitialize
	}
	err := bus.Disconnect()
	d.wg.Wait()
	if err != nil {
		d.logger.Debugf("disconnect %v : %v", d.channel, err)
	}
	return can.StatusOK
}

// "GetStatus" implementation of Driver interface
func (d *Driver) GetStatus() can.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bus == nil {
		return can.StatusInitialize
	}
	if d.lost {
		return can.StatusIllegalHardware
	}
	if status := d.interfaceStatus(); !status.OK() {
		return status
	}
	if d.rx.Overrun() {
		return can.StatusQOverrun
	}
	return can.StatusOK
}

// "Write" implementation of Driver interface
func (d *Driver) Write(frame can.Frame) can.Status {
	d.mu.Lock()
	bus, lost := d.bus, d.lost
	d.mu.Unlock()
	if bus == nil {
		return can.StatusInitialize
	}
	if lost {
		return can.StatusIllegalHardware
	}
	if frame.ID > can.CanSffMask || frame.DLC > can.MaxDataLength {
		return can.StatusIllegalParamVal
	}
	err := bus.Publish(
		sockcan.Frame{
			ID:     frame.ID,
			Length: frame.DLC,
			Flags:  0,
			Res0:   0,
			Res1:   0,
			Data:   frame.Data,
		})
	return statusFromError(err)
}

// "Read" implementation of Driver interface
func (d *Driver) Read() (can.Frame, can.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bus == nil {
		return can.Frame{}, can.StatusInitialize
	}
	frame, ok := d.rx.Pop()
	if !ok {
		return can.Frame{}, can.StatusQRcvEmpty
	}
	return frame, can.StatusOK
}

// brutella/can specific "Handle" implementation
func (d *Driver) Handle(frame sockcan.Frame) {
	// Extended, RTR and error frames are not supported
	if frame.ID > can.CanSffMask {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rx.Write(can.Frame{ID: frame.ID, DLC: frame.Length, Data: frame.Data})
}

func statusFromError(err error) can.Status {
	switch {
	case err == nil:
		return can.StatusOK
	case errors.Is(err, syscall.ENOBUFS), errors.Is(err, syscall.EAGAIN):
		return can.StatusXmtFull
	case errors.Is(err, syscall.ENETDOWN):
		return can.StatusIllegalNet
	case errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return can.StatusIllegalHardware
	default:
		return can.StatusUnknown
	}
}
