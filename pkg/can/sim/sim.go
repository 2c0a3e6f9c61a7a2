package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mupfdev/CANopenTerm/internal/fifo"
	"github.com/mupfdev/CANopenTerm/pkg/can"
)

// Simulated adapter kept in memory, used for testing and for
// running without hardware. The adapter can be plugged and unplugged
// at runtime and detects overlapping driver calls.

func init() {
	can.RegisterDriver("sim", NewSimDriver)
}

const rxQueueSize = 256

type Adapter struct {
	mu          sync.Mutex
	channel     string
	present     bool
	initialized bool
	bitRate     can.BitRate
	receiveOwn  bool
	initStatus  can.Status
	busStatus   can.Status
	initDelay   time.Duration
	rx          *fifo.Fifo
	sent        []can.Frame
	nbInit      int
	inCall      atomic.Int32
	overlaps    atomic.Int32
}

func NewSimDriver(channel string) (can.Driver, error) {
	return New(channel), nil
}

// Create a plugged in simulated adapter
func New(channel string) *Adapter {
	return &Adapter{
		channel: channel,
		present: true,
		rx:      fifo.NewFifo(rxQueueSize),
	}
}

// Mark entry of a driver call, any other call already running is an overlap
func (a *Adapter) enter() func() {
	if a.inCall.Add(1) > 1 {
		a.overlaps.Add(1)
	}
	return func() { a.inCall.Add(-1) }
}

func (a *Adapter) Initialize(bitRate can.BitRate) can.Status {
	defer a.enter()()
	a.mu.Lock()
	delay := a.initDelay
	a.mu.Unlock()
	// Sleep without the lock, serializing calls is up to the caller
	if delay > 0 {
		time.Sleep(delay)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nbInit++
	if !a.present {
		return can.StatusIllegalHardware
	}
	if !a.initStatus.OK() {
		return a.initStatus
	}
	if bitRate > can.MaxBitRate {
		return can.StatusIllegalParamVal
	}
	a.initialized = true
	a.bitRate = bitRate
	return can.StatusOK
}

func (a *Adapter) Uninitialize() can.Status {
	defer a.enter()()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return can.StatusInitialize
	}
	a.initialized = false
	a.rx.Reset()
	return can.StatusOK
}

func (a *Adapter) GetStatus() can.Status {
	defer a.enter()()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return can.StatusInitialize
	}
	if !a.present {
		return can.StatusIllegalHardware
	}
	if a.rx.Overrun() {
		return a.busStatus | can.StatusQOverrun
	}
	return a.busStatus
}

func (a *Adapter) Write(frame can.Frame) can.Status {
	defer a.enter()()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return can.StatusInitialize
	}
	if !a.present {
		return can.StatusIllegalHardware
	}
	if frame.ID > can.CanSffMask || frame.DLC > can.MaxDataLength {
		return can.StatusIllegalParamVal
	}
	if a.busStatus&can.StatusBusOff != 0 {
		return can.StatusBusOff
	}
	a.sent = append(a.sent, frame)
	if a.receiveOwn {
		a.rx.Write(frame)
	}
	return can.StatusOK
}

func (a *Adapter) Read() (can.Frame, can.Status) {
	defer a.enter()()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return can.Frame{}, can.StatusInitialize
	}
	frame, ok := a.rx.Pop()
	if !ok {
		return can.Frame{}, can.StatusQRcvEmpty
	}
	return frame, can.StatusOK
}

// Plug adapter back in
func (a *Adapter) Plug() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.present = true
}

// Unplug adapter, an initialized channel then reports [can.StatusIllegalHardware]
func (a *Adapter) Unplug() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.present = false
}

// Status returned by the next initializations, [can.StatusOK] to clear
func (a *Adapter) SetInitStatus(status can.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initStatus = status
}

// Bus status reported while initialized, e.g. [can.StatusBusLight]
func (a *Adapter) SetBusStatus(status can.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.busStatus = status
}

// Make initialization take some time
func (a *Adapter) SetInitDelay(delay time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initDelay = delay
}

// Loop written frames back into the receive queue
func (a *Adapter) SetReceiveOwn(receiveOwn bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.receiveOwn = receiveOwn
}

// Inject frames as if received from the bus, returns number queued
func (a *Adapter) Inject(frames ...can.Frame) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return 0
	}
	return a.rx.Write(frames...)
}

// Copy of all frames written so far
func (a *Adapter) Sent() []can.Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	sent := make([]can.Frame, len(a.sent))
	copy(sent, a.sent)
	return sent
}

func (a *Adapter) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Bit rate of the last successful initialization
func (a *Adapter) BitRate() can.BitRate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bitRate
}

// Number of initialization attempts
func (a *Adapter) NbInit() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nbInit
}

// Number of driver calls that started while another one was running
func (a *Adapter) Overlaps() int {
	return int(a.overlaps.Load())
}

func (a *Adapter) Channel() string {
	return a.channel
}
