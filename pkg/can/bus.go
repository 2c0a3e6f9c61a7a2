package can

import (
	"fmt"
	"sort"
)

const CanSffMask uint32 = 0x000007FF

// A standard CAN frame (11-bit identifier)
type Frame struct {
	ID   uint32
	DLC  uint8
	Data [8]byte
}

// Driver is the boundary to the adapter hardware.
// A driver is bound to a single channel when created, every operation
// returns the raw status reported by the hardware without interpretation.
// Read must not block, an empty receive queue is reported with [StatusQRcvEmpty].
type Driver interface {
	Initialize(bitRate BitRate) Status // Bring the channel up at given bit rate
	Uninitialize() Status              // Release the channel, safe to call in any state
	GetStatus() Status                 // Current bus / hardware status
	Write(frame Frame) Status          // Queue a frame for transmission
	Read() (Frame, Status)             // Pop the next received frame
}

// Drivers that have their own error descriptions can implement this
type ErrorTexter interface {
	ErrorText(status Status) string
}

type NewDriverFunc func(channel string) (Driver, error)

var driverRegistry = make(map[string]NewDriverFunc)

// Register a new driver type
// This should be called inside an init() function of plugin
func RegisterDriver(name string, newDriver NewDriverFunc) {
	driverRegistry[name] = newDriver
}

// Create a new driver for the given channel
// The driver package must have been imported for it to be registered
func NewDriver(name string, channel string) (Driver, error) {
	createDriver, ok := driverRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unsupported driver : %v", name)
	}
	return createDriver(channel)
}

// Names of all registered drivers, sorted
func Drivers() []string {
	names := make([]string, 0, len(driverRegistry))
	for name := range driverRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
