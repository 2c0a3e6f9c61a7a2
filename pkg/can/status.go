package can

import (
	"fmt"
	"strings"
)

// Raw status word reported by a driver.
// The bit layout follows the one used by PCAN-Basic so that the codes
// reported by PEAK adapters can be passed through unchanged.
type Status uint32

const (
	StatusOK               Status = 0x00000
	StatusXmtFull          Status = 0x00001 // Transmit buffer in CAN controller is full
	StatusOverrun          Status = 0x00002 // CAN controller was read too late
	StatusBusLight         Status = 0x00004 // Error counter reached the 'light' limit
	StatusBusHeavy         Status = 0x00008 // Error counter reached the 'heavy' limit
	StatusBusOff           Status = 0x00010 // Bus-off state
	StatusQRcvEmpty        Status = 0x00020 // Receive queue is empty
	StatusQOverrun         Status = 0x00040 // Receive queue was read too late
	StatusQXmtFull         Status = 0x00080 // Transmit queue is full
	StatusRegTest          Status = 0x00100 // Register test failed, no hardware found
	StatusNoDriver         Status = 0x00200 // Driver not loaded
	StatusHwInUse          Status = 0x00400 // Hardware already in use
	StatusNetInUse         Status = 0x00800 // A client is already connected to the net
	StatusIllegalHardware  Status = 0x01400 // Hardware handle is invalid, e.g. adapter removed
	StatusIllegalNet       Status = 0x01800 // Net handle is invalid
	StatusIllegalClient    Status = 0x01C00 // Client handle is invalid
	StatusResource         Status = 0x02000 // Resource cannot be created
	StatusIllegalParamType Status = 0x04000 // Invalid parameter
	StatusIllegalParamVal  Status = 0x08000 // Invalid parameter value
	StatusUnknown          Status = 0x10000 // Unknown error
	StatusIllegalData      Status = 0x20000 // Invalid data, function or action
	StatusBusPassive       Status = 0x40000 // Error passive state
	StatusIllegalMode      Status = 0x80000 // Wrong driver state for operation
	StatusCaution          Status = 0x2000000
	StatusInitialize       Status = 0x4000000 // Channel is not initialized
	StatusIllegalOperation Status = 0x8000000

	statusHandleMask = StatusIllegalClient
	StatusAnyBusErr  = StatusBusLight | StatusBusHeavy | StatusBusOff | StatusBusPassive
)

var StatusDescriptionMap = map[Status]string{
	StatusOK:               "No error",
	StatusXmtFull:          "Transmit buffer in CAN controller is full",
	StatusOverrun:          "CAN controller was read too late",
	StatusBusLight:         "Bus error: an error counter reached the 'light' limit",
	StatusBusHeavy:         "Bus error: an error counter reached the 'heavy' limit",
	StatusBusOff:           "Bus error: the CAN controller is in bus-off state",
	StatusQRcvEmpty:        "Receive queue is empty",
	StatusQOverrun:         "Receive queue was read too late",
	StatusQXmtFull:         "Transmit queue is full",
	StatusRegTest:          "Test of the CAN controller hardware registers failed (no hardware found)",
	StatusNoDriver:         "Driver not loaded",
	StatusHwInUse:          "Hardware already in use by a net",
	StatusNetInUse:         "A client is already connected to the net",
	StatusIllegalHardware:  "Hardware handle is invalid",
	StatusIllegalNet:       "Net handle is invalid",
	StatusIllegalClient:    "Client handle is invalid",
	StatusResource:         "Resource (FIFO, client, timeout) cannot be created",
	StatusIllegalParamType: "Invalid parameter",
	StatusIllegalParamVal:  "Invalid parameter value",
	StatusUnknown:          "Unknown error",
	StatusIllegalData:      "Invalid data, function, or action",
	StatusBusPassive:       "Bus error: the CAN controller is error passive",
	StatusIllegalMode:      "Driver object state is wrong for the attempted operation",
	StatusCaution:          "Operation succeeded but irregularities were registered",
	StatusInitialize:       "Channel is not initialized",
	StatusIllegalOperation: "Invalid operation",
}

// Single bit flags in the order they are reported
var statusFlags = []Status{
	StatusXmtFull, StatusOverrun, StatusBusLight, StatusBusHeavy, StatusBusOff,
	StatusQRcvEmpty, StatusQOverrun, StatusQXmtFull, StatusRegTest, StatusNoDriver,
	StatusHwInUse, StatusNetInUse, StatusResource, StatusIllegalParamType,
	StatusIllegalParamVal, StatusUnknown, StatusIllegalData, StatusBusPassive,
	StatusIllegalMode, StatusCaution, StatusInitialize, StatusIllegalOperation,
}

func (status Status) OK() bool {
	return status == StatusOK
}

// Text is the shared human readable description of a status.
// Combined statuses are described flag by flag.
func (status Status) Text() string {
	if description, ok := StatusDescriptionMap[status]; ok {
		return description
	}
	remaining := status
	parts := []string{}
	// Handle errors share bits with HWINUSE / NETINUSE
	if handle := remaining & statusHandleMask; handle == StatusIllegalHardware ||
		handle == StatusIllegalNet || handle == StatusIllegalClient {
		parts = append(parts, StatusDescriptionMap[handle])
		remaining &^= handle
	}
	for _, flag := range statusFlags {
		if remaining&flag != 0 {
			parts = append(parts, StatusDescriptionMap[flag])
			remaining &^= flag
		}
	}
	if remaining != 0 {
		parts = append(parts, fmt.Sprintf("undefined error bits x%x", uint32(remaining)))
	}
	return strings.Join(parts, ", ")
}

func (status Status) String() string {
	return fmt.Sprintf("x%x", uint32(status))
}

// Err converts a status to an error, nil for [StatusOK]
func (status Status) Err() error {
	if status.OK() {
		return nil
	}
	return &DriverError{Status: status, Text: status.Text()}
}
