package can

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFrameLength = errors.New("frame length should be between 0 and 8")
	ErrInvalidBitRate     = errors.New("bit rate index out of range")
	ErrHardwareRemoved    = errors.New("adapter hardware removed")
)

// DriverError is any non OK status reported by a driver
type DriverError struct {
	Status Status
	Text   string
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver error %v : %v", e.Status, e.Text)
}

// A removed adapter matches [ErrHardwareRemoved]
func (e *DriverError) Is(target error) bool {
	return target == ErrHardwareRemoved && e.Status == StatusIllegalHardware
}
