package socketcan

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	sockcan "github.com/brutella/can"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	"github.com/stretchr/testify/assert"
)

func TestRegistered(t *testing.T) {
	driver, err := can.NewDriver("socketcan", "can0")
	assert.Nil(t, err)
	assert.IsType(t, &Driver{}, driver)
}

func TestInitializeMissingInterface(t *testing.T) {
	driver := New("can42", nil)
	driver.lookup = func(name string) (*net.Interface, error) {
		return nil, fmt.Errorf("no such network interface")
	}
	assert.Equal(t, can.StatusIllegalHardware, driver.Initialize(can.DefaultBitRate))
	assert.Equal(t, can.StatusInitialize, driver.GetStatus())
	assert.Equal(t, can.StatusInitialize, driver.Write(can.Frame{ID: 0x100}))
	_, status := driver.Read()
	assert.Equal(t, can.StatusInitialize, status)
	assert.Equal(t, can.StatusInitialize, driver.Uninitialize())
}

func TestInitializeInterfaceDown(t *testing.T) {
	driver := New("can0", nil)
	driver.lookup = func(name string) (*net.Interface, error) {
		return &net.Interface{Name: name, Flags: 0}, nil
	}
	assert.Equal(t, can.StatusIllegalNet, driver.Initialize(can.DefaultBitRate))
}

func TestHandleQueuesStandardFrames(t *testing.T) {
	driver := New("can0", nil)
	driver.Handle(sockcan.Frame{ID: 0x123, Length: 2, Data: [8]uint8{1, 2}})
	driver.Handle(sockcan.Frame{ID: 0x18FF0000, Length: 8})
	assert.Equal(t, 1, driver.rx.GetOccupied())
	frame, ok := driver.rx.Pop()
	assert.True(t, ok)
	assert.Equal(t, can.Frame{ID: 0x123, DLC: 2, Data: [8]byte{1, 2}}, frame)
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, can.StatusOK, statusFromError(nil))
	assert.Equal(t, can.StatusXmtFull, statusFromError(syscall.ENOBUFS))
	assert.Equal(t, can.StatusXmtFull, statusFromError(fmt.Errorf("write: %w", syscall.EAGAIN)))
	assert.Equal(t, can.StatusIllegalNet, statusFromError(syscall.ENETDOWN))
	assert.Equal(t, can.StatusIllegalHardware, statusFromError(syscall.ENODEV))
	assert.Equal(t, can.StatusUnknown, statusFromError(errors.New("other")))
}
