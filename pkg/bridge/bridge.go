package bridge

import (
	"encoding/binary"

	"github.com/mupfdev/CANopenTerm/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Bridge is the entry point for commands sending and receiving raw frames
type Bridge struct {
	logger  *log.Entry
	gateway *can.Gateway
}

func NewBridge(gateway *can.Gateway, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Bridge{logger: logger.WithField("service", "[BRIDGE]"), gateway: gateway}
}

// Write sends a frame whose data is given as two words, high holds
// bytes 0 to 3 and low bytes 4 to 7, most significant byte first.
// It returns true if the adapter accepted the frame. There is no retry.
func (b *Bridge) Write(id uint32, length int, high uint32, low uint32) bool {
	if length < 0 {
		b.logger.Warnf("Could not write CAN frame: negative length %v", length)
		return false
	}
	data := make([]byte, 8)
	binary.BigEndian.PutUint32(data[0:4], high)
	binary.BigEndian.PutUint32(data[4:8], low)
	frame, err := can.Encode(id, uint8(min(length, 0xFF)), data)
	if err != nil {
		b.logger.Warnf("Could not write CAN frame: %v", err)
		return false
	}
	return b.WriteFrame(frame).OK()
}

// WriteFrame sends an already built frame and returns the raw adapter status
func (b *Bridge) WriteFrame(frame can.Frame) can.Status {
	status := b.gateway.Write(frame)
	b.ReportError("Could not write CAN frame", status)
	if status.OK() {
		b.logger.Debugf("sent %v", frame)
	}
	return status
}

// Read pops the next received frame, [can.StatusQRcvEmpty] when there is none
func (b *Bridge) Read() (can.Frame, can.Status) {
	frame, status := b.gateway.Read()
	if status != can.StatusQRcvEmpty {
		b.ReportError("Could not read CAN frame", status)
	}
	return frame, status
}

func (b *Bridge) ErrorText(status can.Status) string {
	return b.gateway.ErrorText(status)
}

// ReportError logs "context: text" for any non OK status
func (b *Bridge) ReportError(context string, status can.Status) {
	if status.OK() {
		return
	}
	text := b.gateway.ErrorText(status)
	if context == "" {
		b.logger.Warn(text)
		return
	}
	b.logger.Warnf("%s: %s", context, text)
}
