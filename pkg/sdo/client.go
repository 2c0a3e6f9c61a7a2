package sdo

import (
	"github.com/mupfdev/CANopenTerm/pkg/can"
	log "github.com/sirupsen/logrus"
)

// FrameWriter is the transmit path used by the client
type FrameWriter interface {
	WriteFrame(frame can.Frame) can.Status
	ErrorText(status can.Status) string
}

// Client sends expedited SDO write requests to remote nodes.
// There is no reception of the server response.
type Client struct {
	writer FrameWriter
	logger *log.Entry
}

func NewClient(writer FrameWriter, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{writer: writer, logger: logger.WithField("service", "[SDO]")}
}

// Write a value to the object dictionary of nodeId.
// Transmission failures are logged and returned as a [can.DriverError].
func (client *Client) Write(index uint8, subIndex uint16, dataType DataType, value uint32, nodeId uint8) error {
	frame, err := BuildWrite(index, subIndex, dataType, value, nodeId)
	if err != nil {
		client.logger.Warnf("Could not write SDO: %v", err)
		return err
	}
	status := client.writer.WriteFrame(frame)
	if !status.OK() {
		client.logger.Warnf("Could not write SDO: %s", client.writer.ErrorText(status))
		return status.Err()
	}
	client.logger.Debugf("sent %v to node %v (x%x:x%x %v = x%x)", frame, nodeId%(MaxNodeId+1), index, subIndex, dataType, value)
	return nil
}
