package slcan

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/mupfdev/CANopenTerm/pkg/can"
)

var (
	ErrUnsupportedFrame = errors.New("only standard data frames are supported")
	ErrMalformedFrame   = errors.New("malformed slcan frame")
)

// Setup commands S0..S8, bit rates that are not listed have no slcan code
var bitRateCommands = map[can.BitRate]string{
	can.BitRate10K:  "S0",
	can.BitRate20K:  "S1",
	can.BitRate50K:  "S2",
	can.BitRate100K: "S3",
	can.BitRate125K: "S4",
	can.BitRate250K: "S5",
	can.BitRate500K: "S6",
	can.BitRate800K: "S7",
	can.BitRate1M:   "S8",
}

// Encode a standard frame as "tiiildd..\r"
func encodeFrame(frame can.Frame) []byte {
	line := fmt.Sprintf("t%03X%d", frame.ID&can.CanSffMask, frame.DLC)
	line += fmt.Sprintf("%X", frame.Payload())
	return append([]byte(line), '\r')
}

// Decode a received line (without the trailing \r)
// Trailing characters such as a timestamp are ignored
func decodeFrame(line []byte) (can.Frame, error) {
	if len(line) == 0 {
		return can.Frame{}, ErrMalformedFrame
	}
	if line[0] != 't' {
		return can.Frame{}, fmt.Errorf("%w : %q", ErrUnsupportedFrame, line[0])
	}
	if len(line) < 5 {
		return can.Frame{}, ErrMalformedFrame
	}
	id, err := strconv.ParseUint(string(line[1:4]), 16, 16)
	if err != nil || uint32(id) > can.CanSffMask {
		return can.Frame{}, fmt.Errorf("%w : id %q", ErrMalformedFrame, line[1:4])
	}
	dlc := line[4] - '0'
	if dlc > can.MaxDataLength {
		return can.Frame{}, fmt.Errorf("%w : dlc %q", ErrMalformedFrame, line[4])
	}
	end := 5 + 2*int(dlc)
	if len(line) < end {
		return can.Frame{}, fmt.Errorf("%w : expecting %v data bytes", ErrMalformedFrame, dlc)
	}
	frame := can.Frame{ID: uint32(id), DLC: dlc}
	if _, err := hex.Decode(frame.Data[:dlc], line[5:end]); err != nil {
		return can.Frame{}, fmt.Errorf("%w : data %v", ErrMalformedFrame, err)
	}
	return frame, nil
}
