package can

import "fmt"

const MaxDataLength = 8

// Encode builds a frame from its fields.
// Only the first length bytes of data are used, the rest of the payload is zero.
func Encode(id uint32, length uint8, data []byte) (Frame, error) {
	if length > MaxDataLength {
		return Frame{}, fmt.Errorf("%w : %v", ErrInvalidFrameLength, length)
	}
	if len(data) < int(length) {
		return Frame{}, fmt.Errorf("%w : %v declared, %v given", ErrInvalidFrameLength, length, len(data))
	}
	frame := Frame{ID: id, DLC: length}
	copy(frame.Data[:], data[:length])
	return frame, nil
}

// Decode splits a frame into its fields
func Decode(frame Frame) (id uint32, length uint8, data [8]byte) {
	return frame.ID, frame.DLC, frame.Data
}

// Payload returns the meaningful part of the data
func (frame Frame) Payload() []byte {
	if frame.DLC > MaxDataLength {
		return frame.Data[:]
	}
	return frame.Data[:frame.DLC]
}

func (frame Frame) String() string {
	return fmt.Sprintf("%03X [%d] % X", frame.ID, frame.DLC, frame.Payload())
}
