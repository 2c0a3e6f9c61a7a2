package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}
	for id := uint32(0); id <= CanSffMask; id++ {
		for length := uint8(0); length <= MaxDataLength; length++ {
			frame, err := Encode(id, length, payload[:length])
			require.Nil(t, err)
			gotId, gotLength, gotData := Decode(frame)
			expected := [8]byte{}
			copy(expected[:], payload[:length])
			// Zero filled after length
			if gotId != id || gotLength != length || gotData != expected {
				t.Fatalf("round trip of %x [%d] gave %x [%d] % X", id, length, gotId, gotLength, gotData)
			}
		}
	}
}

func TestEncodeIgnoresExtraBytes(t *testing.T) {
	frame, err := Encode(0x100, 2, []byte{1, 2, 3, 4})
	assert.Nil(t, err)
	assert.Equal(t, [8]byte{1, 2}, frame.Data)
	assert.Equal(t, []byte{1, 2}, frame.Payload())
}

func TestEncodeInvalidLength(t *testing.T) {
	_, err := Encode(0x100, 9, make([]byte, 9))
	assert.ErrorIs(t, err, ErrInvalidFrameLength)
	_, err = Encode(0x100, 4, []byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidFrameLength)
}

func TestFrameString(t *testing.T) {
	frame, _ := Encode(0x81, 3, []byte{0x10, 0x20, 0xFF})
	assert.Equal(t, "081 [3] 10 20 FF", frame.String())
}
