package sdo

import (
	"errors"
	"fmt"

	"github.com/mupfdev/CANopenTerm/pkg/can"
)

var ErrInvalidDataType = errors.New("sdo data type should be 1, 2 or 4 bytes")

const (
	ClientBaseId = 0x600
	ServerBaseId = 0x580
	MaxNodeId    = 0x7F
)

// Size class of an expedited SDO value, the numeric value is the size in bytes
type DataType uint8

const (
	Unsigned8  DataType = 1
	Unsigned16 DataType = 2
	Unsigned32 DataType = 4
)

var DataTypeDescriptionMap = map[DataType]string{
	Unsigned8:  "UNSIGNED8",
	Unsigned16: "UNSIGNED16",
	Unsigned32: "UNSIGNED32",
}

func (dataType DataType) Valid() bool {
	_, ok := DataTypeDescriptionMap[dataType]
	return ok
}

func (dataType DataType) String() string {
	if description, ok := DataTypeDescriptionMap[dataType]; ok {
		return description
	}
	return fmt.Sprintf("unknown data type (%d)", uint8(dataType))
}

// COB-ID of client -> server requests for a node.
// Node ids outside of 0..127 are brought back in range.
func ClientId(nodeId uint8) uint32 {
	return ClientBaseId + uint32(nodeId%(MaxNodeId+1))
}

// BuildWrite creates the header of an SDO write request frame.
// Only the identifier and the length (size of data type) are set.
// TODO: encode the CiA 301 initiate download command specifier, index and value
// in the payload once the expected layout of index (1 byte) and subindex (2 bytes) is settled.
func BuildWrite(index uint8, subIndex uint16, dataType DataType, value uint32, nodeId uint8) (can.Frame, error) {
	if !dataType.Valid() {
		return can.Frame{}, fmt.Errorf("%w : %v", ErrInvalidDataType, uint8(dataType))
	}
	return can.Encode(ClientId(nodeId), uint8(dataType), make([]byte, dataType))
}
