package http

import (
	"fmt"
	"strconv"
	"strings"
)

var GatewayErrorDescriptionMap = map[int]string{
	100: "Request not supported",
	101: "Syntax error",
	102: "Request not processed due to internal state",
	103: "Bit rate not supported",
	104: "SDO data type not supported",
	105: "CAN frame not accepted by adapter",
	601: "CAN interface currently not available",
}

var (
	ErrGwRequestNotSupported      = &GatewayError{Code: 100}
	ErrGwSyntaxError              = &GatewayError{Code: 101}
	ErrGwRequestNotProcessed      = &GatewayError{Code: 102}
	ErrGwBitRateNotSupported      = &GatewayError{Code: 103}
	ErrGwDataTypeNotSupported     = &GatewayError{Code: 104}
	ErrGwFrameNotAccepted         = &GatewayError{Code: 105}
	ErrGwCANInterfaceNotAvailable = &GatewayError{Code: 601}
)

type GatewayError struct {
	Code int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("ERROR:%d", e.Code)
}

func (e *GatewayError) Description() string {
	if description, ok := GatewayErrorDescriptionMap[e.Code]; ok {
		return description
	}
	return "unknown gateway error"
}

func NewGatewayError(code int) error {
	return &GatewayError{Code: code}
}

// Decode an "ERROR:<code>" response field, nil for any other value
func parseGatewayError(response string) error {
	if !strings.HasPrefix(response, "ERROR:") {
		return nil
	}
	code, err := strconv.Atoi(strings.TrimPrefix(response, "ERROR:"))
	if err != nil {
		return fmt.Errorf("error decoding error field ('ERROR:' : %v)", err)
	}
	return NewGatewayError(code)
}
