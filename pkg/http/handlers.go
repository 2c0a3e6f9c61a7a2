package http

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mupfdev/CANopenTerm/pkg/can"
	"github.com/mupfdev/CANopenTerm/pkg/sdo"
)

func writeJSON(w http.ResponseWriter, response any) {
	raw, err := json.Marshal(response)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write(raw)
}

// Reply with an "ERROR:<code>" response, any error that is not
// a [GatewayError] is reported as not processed
func writeError(w http.ResponseWriter, err error, text string) {
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		gwErr = ErrGwRequestNotProcessed
		if text == "" {
			text = err.Error()
		}
	}
	writeJSON(w, GatewayResponse{Response: gwErr.Error(), Text: text})
}

func parseUint(value string, bitSize int) (uint64, error) {
	parsed, err := strconv.ParseUint(value, 0, bitSize)
	if err != nil {
		return 0, ErrGwSyntaxError
	}
	return parsed, nil
}

func (gw *GatewayServer) handleStatus(w *doneWriter, req *GatewayRequest) error {
	rate := gw.supervisor.BitRate()
	status := gw.supervisor.Status()
	writeJSON(w, StatusResponse{
		Response:    "OK",
		State:       gw.supervisor.State().String(),
		BitRate:     rate.Index(),
		Description: rate.String(),
		Status:      status.String(),
		Text:        gw.bridge.ErrorText(status),
	})
	return nil
}

func (gw *GatewayServer) handleBitRate(w *doneWriter, req *GatewayRequest) error {
	var request BitRateRequest
	if err := json.Unmarshal(req.body, &request); err != nil {
		return ErrGwSyntaxError
	}
	if err := gw.supervisor.SetBitRate(request.BitRate); err != nil {
		// Clamped selection has been applied, still report it
		gw.logger.Warnf("bit rate request : %v", err)
		return ErrGwBitRateNotSupported
	}
	rate := gw.supervisor.BitRate()
	writeJSON(w, BitRateResponse{Response: "OK", BitRate: rate.Index(), Description: rate.String()})
	return nil
}

func (gw *GatewayServer) handleWrite(w *doneWriter, req *GatewayRequest) error {
	var request WriteRequest
	if err := json.Unmarshal(req.body, &request); err != nil {
		return ErrGwSyntaxError
	}
	id, err := parseUint(request.Id, 32)
	if err != nil {
		return err
	}
	high, err := parseUint(request.High, 32)
	if err != nil {
		return err
	}
	low, err := parseUint(request.Low, 32)
	if err != nil {
		return err
	}
	if request.Length < 0 || request.Length > can.MaxDataLength {
		return ErrGwSyntaxError
	}
	if !gw.supervisor.Connected() {
		return ErrGwCANInterfaceNotAvailable
	}
	if !gw.bridge.Write(uint32(id), request.Length, uint32(high), uint32(low)) {
		return ErrGwFrameNotAccepted
	}
	return nil
}

func (gw *GatewayServer) handleRead(w *doneWriter, req *GatewayRequest) error {
	if !gw.supervisor.Connected() {
		return ErrGwCANInterfaceNotAvailable
	}
	frame, status := gw.bridge.Read()
	if status == can.StatusQRcvEmpty {
		writeJSON(w, GatewayResponse{Response: "EMPTY"})
		return nil
	}
	if !status.OK() {
		writeError(w, ErrGwRequestNotProcessed, gw.bridge.ErrorText(status))
		return nil
	}
	writeJSON(w, ReadResponse{
		Response: "OK",
		Id:       frame.ID,
		Length:   frame.DLC,
		Data:     "0x" + hex.EncodeToString(frame.Payload()),
	})
	return nil
}

func (gw *GatewayServer) handleSDOWrite(w *doneWriter, req *GatewayRequest) error {
	var request SDOWriteRequest
	if err := json.Unmarshal(req.body, &request); err != nil {
		return ErrGwSyntaxError
	}
	dataType, ok := DATATYPE_MAP[request.Datatype]
	if !ok {
		gw.logger.Errorf("requested datatype is either wrong or unsupported : %v", request.Datatype)
		return ErrGwDataTypeNotSupported
	}
	index, err := parseUint(request.Index, 8)
	if err != nil {
		return err
	}
	subIndex, err := parseUint(request.SubIndex, 16)
	if err != nil {
		return err
	}
	value, err := parseUint(request.Value, 8*int(dataType))
	if err != nil {
		return err
	}
	nodeId, err := parseUint(request.NodeId, 8)
	if err != nil {
		return err
	}
	if !gw.supervisor.Connected() {
		return ErrGwCANInterfaceNotAvailable
	}
	err = gw.sdoClient.Write(uint8(index), uint16(subIndex), dataType, uint32(value), uint8(nodeId))
	var driverErr *can.DriverError
	if errors.As(err, &driverErr) {
		writeError(w, ErrGwFrameNotAccepted, driverErr.Text)
		return nil
	}
	if errors.Is(err, sdo.ErrInvalidDataType) {
		return ErrGwDataTypeNotSupported
	}
	return err
}
