package http

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GatewayClient talks to a remote [GatewayServer]
type GatewayClient struct {
	client  *http.Client
	baseURL string
}

func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		client:  &http.Client{},
		baseURL: baseURL,
	}
}

// HTTP request to the gateway, decoding the JSON response into resp
// Does high level error checking : http related errors, json decode errors
// or error code inside of the response
func (client *GatewayClient) do(method string, uri string, request any, resp any) error {
	var body io.Reader
	if request != nil {
		raw, err := json.Marshal(request)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, client.baseURL+uri, body)
	if err != nil {
		log.Errorf("[HTTP][CLIENT] http error : %v", err)
		return err
	}
	httpResp, err := client.client.Do(req)
	if err != nil {
		log.Errorf("[HTTP][CLIENT] http error : %v", err)
		return err
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return err
	}
	// Decode generic part first for errors
	generic := new(GatewayResponse)
	if err = json.Unmarshal(raw, generic); err != nil {
		log.Errorf("[HTTP][CLIENT] error decoding json response : %v", err)
		return err
	}
	if err = parseGatewayError(generic.Response); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return json.Unmarshal(raw, resp)
}

func (client *GatewayClient) Status() (*StatusResponse, error) {
	resp := new(StatusResponse)
	return resp, client.do(http.MethodGet, "/status", nil, resp)
}

func (client *GatewayClient) SetBitRate(index uint) error {
	return client.do(http.MethodPut, "/bitrate", BitRateRequest{BitRate: index}, nil)
}

// Write a CAN frame, data given as two big endian words
func (client *GatewayClient) Write(id uint32, length int, high uint32, low uint32) error {
	return client.do(http.MethodPost, "/write", WriteRequest{
		Id:     fmt.Sprintf("0x%x", id),
		Length: length,
		High:   fmt.Sprintf("0x%x", high),
		Low:    fmt.Sprintf("0x%x", low),
	}, nil)
}

// Read next received frame, ok is false if no frame is available
func (client *GatewayClient) Read() (id uint32, data []byte, ok bool, err error) {
	resp := new(ReadResponse)
	err = client.do(http.MethodGet, "/read", nil, resp)
	if err != nil || resp.Response != "OK" {
		return 0, nil, false, err
	}
	data, err = hex.DecodeString(strings.TrimPrefix(resp.Data, "0x"))
	if err != nil {
		return 0, nil, false, err
	}
	return resp.Id, data, true, nil
}

// Write via SDO
func (client *GatewayClient) WriteSDO(nodeId uint8, index uint8, subIndex uint16, datatype string, value uint32) error {
	return client.do(http.MethodPost, "/sdo", SDOWriteRequest{
		Index:    fmt.Sprintf("0x%x", index),
		SubIndex: fmt.Sprintf("0x%x", subIndex),
		Datatype: datatype,
		Value:    fmt.Sprint(value),
		NodeId:   fmt.Sprint(nodeId),
	}, nil)
}
