package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mupfdev/CANopenTerm/pkg/bridge"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	"github.com/mupfdev/CANopenTerm/pkg/can/sim"
	"github.com/mupfdev/CANopenTerm/pkg/link"
	"github.com/mupfdev/CANopenTerm/pkg/sdo"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.DebugLevel)
}

type testEnv struct {
	adapter    *sim.Adapter
	supervisor *link.Supervisor
	client     *GatewayClient
	server     *httptest.Server
}

func createEnv(t *testing.T, connect bool) *testEnv {
	t.Helper()
	adapter := sim.New("sim0")
	gateway := can.NewGateway(adapter)
	supervisor := link.NewSupervisor(gateway, link.DefaultConfig(), nil)
	if connect {
		supervisor.Process()
		require.True(t, supervisor.Connected())
	}
	b := bridge.NewBridge(gateway, nil)
	gw := NewGatewayServer(supervisor, b, sdo.NewClient(b, nil), nil)
	server := httptest.NewServer(gw.Handler())
	t.Cleanup(server.Close)
	return &testEnv{adapter: adapter, supervisor: supervisor, client: NewGatewayClient(server.URL), server: server}
}

func TestInvalidRequests(t *testing.T) {
	env := createEnv(t, true)
	err := env.client.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, ErrGwRequestNotSupported, err)
	err = env.client.do(http.MethodDelete, "/status", nil, nil)
	assert.Equal(t, ErrGwRequestNotSupported, err)

	resp, err := http.Post(env.server.URL+"/write", "application/json", strings.NewReader("{"))
	require.Nil(t, err)
	defer resp.Body.Close()
	generic := GatewayResponse{}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(&generic))
	assert.Equal(t, "ERROR:101", generic.Response)
}

func TestStatus(t *testing.T) {
	env := createEnv(t, false)
	status, err := env.client.Status()
	require.Nil(t, err)
	assert.Equal(t, "UNINITIALIZED", status.State)
	assert.Equal(t, uint8(3), status.BitRate)
	assert.Equal(t, "250 kBit/s", status.Description)

	env.supervisor.Process()
	status, err = env.client.Status()
	require.Nil(t, err)
	assert.Equal(t, "CONNECTED", status.State)
	assert.Equal(t, "No error", status.Text)
}

func TestSetBitRate(t *testing.T) {
	env := createEnv(t, true)
	assert.Nil(t, env.client.SetBitRate(4))
	assert.Equal(t, can.BitRate125K, env.supervisor.BitRate())
	assert.Equal(t, link.Uninitialized, env.supervisor.State())

	err := env.client.SetBitRate(20)
	assert.Equal(t, ErrGwBitRateNotSupported, err)
	assert.Equal(t, can.BitRate5K, env.supervisor.BitRate())
}

func TestWriteRead(t *testing.T) {
	env := createEnv(t, true)
	env.adapter.SetReceiveOwn(true)

	_, _, ok, err := env.client.Read()
	assert.Nil(t, err)
	assert.False(t, ok)

	assert.Nil(t, env.client.Write(0x123, 8, 0xAABBCCDD, 0x11223344))
	sent := env.adapter.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, [8]byte{0xAA, 0xBB, 0xCC, 0xDD, 0x11, 0x22, 0x33, 0x44}, sent[0].Data)

	id, data, ok, err := env.client.Read()
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x123), id)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0x11, 0x22, 0x33, 0x44}, data)
}

func TestWriteErrors(t *testing.T) {
	env := createEnv(t, true)
	assert.Equal(t, ErrGwSyntaxError, env.client.Write(0x123, 9, 0, 0))
	assert.Equal(t, ErrGwFrameNotAccepted, env.client.Write(0x800, 1, 0, 0))

	env.supervisor.Uninitialize()
	assert.Equal(t, ErrGwCANInterfaceNotAvailable, env.client.Write(0x123, 1, 0, 0))
	_, _, _, err := env.client.Read()
	assert.Equal(t, ErrGwCANInterfaceNotAvailable, err)
}

func TestSDOWrite(t *testing.T) {
	env := createEnv(t, true)
	assert.Nil(t, env.client.WriteSDO(200, 0x17, 0, "u16", 1000))
	sent := env.adapter.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, uint32(0x648), sent[0].ID)
	assert.Equal(t, uint8(2), sent[0].DLC)

	assert.Equal(t, ErrGwDataTypeNotSupported, env.client.WriteSDO(5, 0x17, 0, "u64", 1))
	// Value too large for data type
	assert.Equal(t, ErrGwSyntaxError, env.client.WriteSDO(5, 0x17, 0, "u8", 256))

	env.adapter.SetBusStatus(can.StatusBusOff)
	assert.Equal(t, ErrGwFrameNotAccepted, env.client.WriteSDO(5, 0x17, 0, "u8", 1))
}

func TestGatewayError(t *testing.T) {
	assert.Equal(t, "ERROR:101", ErrGwSyntaxError.Error())
	assert.Equal(t, "Syntax error", ErrGwSyntaxError.Description())
	assert.Equal(t, NewGatewayError(100), parseGatewayError("ERROR:100"))
	assert.Nil(t, parseGatewayError("OK"))
	assert.NotNil(t, parseGatewayError("ERROR:abc"))
}
