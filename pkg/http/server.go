package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/mupfdev/CANopenTerm/pkg/bridge"
	"github.com/mupfdev/CANopenTerm/pkg/link"
	"github.com/mupfdev/CANopenTerm/pkg/sdo"
	log "github.com/sirupsen/logrus"
)

const MaxBodySize = 4096

var DATATYPE_MAP = map[string]sdo.DataType{
	"u8":  sdo.Unsigned8,
	"u16": sdo.Unsigned16,
	"u32": sdo.Unsigned32,
}

// HTTP request to the server
type GatewayRequest struct {
	method  string
	command string // path without leading "/"
	body    []byte
}

// Handle a [GatewayRequest], returning a [GatewayError] replies with its code
type GatewayRequestHandler func(w *doneWriter, req *GatewayRequest) error

// Wrapper around [http.ResponseWriter] but keeps track of any writes already done
// This allows us to perform default behaviour if handler has not already sent a response
type doneWriter struct {
	http.ResponseWriter
	done bool
}

func (w *doneWriter) WriteHeader(status int) {
	w.done = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *doneWriter) Write(b []byte) (int, error) {
	w.done = true
	return w.ResponseWriter.Write(b)
}

// GatewayServer exposes the link status, the bit rate selection
// and frame / SDO writes over HTTP with JSON bodies.
type GatewayServer struct {
	logger     *log.Entry
	supervisor *link.Supervisor
	bridge     *bridge.Bridge
	sdoClient  *sdo.Client
	serveMux   *http.ServeMux
	routes     map[string]GatewayRequestHandler
}

func NewGatewayServer(supervisor *link.Supervisor, bridge *bridge.Bridge, sdoClient *sdo.Client, logger *log.Logger) *GatewayServer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	gw := &GatewayServer{
		logger:     logger.WithField("service", "[HTTP]"),
		supervisor: supervisor,
		bridge:     bridge,
		sdoClient:  sdoClient,
	}
	gw.serveMux = http.NewServeMux()
	gw.serveMux.HandleFunc("/", gw.handleRequest) // This base route handles all the requests
	gw.routes = make(map[string]GatewayRequestHandler)

	gw.addRoute(http.MethodGet, "status", gw.handleStatus)
	gw.addRoute(http.MethodPut, "bitrate", gw.handleBitRate)
	gw.addRoute(http.MethodPost, "write", gw.handleWrite)
	gw.addRoute(http.MethodGet, "read", gw.handleRead)
	gw.addRoute(http.MethodPost, "sdo", gw.handleSDOWrite)

	return gw
}

// Handler serves every route, mount it on an [http.Server]
func (gw *GatewayServer) Handler() http.Handler {
	return gw.serveMux
}

// Add a route to the server for handling a specific command
func (gw *GatewayServer) addRoute(method string, command string, handler GatewayRequestHandler) {
	gw.routes[method+" "+command] = handler
}

// Default handler of any HTTP request
// This parses the request and forwards it to the correct handler
func (gw *GatewayServer) handleRequest(w http.ResponseWriter, raw *http.Request) {
	gw.logger.Debugf("new request : %v %v", raw.Method, raw.URL)
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(raw.Body, MaxBodySize))
	if err != nil {
		writeError(w, ErrGwSyntaxError, "")
		return
	}
	req := &GatewayRequest{
		method:  raw.Method,
		command: strings.Trim(raw.URL.Path, "/"),
		body:    body,
	}
	route, ok := gw.routes[req.method+" "+req.command]
	if !ok {
		gw.logger.Debugf("no handler found for : '%v %v'", req.method, req.command)
		writeError(w, ErrGwRequestNotSupported, "")
		return
	}
	dw := &doneWriter{ResponseWriter: w}
	err = route(dw, req)
	if err != nil {
		writeError(w, err, "")
		return
	}
	if !dw.done {
		// No specific response has been given, reply with default success
		writeJSON(dw, GatewayResponse{Response: "OK"})
	}
}
