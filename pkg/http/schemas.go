package http

// Generic response from the server, "OK" or "ERROR:<code>"
type GatewayResponse struct {
	Response string `json:"response"`
	Text     string `json:"text,omitempty"` // Decoded adapter status for failed operations
}

type StatusResponse struct {
	Response    string `json:"response"`
	State       string `json:"state"`
	BitRate     uint8  `json:"bitrate"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Text        string `json:"text"`
}

type BitRateRequest struct {
	BitRate uint `json:"bitrate"`
}

type BitRateResponse struct {
	Response    string `json:"response"`
	BitRate     uint8  `json:"bitrate"`
	Description string `json:"description"`
}

// Numbers are given as strings, decimal or 0x prefixed hexadecimal
type WriteRequest struct {
	Id     string `json:"id"`
	Length int    `json:"length"`
	High   string `json:"high"`
	Low    string `json:"low"`
}

type ReadResponse struct {
	Response string `json:"response"`
	Id       uint32 `json:"id"`
	Length   uint8  `json:"length"`
	Data     string `json:"data"`
}

type SDOWriteRequest struct {
	Index    string `json:"index"`
	SubIndex string `json:"subindex"`
	Datatype string `json:"datatype"`
	Value    string `json:"value"`
	NodeId   string `json:"node"`
}
