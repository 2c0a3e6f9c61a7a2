package can

import "sync"

// Gateway is the only path to the adapter driver.
// Every operation holds the same lock so that a write can never run
// concurrently with an initialize or uninitialize of the channel.
// Statuses are returned as is, interpretation is left to the caller.
type Gateway struct {
	mu     sync.Mutex
	driver Driver
}

func NewGateway(driver Driver) *Gateway {
	return &Gateway{driver: driver}
}

func (g *Gateway) Initialize(bitRate BitRate) Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Initialize(bitRate)
}

func (g *Gateway) Uninitialize() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Uninitialize()
}

func (g *Gateway) GetStatus() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.GetStatus()
}

func (g *Gateway) Write(frame Frame) Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Write(frame)
}

func (g *Gateway) Read() (Frame, Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Read()
}

// ErrorText uses the driver's own descriptions when available
func (g *Gateway) ErrorText(status Status) string {
	if texter, ok := g.driver.(ErrorTexter); ok {
		return texter.ErrorText(status)
	}
	return status.Text()
}
