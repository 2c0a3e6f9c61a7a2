package link

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultRetryDelay   = 10 * time.Millisecond
)

type Config struct {
	PollInterval time.Duration // Delay between two status polls while connected
	RetryDelay   time.Duration // Delay before retrying a failed initialization
	BitRate      can.BitRate
}

func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		RetryDelay:   DefaultRetryDelay,
		BitRate:      can.DefaultBitRate,
	}
}

// Supervisor owns the link to the adapter.
// It brings the channel up at the selected bit rate, polls its status
// while connected and detects removal of the adapter.
// All initialize / uninitialize transitions go through the supervisor.
type Supervisor struct {
	logger       *log.Entry
	gateway      *can.Gateway
	pollInterval time.Duration
	mu           sync.Mutex
	retry        backoff.BackOff
	failure      can.Status // Last reported init failure, used to avoid flooding the log
	state        atomic.Uint32
	bitRate      atomic.Uint32
	status       atomic.Uint32
	listeners    []Listener
	cancel       context.CancelFunc
	wg           *sync.WaitGroup
}

func NewSupervisor(gateway *can.Gateway, config Config, logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	supervisor := &Supervisor{
		logger:       logger.WithField("service", "[LINK]"),
		gateway:      gateway,
		pollInterval: config.PollInterval,
		retry:        backoff.NewConstantBackOff(config.RetryDelay),
		wg:           &sync.WaitGroup{},
	}
	rate, _ := can.BitRateFromIndex(uint(config.BitRate.Index()))
	supervisor.bitRate.Store(uint32(rate))
	return supervisor
}

// Replace the policy used for delaying initialization retries
func (s *Supervisor) SetBackOff(retry backoff.BackOff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retry = retry
}

// Add a listener for link state transitions
func (s *Supervisor) Subscribe(listener Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) Connected() bool {
	return s.State() == Connected
}

// Currently selected bit rate, applied on next initialization
func (s *Supervisor) BitRate() can.BitRate {
	return can.BitRate(s.bitRate.Load())
}

// Last status reported by the adapter, cleared when the link is released
func (s *Supervisor) Status() can.Status {
	return can.Status(s.status.Load())
}

// SetBitRate selects a bit rate by its index in the bit rate table.
// Out of range indexes select the last entry and return [can.ErrInvalidBitRate].
// A connected link is released and re-initialized at the new rate.
func (s *Supervisor) SetBitRate(index uint) error {
	rate, ok := can.BitRateFromIndex(index)
	var err error
	if !ok {
		err = fmt.Errorf("%w : %v, using %v", can.ErrInvalidBitRate, index, rate)
		s.logger.Info(err)
	}
	s.mu.Lock()
	s.bitRate.Store(uint32(rate))
	var events []Event
	if s.State() == Connected {
		s.gateway.Uninitialize()
		events = append(events, s.transition(Uninitialized, can.StatusOK))
	}
	listeners := s.listeners
	s.mu.Unlock()
	s.logger.Infof("bit rate set to %v", rate)
	notify(listeners, events)
	return err
}

// Uninitialize releases the adapter channel.
// It can be called in any state and any number of times.
func (s *Supervisor) Uninitialize() {
	s.mu.Lock()
	s.gateway.Uninitialize()
	s.status.Store(uint32(can.StatusOK))
	var events []Event
	if s.State() == Connected {
		events = append(events, s.transition(Uninitialized, can.StatusOK))
	}
	listeners := s.listeners
	s.mu.Unlock()
	notify(listeners, events)
}

// Process runs one iteration of the supervision loop and
// returns the delay to wait before the next one.
func (s *Supervisor) Process() time.Duration {
	s.mu.Lock()
	var events []Event
	var delay time.Duration
	if s.State() != Connected {
		events, delay = s.connect()
	} else {
		events, delay = s.poll()
	}
	listeners := s.listeners
	s.mu.Unlock()
	notify(listeners, events)
	return delay
}

// Must be called with lock held
func (s *Supervisor) connect() ([]Event, time.Duration) {
	rate := s.BitRate()
	status := s.gateway.Initialize(rate)
	s.status.Store(uint32(status))
	if status.OK() {
		s.failure = can.StatusOK
		s.retry.Reset()
		s.logger.Info("CAN successfully initialised")
		return []Event{s.transition(Connected, status)}, s.pollInterval
	}
	text := s.gateway.ErrorText(status)
	if status != s.failure {
		s.logger.Warnf("CAN initialisation at %v failed : %v", rate, text)
	} else {
		s.logger.Debugf("CAN initialisation at %v failed : %v", rate, text)
	}
	s.failure = status
	delay := s.retry.NextBackOff()
	if delay == backoff.Stop {
		s.retry.Reset()
		delay = s.retry.NextBackOff()
	}
	if delay < 0 {
		delay = DefaultRetryDelay
	}
	return nil, delay
}

// Must be called with lock held
func (s *Supervisor) poll() ([]Event, time.Duration) {
	status := s.gateway.GetStatus()
	if status == can.StatusIllegalHardware {
		s.status.Store(uint32(can.StatusOK))
		s.gateway.Uninitialize()
		s.logger.Warn("CAN de-initialised: USB-dongle removed?")
		return []Event{s.transition(Faulted, status)}, s.pollInterval
	}
	if status != s.Status() && !status.OK() {
		s.logger.Warnf("CAN status : %v", s.gateway.ErrorText(status))
	}
	s.status.Store(uint32(status))
	return nil, s.pollInterval
}

// Must be called with lock held
func (s *Supervisor) transition(to State, status can.Status) Event {
	from := State(s.state.Swap(uint32(to)))
	if to != Connected {
		s.status.Store(uint32(can.StatusOK))
	}
	event := Event{From: from, To: to, Status: status, BitRate: s.BitRate()}
	s.logger.Debugf("transition %v", event)
	return event
}

func notify(listeners []Listener, events []Event) {
	for _, event := range events {
		for _, listener := range listeners {
			listener.Handle(event)
		}
	}
}

// Supervision loop, exits when context is cancelled
func (s *Supervisor) run(ctx context.Context) {
	s.logger.Info("starting link supervision")
	timer := time.NewTimer(0)
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			s.shutdown()
			s.logger.Info("exited link supervision")
			return
		case <-timer.C:
			timer.Reset(s.Process())
		}
	}
}

// Release the link on exit if it is up
func (s *Supervisor) shutdown() {
	s.mu.Lock()
	var events []Event
	if s.State() == Connected {
		s.gateway.Uninitialize()
		events = append(events, s.transition(Uninitialized, can.StatusOK))
	}
	listeners := s.listeners
	s.mu.Unlock()
	notify(listeners, events)
}

// Start supervision, this will be run inside of a go routine
// Call Stop() to stop supervision or cancel the context
// Call Wait() to wait for end of execution
func (s *Supervisor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	return nil
}

// Stop supervision, the link is released if connected
// Wait should be called in order to make sure that the routine has stopped
func (s *Supervisor) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Wait for supervision to finish (blocking)
func (s *Supervisor) Wait() error {
	s.wg.Wait()
	return nil
}
