package marlin

import (
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/printerctl/internal/errors"
	"codeberg.org/mutker/printerctl/internal/logger"
)

const (
	// ackQueueCapacity bounds memory when acknowledgements are produced
	// faster than any caller consumes them.
	ackQueueCapacity = 32768

	// DefaultAckTimeout is how long the convenience commands wait for the
	// firmware to acknowledge.
	DefaultAckTimeout = 30 * time.Second
)

// Well-known single-line commands.
const (
	cmdTemperatureReportingOn  = "M155S1"
	cmdTemperatureReportingOff = "M155S0"
	cmdReportPosition          = "M114"
	cmdRelativeMotion          = "G91"
)

// Session owns the protocol state for one printer connection: the latest
// telemetry per label, the raw text of the last report of each class, and
// the queue of pending acknowledgements.
//
// The transport's read loop is the sole writer of session state through
// OnLine. Responses carry no correlation tags, so commands must not be
// pipelined: SendCommandAwaitAck serializes callers and pairs each command
// with the next acknowledgement by arrival order.
type Session struct {
	writer     LineWriter
	ackTimeout time.Duration

	cmdMu sync.Mutex

	mu           sync.RWMutex
	temperatures map[string]TemperatureSample
	positions    map[string]PositionSample
	lastTempRep  *RawReport
	lastPosRep   *RawReport

	acks      chan string
	done      chan struct{}
	closeOnce sync.Once
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithAckTimeout overrides the acknowledgement timeout used by the
// convenience commands.
func WithAckTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		if timeout > 0 {
			s.ackTimeout = timeout
		}
	}
}

func NewSession(writer LineWriter, opts ...SessionOption) *Session {
	s := &Session{
		writer:       writer,
		ackTimeout:   DefaultAckTimeout,
		temperatures: make(map[string]TemperatureSample),
		positions:    make(map[string]PositionSample),
		acks:         make(chan string, ackQueueCapacity),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OnLine handles one decoded line from the transport. Acknowledgements are
// queued for the pending command, report lines update the telemetry maps,
// and anything unrecognized is logged and dropped. Parse failures never
// terminate the session.
func (s *Session) OnLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	switch Classify(line) {
	case LineAck:
		select {
		case s.acks <- line:
		case <-s.done:
		}
	case LineTemperatureReport:
		s.handleTemperatureReport(line)
	case LinePositionReport:
		s.handlePositionReport(line)
	default:
		logger.Debug().Str("line", line).Msg("unrecognized line from printer")
	}
}

func (s *Session) handleTemperatureReport(line string) {
	now := time.Now()

	s.mu.Lock()
	s.lastTempRep = &RawReport{Timestamp: now, Line: line}
	s.mu.Unlock()

	samples, err := ParseTemperatureReport(line, now)
	if err != nil {
		logger.Warn().Err(err).Str("line", line).Msg("discarding malformed temperature report")
		return
	}

	s.mu.Lock()
	for label, sample := range samples {
		s.temperatures[label] = sample
	}
	s.mu.Unlock()
}

func (s *Session) handlePositionReport(line string) {
	now := time.Now()

	s.mu.Lock()
	s.lastPosRep = &RawReport{Timestamp: now, Line: line}
	s.mu.Unlock()

	samples, err := ParsePositionReport(line, now)
	if err != nil {
		logger.Warn().Err(err).Str("line", line).Msg("discarding malformed position report")
		return
	}

	s.mu.Lock()
	for label, sample := range samples {
		s.positions[label] = sample
	}
	s.mu.Unlock()
}

// SendCommand writes one command line to the printer. No retry, no wait.
func (s *Session) SendCommand(command string) error {
	return s.writer.WriteLine(command)
}

// SendCommandAwaitAck sends one command and blocks until the firmware's next
// acknowledgement line arrives, the timeout elapses, or the session stops.
// At most one command is in flight at a time; concurrent callers queue on
// the internal mutex.
func (s *Session) SendCommandAwaitAck(command string, timeout time.Duration) (string, error) {
	errFactory := errors.New()

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if !s.Alive() {
		return "", errFactory.WithData(ErrSessionClosed, command)
	}

	if err := s.SendCommand(command); err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line := <-s.acks:
		return line, nil
	case <-s.done:
		return "", errFactory.WithData(ErrSessionClosed, command)
	case <-timer.C:
		return "", errFactory.WithData(ErrAckTimeout, command)
	}
}

// StartTemperatureReporting asks the firmware to stream temperature reports
// continuously.
func (s *Session) StartTemperatureReporting() (string, error) {
	return s.SendCommandAwaitAck(cmdTemperatureReportingOn, s.ackTimeout)
}

// StopTemperatureReporting disables the continuous temperature stream.
func (s *Session) StopTemperatureReporting() (string, error) {
	return s.SendCommandAwaitAck(cmdTemperatureReportingOff, s.ackTimeout)
}

// ReportPosition requests a single position report.
func (s *Session) ReportPosition() (string, error) {
	return s.SendCommandAwaitAck(cmdReportPosition, s.ackTimeout)
}

// RelativeMotion switches the firmware to relative positioning mode.
func (s *Session) RelativeMotion() (string, error) {
	return s.SendCommandAwaitAck(cmdRelativeMotion, s.ackTimeout)
}

// Stop marks the session closed and wakes any caller blocked on an
// acknowledgement. Idempotent.
func (s *Session) Stop() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Alive reports whether the session has not been stopped.
func (s *Session) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Temperatures returns a copy of the latest temperature sample per sensor
// label.
func (s *Session) Temperatures() map[string]TemperatureSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]TemperatureSample, len(s.temperatures))
	for label, sample := range s.temperatures {
		out[label] = sample
	}

	return out
}

// Positions returns a copy of the latest position sample per axis label.
func (s *Session) Positions() map[string]PositionSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]PositionSample, len(s.positions))
	for label, sample := range s.positions {
		out[label] = sample
	}

	return out
}

// Temperature returns the latest sample for one sensor label.
func (s *Session) Temperature(label string) (TemperatureSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sample, ok := s.temperatures[label]

	return sample, ok
}

// Position returns the latest sample for one axis label.
func (s *Session) Position(label string) (PositionSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sample, ok := s.positions[label]

	return sample, ok
}

// LastTemperatureReport returns the raw text of the most recent temperature
// report, parsed or not.
func (s *Session) LastTemperatureReport() *RawReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastTempRep
}

// LastPositionReport returns the raw text of the most recent position
// report, parsed or not.
func (s *Session) LastPositionReport() *RawReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastPosRep
}
