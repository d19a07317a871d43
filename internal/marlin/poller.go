package marlin

import (
	"sync"
	"time"

	"codeberg.org/mutker/printerctl/internal/errors"
	"codeberg.org/mutker/printerctl/internal/logger"
)

// DefaultPollInterval is the pause between periodic position requests.
const DefaultPollInterval = time.Second

// Poller is the background task bound to one session. Once started it
// enables continuous temperature reporting on the firmware and requests a
// position report every interval until stopped.
type Poller struct {
	session   *Session
	reader    Reader
	transport Transport
	closePort bool
	interval  time.Duration

	mu       sync.Mutex
	started  bool
	running  bool
	tornDown bool
	stop     chan struct{}
	done     chan struct{}
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the position poll interval.
func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithOwnedTransport makes Stop close the transport. Use it when the poller
// is handed a port nobody else manages; leave it off when the caller opened
// the port and will close it.
func WithOwnedTransport() PollerOption {
	return func(p *Poller) {
		p.closePort = true
	}
}

// NewPoller binds a poller to a session, the reader that feeds it, and the
// transport carrying both.
func NewPoller(session *Session, reader Reader, transport Transport, opts ...PollerOption) *Poller {
	p := &Poller{
		session:   session,
		reader:    reader,
		transport: transport,
		interval:  DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start brings the poller into its running state: the transport's read loop
// is started if it is not already, continuous temperature reporting is
// enabled, and the periodic position loop begins.
func (p *Poller) Start() error {
	errFactory := errors.New()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errFactory.New(ErrPollerRunning)
	}

	if err := p.reader.Start(); err != nil {
		return err
	}

	if _, err := p.session.StartTemperatureReporting(); err != nil {
		// Undo the reader start so a failed Start leaks nothing.
		p.reader.Stop()
		if p.closePort {
			if closeErr := p.transport.Close(); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("failed to close serial port")
			}
		}
		return err
	}

	p.started = true
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(p.stop, p.done)

	return nil
}

func (p *Poller) loop(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.session.ReportPosition(); err != nil {
			// A failed poll ends polling; whether a restart is safe
			// is the caller's call.
			logger.Error().Err(err).Msg("position poll failed, polling stopped")
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop shuts the poller down in order: the poll loop is signaled and joined,
// temperature streaming is disabled, the session is stopped, and the
// transport is closed if this poller owns it. Calling Stop again afterwards,
// or before Start, is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Stop before Start, or after full teardown, has nothing to act on.
	if !p.started {
		return
	}

	if p.running {
		close(p.stop)
		<-p.done
		p.running = false
		p.stop = nil
		p.done = nil
	}

	if p.tornDown {
		return
	}
	p.tornDown = true

	if _, err := p.session.StopTemperatureReporting(); err != nil {
		logger.Warn().Err(err).Msg("failed to disable temperature reporting")
	}
	p.session.Stop()
	p.reader.Stop()

	if p.closePort {
		if err := p.transport.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close serial port")
		}
	}
}
