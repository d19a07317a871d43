// Package serialport wraps the byte-level serial connection and the
// enumeration of available ports. It decodes the inbound byte stream into
// discrete text lines and hands them to a line handler; it knows nothing
// about the printer protocol itself.
package serialport

import (
	"sync"
	"time"

	"codeberg.org/mutker/printerctl/internal/errors"
	"go.bug.st/serial"
)

// LineHandler receives each decoded line from the port, with the trailing
// newline (and any carriage return) stripped.
type LineHandler interface {
	OnLine(line string)
}

type Port struct {
	name string
	conn serial.Port
	wmu  sync.Mutex
	mu   sync.Mutex
	open bool
}

// Open opens the named serial device. The read timeout bounds how long a
// single read blocks; the reader loop relies on it to notice stop requests.
func Open(name string, baud int, readTimeout time.Duration) (*Port, error) {
	errFactory := errors.New()

	conn, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err).WithData(name)
	}

	if err := conn.SetReadTimeout(readTimeout); err != nil {
		conn.Close()
		return nil, errFactory.Wrap(ErrOpenFailed, err).WithData(name)
	}

	return &Port{name: name, conn: conn, open: true}, nil
}

func (p *Port) Name() string {
	return p.name
}

// WriteLine writes text followed by the line terminator. Exactly one write
// per call; no retries.
func (p *Port) WriteLine(text string) error {
	errFactory := errors.New()

	if !p.isOpen() {
		return errFactory.New(ErrPortClosed)
	}

	p.wmu.Lock()
	defer p.wmu.Unlock()

	if _, err := p.conn.Write([]byte(text + "\n")); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

// Close releases the underlying device. Safe to call more than once.
func (p *Port) Close() error {
	errFactory := errors.New()

	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return nil
	}
	p.open = false
	p.mu.Unlock()

	if err := p.conn.Close(); err != nil {
		return errFactory.Wrap(ErrCloseFailed, err)
	}

	return nil
}

func (p *Port) isOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.open
}
