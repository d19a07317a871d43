package serialport

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"codeberg.org/mutker/printerctl/internal/logger"
)

const readBufferSize = 256

// LineReader decodes the port's byte stream into newline-delimited lines and
// delivers each one to the bound handler from a dedicated goroutine.
type LineReader struct {
	port    *Port
	src     io.Reader
	handler LineHandler
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewReader binds a line handler to the port. The returned reader is inert
// until Start is called.
func (p *Port) NewReader(handler LineHandler) *LineReader {
	return &LineReader{port: p, src: p.conn, handler: handler}
}

// Start launches the read loop. Starting an already-running reader is a no-op.
func (r *LineReader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(r.stop, r.done)

	return nil
}

// Stop signals the read loop to exit and waits for it. Safe to call more
// than once and before Start.
func (r *LineReader) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	<-done
}

func (r *LineReader) loop(stop, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	var pending []byte

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := r.src.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := strings.TrimSuffix(string(pending[:i]), "\r")
				pending = pending[i+1:]
				r.handler.OnLine(line)
			}
		}
		if err != nil {
			if r.port != nil && r.port.isOpen() {
				logger.Error().Err(err).Str("port", r.port.Name()).Msg("serial read failed")
			}
			return
		}
		// n == 0 with a nil error is a read-timeout tick; loop and
		// re-check the stop channel.
	}
}
