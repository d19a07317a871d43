package serialport

import (
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	lines []string
}

func (h *recordingHandler) OnLine(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
}

func (h *recordingHandler) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.lines))
	copy(out, h.lines)

	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestLineReaderSplitsLines(t *testing.T) {
	handler := &recordingHandler{}
	reader := &LineReader{
		src:     strings.NewReader("ok\nT:20.38 /185.00\r\nok N2\n"),
		handler: handler,
	}

	require.NoError(t, reader.Start())
	waitFor(t, func() bool { return len(handler.recorded()) == 3 })
	reader.Stop()

	assert.Equal(t, []string{"ok", "T:20.38 /185.00", "ok N2"}, handler.recorded())
}

func TestLineReaderReassemblesPartialReads(t *testing.T) {
	handler := &recordingHandler{}
	// io.Reader contract allows arbitrarily small reads; feed one byte at a
	// time to force reassembly.
	reader := &LineReader{
		src:     iotest.OneByteReader(strings.NewReader("X:1.00 Y:2.00\nok\n")),
		handler: handler,
	}

	require.NoError(t, reader.Start())
	waitFor(t, func() bool { return len(handler.recorded()) == 2 })
	reader.Stop()

	assert.Equal(t, []string{"X:1.00 Y:2.00", "ok"}, handler.recorded())
}

func TestLineReaderDiscardsTrailingPartialLine(t *testing.T) {
	handler := &recordingHandler{}
	reader := &LineReader{
		src:     strings.NewReader("ok\nT:20."),
		handler: handler,
	}

	require.NoError(t, reader.Start())
	waitFor(t, func() bool { return len(handler.recorded()) == 1 })
	reader.Stop()

	assert.Equal(t, []string{"ok"}, handler.recorded())
}

func TestLineReaderStopIdempotent(t *testing.T) {
	handler := &recordingHandler{}
	reader := &LineReader{src: strings.NewReader("ok\n"), handler: handler}

	reader.Stop() // before Start: no-op
	require.NoError(t, reader.Start())
	reader.Stop()
	reader.Stop()
}

func TestLineReaderStartIdempotent(t *testing.T) {
	handler := &recordingHandler{}
	reader := &LineReader{src: strings.NewReader("ok\n"), handler: handler}

	require.NoError(t, reader.Start())
	require.NoError(t, reader.Start())
	waitFor(t, func() bool { return len(handler.recorded()) == 1 })
	reader.Stop()

	assert.Equal(t, []string{"ok"}, handler.recorded())
}
