package marlin

// LineWriter is the outbound capability the session needs from a transport:
// write one text line, terminator included by the implementation.
type LineWriter interface {
	WriteLine(text string) error
}

// Transport extends LineWriter with the ability to release the underlying
// connection. The poller closes it during shutdown when it owns the port.
type Transport interface {
	LineWriter
	Close() error
}

// Reader runs the transport's line-decoding loop, delivering each inbound
// line to the session. Start and Stop must tolerate repeated calls.
type Reader interface {
	Start() error
	Stop()
}
