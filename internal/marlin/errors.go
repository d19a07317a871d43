package marlin

import "codeberg.org/mutker/printerctl/internal/errors"

const (
	// Protocol Errors
	ErrAckTimeout    = errors.ErrorCode("marlin_ack_timeout")
	ErrSessionClosed = errors.ErrorCode("marlin_session_closed")
	ErrParseFailed   = errors.ErrorCode("marlin_parse_failed")

	// Poller Errors
	ErrPollerRunning = errors.ErrorCode("marlin_poller_already_running")
)
