package serialport

import "codeberg.org/mutker/printerctl/internal/errors"

const (
	// Port Resolution Errors
	ErrPortNotFound  = errors.ErrorCode("serial_port_not_found")
	ErrPortAmbiguous = errors.ErrorCode("serial_port_ambiguous")
	ErrEnumFailed    = errors.ErrorCode("serial_enumeration_failed")

	// Transport Errors
	ErrOpenFailed  = errors.ErrorCode("serial_open_failed")
	ErrPortClosed  = errors.ErrorCode("serial_port_closed")
	ErrWriteFailed = errors.ErrorCode("serial_write_failed")
	ErrReadFailed  = errors.ErrorCode("serial_read_failed")
	ErrCloseFailed = errors.ErrorCode("serial_close_failed")
)
