package ptp

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is(err, ptp.ErrNotSupported) to check.
var (
	ErrNotSupported        = errors.New("ptp: operation not supported")
	ErrPartialUnsupported  = errors.New("ptp: partial object transfer not supported")
	ErrSessionNotOpen      = errors.New("ptp: session not open")
	ErrDeviceBusy          = errors.New("ptp: device busy")
	ErrInvalidObjectHandle = errors.New("ptp: invalid object handle")
	ErrMalformed           = errors.New("ptp: malformed container")
	ErrNoDevices           = errors.New("ptp: no devices found")
)

// ResponseError carries a non-OK response code returned by the device.
type ResponseError struct {
	Op   uint16
	Code uint16
	Err  error // sentinel, for errors.Is(); nil when the code has none
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("ptp: %s returned %s (0x%04x)", opName(e.Op), responseName(e.Code), e.Code)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// classifyResponse maps a response code to a sentinel error.
func classifyResponse(code uint16) error {
	switch code {
	case RespOperationNotSupported:
		return ErrNotSupported
	case RespSessionNotOpen:
		return ErrSessionNotOpen
	case RespDeviceBusy:
		return ErrDeviceBusy
	case RespInvalidObjectHandle:
		return ErrInvalidObjectHandle
	default:
		return nil
	}
}

func opName(op uint16) string {
	if name, ok := opNames[op]; ok {
		return name
	}

	return fmt.Sprintf("op 0x%04x", op)
}

func responseName(code uint16) string {
	if name, ok := responseNames[code]; ok {
		return name
	}

	return "Unknown"
}
