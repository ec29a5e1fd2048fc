package ptp

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the fixed part of every container: length, type, code and
// transaction ID.
const headerSize = 12

// maxParams is the most parameters a command or response container carries.
const maxParams = 5

// header is the decoded fixed part of a container.
type header struct {
	Length        uint32
	Type          uint16
	Code          uint16
	TransactionID uint32
}

// encodeCommand builds a command container.
func encodeCommand(code uint16, tid uint32, params []uint32) ([]byte, error) {
	if len(params) > maxParams {
		return nil, fmt.Errorf("ptp: %s: %d params, at most %d allowed", opName(code), len(params), maxParams)
	}

	buf := make([]byte, headerSize+4*len(params))
	putHeader(buf, header{
		Length:        uint32(len(buf)),
		Type:          containerCommand,
		Code:          code,
		TransactionID: tid,
	})

	for i, p := range params {
		binary.LittleEndian.PutUint32(buf[headerSize+4*i:], p)
	}

	return buf, nil
}

func putHeader(buf []byte, h header) {
	binary.LittleEndian.PutUint32(buf[0:], h.Length)
	binary.LittleEndian.PutUint16(buf[4:], h.Type)
	binary.LittleEndian.PutUint16(buf[6:], h.Code)
	binary.LittleEndian.PutUint32(buf[8:], h.TransactionID)
}

// parseHeader decodes the fixed container header from the start of b.
func parseHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, fmt.Errorf("%w: %d bytes, need %d for header", ErrMalformed, len(b), headerSize)
	}

	h := header{
		Length:        binary.LittleEndian.Uint32(b[0:]),
		Type:          binary.LittleEndian.Uint16(b[4:]),
		Code:          binary.LittleEndian.Uint16(b[6:]),
		TransactionID: binary.LittleEndian.Uint32(b[8:]),
	}

	if h.Length < headerSize {
		return header{}, fmt.Errorf("%w: declared length %d shorter than header", ErrMalformed, h.Length)
	}

	return h, nil
}

// parseParams decodes the uint32 parameters of a response container body.
func parseParams(body []byte) []uint32 {
	n := min(len(body)/4, maxParams)
	params := make([]uint32, n)

	for i := range n {
		params[i] = binary.LittleEndian.Uint32(body[4*i:])
	}

	return params
}
