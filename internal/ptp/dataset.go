package ptp

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// utf16le decodes PTP strings. PTP strings never carry a BOM.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// datasetReader walks a data-phase payload. The first decoding error sticks;
// later reads return zero values so decoders can check err once at the end.
type datasetReader struct {
	b   []byte
	off int
	err error
}

func (r *datasetReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if n < 0 || r.off+n > len(r.b) {
		r.err = fmt.Errorf("%w: dataset truncated at offset %d (need %d of %d bytes)",
			ErrMalformed, r.off, n, len(r.b))

		return nil
	}

	out := r.b[r.off : r.off+n]
	r.off += n

	return out
}

func (r *datasetReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}

	return 0
}

func (r *datasetReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}

	return 0
}

func (r *datasetReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}

	return 0
}

// str reads a PTP string: a count of UTF-16 code units (including the
// terminating NUL) followed by the code units.
func (r *datasetReader) str() string {
	n := int(r.u8())
	if n == 0 {
		return ""
	}

	raw := r.take(2 * n)
	if raw == nil {
		return ""
	}

	s, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		r.err = fmt.Errorf("%w: decoding string: %v", ErrMalformed, err)
		return ""
	}

	return strings.TrimRight(string(s), "\x00")
}

func (r *datasetReader) u16Array() []uint16 {
	n := int(r.u32())
	if r.err != nil || n == 0 {
		return nil
	}

	if n > (len(r.b)-r.off)/2 {
		r.err = fmt.Errorf("%w: uint16 array of %d elements exceeds dataset", ErrMalformed, n)
		return nil
	}

	out := make([]uint16, n)
	for i := range out {
		out[i] = r.u16()
	}

	return out
}

func (r *datasetReader) u32Array() []uint32 {
	n := int(r.u32())
	if r.err != nil || n == 0 {
		return nil
	}

	if n > (len(r.b)-r.off)/4 {
		r.err = fmt.Errorf("%w: uint32 array of %d elements exceeds dataset", ErrMalformed, n)
		return nil
	}

	out := make([]uint32, n)
	for i := range out {
		out[i] = r.u32()
	}

	return out
}

// decodeDeviceInfo parses the GetDeviceInfo dataset.
func decodeDeviceInfo(b []byte) (*DeviceInfo, error) {
	r := &datasetReader{b: b}
	info := &DeviceInfo{}

	info.StandardVersion = r.u16()
	info.VendorExtensionID = r.u32()
	_ = r.u16() // vendor extension version
	_ = r.str() // vendor extension description
	_ = r.u16() // functional mode
	info.OperationsSupported = r.u16Array()
	_ = r.u16Array() // events supported
	_ = r.u16Array() // device properties supported
	_ = r.u16Array() // capture formats
	_ = r.u16Array() // image formats
	info.Manufacturer = r.str()
	info.Model = r.str()
	info.DeviceVersion = r.str()
	info.SerialNumber = r.str()

	if r.err != nil {
		return nil, fmt.Errorf("ptp: decoding DeviceInfo: %w", r.err)
	}

	return info, nil
}

// decodeObjectInfo parses the GetObjectInfo dataset.
func decodeObjectInfo(b []byte) (*ObjectInfo, error) {
	r := &datasetReader{b: b}
	info := &ObjectInfo{}

	info.StorageID = StorageID(r.u32())
	info.Format = r.u16()
	_ = r.u16() // protection status
	info.CompressedSize = r.u32()
	_ = r.u16() // thumb format
	_ = r.u32() // thumb compressed size
	_ = r.u32() // thumb pix width
	_ = r.u32() // thumb pix height
	_ = r.u32() // image pix width
	_ = r.u32() // image pix height
	_ = r.u32() // image bit depth
	info.ParentObject = ObjectHandle(r.u32())
	_ = r.u16() // association type
	_ = r.u32() // association description
	_ = r.u32() // sequence number
	info.Filename = r.str()
	info.CaptureDate = r.str()
	info.ModificationDate = r.str()

	if r.err != nil {
		return nil, fmt.Errorf("ptp: decoding ObjectInfo: %w", r.err)
	}

	return info, nil
}

// decodeUint32Array parses a bare uint32 array dataset (storage IDs, handles).
func decodeUint32Array(b []byte) ([]uint32, error) {
	r := &datasetReader{b: b}

	out := r.u32Array()
	if r.err != nil {
		return nil, fmt.Errorf("ptp: decoding array: %w", r.err)
	}

	return out, nil
}
