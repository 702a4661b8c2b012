// Package firmware wraps a raw ECU image and its optional container header.
package firmware

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

const (
	// HeaderSize is the length of the container header
	HeaderSize = 32
	// Magic opens a container header
	Magic = "ECUC"

	vendorLen = 16
)

// Header is the container header some dump tools prepend to an image.
// All fields are big-endian:
//
//	0  magic "ECUC"
//	4  uint32 declared total length, header included
//	8  uint32 CRC32 (IEEE) of the payload, 0 when absent
//	12 uint16 format version
//	14 2 reserved bytes
//	16 16 byte NUL padded vendor tag
type Header struct {
	DeclaredLength uint32
	CRC32          uint32
	Version        uint16
	Vendor         string
}

// HasChecksum reports whether the header carries an integrity claim.
func (h Header) HasChecksum() bool {
	return h.CRC32 != 0
}

// Image is an immutable firmware byte sequence. The caller owns the
// backing slice for the lifetime of the Image and must not modify it.
type Image struct {
	data   []byte
	header Header
	hasHdr bool
}

// New wraps data without copying it.
func New(data []byte) *Image {
	img := &Image{data: data}
	img.header, img.hasHdr = ParseHeader(data)
	return img
}

// Bytes returns the backing slice. Callers must treat it as read-only.
func (img *Image) Bytes() []byte {
	return img.data
}

// Len is the actual image length
func (img *Image) Len() int {
	return len(img.data)
}

// Header returns the container header if one was recognised.
func (img *Image) Header() (Header, bool) {
	return img.header, img.hasHdr
}

// Payload is the data covered by the header checksum: everything after the
// header, clipped to both the declared and the actual length.
func (img *Image) Payload() []byte {
	if !img.hasHdr {
		return img.data
	}
	end := min(int(img.header.DeclaredLength), len(img.data))
	if end < HeaderSize {
		return nil
	}
	return img.data[HeaderSize:end]
}

// Slice returns n bytes at off, or false when the range leaves the image.
func (img *Image) Slice(off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(img.data) || n > len(img.data)-off {
		return nil, false
	}
	return img.data[off : off+n], true
}

// ParseHeader recognises a container header at the start of data.
func ParseHeader(data []byte) (Header, bool) {
	if len(data) < HeaderSize || !bytes.Equal(data[:4], []byte(Magic)) {
		return Header{}, false
	}
	vendor := data[16 : 16+vendorLen]
	if i := bytes.IndexByte(vendor, 0); i >= 0 {
		vendor = vendor[:i]
	}
	return Header{
		DeclaredLength: binary.BigEndian.Uint32(data[4:8]),
		CRC32:          binary.BigEndian.Uint32(data[8:12]),
		Version:        binary.BigEndian.Uint16(data[12:14]),
		Vendor:         string(vendor),
	}, true
}

// EncodeHeader serialises h. Vendor tags longer than 16 bytes are cut.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[:4], Magic)
	binary.BigEndian.PutUint32(buf[4:8], h.DeclaredLength)
	binary.BigEndian.PutUint32(buf[8:12], h.CRC32)
	binary.BigEndian.PutUint16(buf[12:14], h.Version)
	copy(buf[16:16+vendorLen], h.Vendor)
	return buf
}

// Wrap builds a container around payload with a correct length and CRC32.
func Wrap(payload []byte, vendor string, version uint16) []byte {
	h := Header{
		DeclaredLength: uint32(HeaderSize + len(payload)),
		CRC32:          crc32.ChecksumIEEE(payload),
		Version:        version,
		Vendor:         vendor,
	}
	out := make([]byte, 0, HeaderSize+len(payload))
	out = append(out, EncodeHeader(h)...)
	return append(out, payload...)
}

// ReadCell decodes one cell of width 1, 2 or 4 bytes from the start of b.
func ReadCell(b []byte, width int, order binary.ByteOrder, signed bool) int64 {
	switch width {
	case 1:
		if signed {
			return int64(int8(b[0]))
		}
		return int64(b[0])
	case 2:
		v := order.Uint16(b)
		if signed {
			return int64(int16(v))
		}
		return int64(v)
	case 4:
		v := order.Uint32(b)
		if signed {
			return int64(int32(v))
		}
		return int64(v)
	}
	return 0
}

// FullScale is the largest unsigned raw value a cell of width can hold.
func FullScale(width int) int64 {
	return int64(1)<<(8*uint(width)) - 1
}
