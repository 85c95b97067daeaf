package uefi

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseFFSHeader decodes the FFS file header at the start of buf. Any
// 24-byte input decodes to some header; validity is decided separately by
// VerifyFFSHeaderChecksum.
func ParseFFSHeader(buf []byte) (FFSHeader, error) {
	var hdr FFSHeader
	if len(buf) < FFSHeaderSize {
		return hdr, io.ErrUnexpectedEOF
	}
	copy(hdr.GUID[:], buf[0:16])
	hdr.ChkHdr = buf[16]
	hdr.ChkData = buf[17]
	hdr.Type = buf[18]
	hdr.Attributes = buf[19]
	packed := binary.LittleEndian.Uint32(buf[20:24])
	hdr.Size = packed & 0xFFFFFF
	hdr.State = uint8(packed >> 24)
	return hdr, nil
}

// EncodeFFSHeader is the bit-exact inverse of ParseFFSHeader.
func EncodeFFSHeader(hdr FFSHeader) []byte {
	buf := make([]byte, FFSHeaderSize)
	copy(buf[0:16], hdr.GUID[:])
	buf[16] = hdr.ChkHdr
	buf[17] = hdr.ChkData
	buf[18] = hdr.Type
	buf[19] = hdr.Attributes
	binary.LittleEndian.PutUint32(buf[20:24], hdr.Size&0xFFFFFF|uint32(hdr.State)<<24)
	return buf
}

// VerifyFFSHeaderChecksum checks the 8-bit header sum invariant: the sum of
// all 24 header bytes, with the data-checksum and state bytes counted as
// zero, must equal zero modulo 256.
func VerifyFFSHeaderChecksum(raw []byte) error {
	if len(raw) < FFSHeaderSize {
		return io.ErrUnexpectedEOF
	}
	sum := SumLE[uint8](raw[:FFSHeaderSize])
	sum -= raw[17] // data checksum
	sum -= raw[23] // state
	if sum != 0 {
		return fmt.Errorf("ffs header sum %#02x: %w", sum, ErrChecksum)
	}
	return nil
}

// FFSRecord is a container record located inside a firmware image. Body
// aliases the source buffer, so writes through it mutate the image.
type FFSRecord struct {
	Header FFSHeader
	Body   []byte
}

// ParseFFSRecord decodes and validates the FFS record at the start of buf.
// It fails with ErrChecksum when the header sum invariant does not hold and
// with ErrBounds when the declared size does not fit buf.
func ParseFFSRecord(buf []byte) (FFSRecord, error) {
	hdr, err := ParseFFSHeader(buf)
	if err != nil {
		return FFSRecord{}, err
	}
	if err := VerifyFFSHeaderChecksum(buf); err != nil {
		return FFSRecord{}, err
	}
	if hdr.Size < FFSHeaderSize || int64(hdr.Size) > int64(len(buf)) {
		return FFSRecord{}, fmt.Errorf("ffs record size %#x: %w", hdr.Size, ErrBounds)
	}
	return FFSRecord{Header: hdr, Body: buf[FFSHeaderSize:hdr.Size]}, nil
}
