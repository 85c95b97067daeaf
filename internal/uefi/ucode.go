package uefi

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseUcodeHeader decodes the microcode update header at the start of buf.
// Decoding never fails on bit patterns; ParseUcode decides validity.
func ParseUcodeHeader(buf []byte) (UcodeHeader, error) {
	var hdr UcodeHeader
	if len(buf) < UcodeHeaderSize {
		return hdr, io.ErrUnexpectedEOF
	}
	hdr.HeaderType = binary.LittleEndian.Uint32(buf[0:4])
	hdr.UpdateRevision = binary.LittleEndian.Uint32(buf[4:8])
	hdr.Year = binary.LittleEndian.Uint16(buf[8:10])
	hdr.Day = buf[10]
	hdr.Month = buf[11]
	hdr.ProcessorSignature = binary.LittleEndian.Uint32(buf[12:16])
	hdr.Checksum = binary.LittleEndian.Uint32(buf[16:20])
	hdr.LoaderRevision = binary.LittleEndian.Uint32(buf[20:24])
	hdr.PlatformIDs = binary.LittleEndian.Uint32(buf[24:28])
	hdr.DataSize = binary.LittleEndian.Uint32(buf[28:32])
	hdr.TotalSize = binary.LittleEndian.Uint32(buf[32:36])
	hdr.MetadataSize = binary.LittleEndian.Uint32(buf[36:40])
	hdr.UpdateRevisionMin = binary.LittleEndian.Uint32(buf[40:44])
	hdr.Reserved = binary.LittleEndian.Uint32(buf[44:48])
	return hdr, nil
}

// EncodeUcodeHeader is the bit-exact inverse of ParseUcodeHeader.
func EncodeUcodeHeader(hdr UcodeHeader) []byte {
	buf := make([]byte, UcodeHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], hdr.HeaderType)
	binary.LittleEndian.PutUint32(buf[4:8], hdr.UpdateRevision)
	binary.LittleEndian.PutUint16(buf[8:10], hdr.Year)
	buf[10] = hdr.Day
	buf[11] = hdr.Month
	binary.LittleEndian.PutUint32(buf[12:16], hdr.ProcessorSignature)
	binary.LittleEndian.PutUint32(buf[16:20], hdr.Checksum)
	binary.LittleEndian.PutUint32(buf[20:24], hdr.LoaderRevision)
	binary.LittleEndian.PutUint32(buf[24:28], hdr.PlatformIDs)
	binary.LittleEndian.PutUint32(buf[28:32], hdr.DataSize)
	binary.LittleEndian.PutUint32(buf[32:36], hdr.TotalSize)
	binary.LittleEndian.PutUint32(buf[36:40], hdr.MetadataSize)
	binary.LittleEndian.PutUint32(buf[40:44], hdr.UpdateRevisionMin)
	binary.LittleEndian.PutUint32(buf[44:48], hdr.Reserved)
	return buf
}

// Ucode is a validated microcode blob. Data covers the full TotalSize
// range, header included, and aliases the source buffer.
type Ucode struct {
	Header UcodeHeader
	Data   []byte
}

// ParseUcode decodes and validates the microcode blob at the start of buf.
// The blob is valid when TotalSize covers at least the header, fits in buf,
// is 32-bit aligned, and the 32-bit-word sum over the first TotalSize bytes
// is zero.
func ParseUcode(buf []byte) (Ucode, error) {
	hdr, err := ParseUcodeHeader(buf)
	if err != nil {
		return Ucode{}, err
	}
	total := int64(hdr.TotalSize)
	switch {
	case total < UcodeHeaderSize:
		return Ucode{}, fmt.Errorf("ucode total size %#x below header size: %w", hdr.TotalSize, ErrBounds)
	case total > int64(len(buf)):
		return Ucode{}, fmt.Errorf("ucode total size %#x: %w", hdr.TotalSize, ErrBounds)
	case total%4 != 0:
		return Ucode{}, fmt.Errorf("ucode total size %#x not 32-bit aligned: %w", hdr.TotalSize, ErrBounds)
	}
	if sum := SumLE[uint32](buf[:total]); sum != 0 {
		return Ucode{}, fmt.Errorf("ucode sum %#08x: %w", sum, ErrChecksum)
	}
	return Ucode{Header: hdr, Data: buf[:total]}, nil
}
