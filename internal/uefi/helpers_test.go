package uefi

import (
	"encoding/binary"
	"testing"
)

// testUcode builds a valid microcode blob of the given total size with the
// word-sum balanced through the checksum field.
func testUcode(t *testing.T, total int, rev uint32) []byte {
	t.Helper()
	if total < UcodeHeaderSize || total%4 != 0 {
		t.Fatalf("testUcode: bad total %d", total)
	}
	hdr := UcodeHeader{
		HeaderType:         1,
		UpdateRevision:     rev,
		Year:               2024,
		Day:                15,
		Month:              3,
		ProcessorSignature: 0x000906EA,
		LoaderRevision:     1,
		PlatformIDs:        0x22,
		DataSize:           uint32(total - UcodeHeaderSize),
		TotalSize:          uint32(total),
	}
	blob := make([]byte, total)
	copy(blob, EncodeUcodeHeader(hdr))
	for i := UcodeHeaderSize; i < total; i++ {
		blob[i] = byte(i * 7)
	}
	sum := SumLE[uint32](blob)
	binary.LittleEndian.PutUint32(blob[16:20], -sum)
	return blob
}

// testFFSRecord builds a raw microcode FFS record with a balanced header
// checksum and a body of fill bytes.
func testFFSRecord(t *testing.T, bodySize int) []byte {
	t.Helper()
	raw := make([]byte, FFSHeaderSize+bodySize)
	hdr := FFSHeader{
		GUID:       UcodeFFSGUID,
		ChkData:    0xAA,
		Type:       0x20,
		Attributes: 0x40,
		Size:       uint32(FFSHeaderSize + bodySize),
		State:      0xF8,
	}
	copy(raw, EncodeFFSHeader(hdr))
	for i := FFSHeaderSize; i < len(raw); i++ {
		raw[i] = FillByte
	}
	fixFFSChecksum(raw)
	return raw
}

// fixFFSChecksum rewrites the header checksum byte so the header sum
// invariant holds for the current header bytes.
func fixFFSChecksum(raw []byte) {
	raw[16] = 0
	sum := SumLE[uint8](raw[:FFSHeaderSize])
	sum -= raw[17]
	sum -= raw[23]
	raw[16] = -sum
}
