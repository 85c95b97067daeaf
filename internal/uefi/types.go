package uefi

const (
	// FFSHeaderSize is the fixed length of an EFI FFS file header.
	FFSHeaderSize = 24
	// UcodeHeaderSize is the fixed length of an Intel microcode update header.
	UcodeHeaderSize = 48
	// FillByte is written across a record body before new content is copied
	// in. 0xFF matches erased NOR flash.
	FillByte = 0xFF
)

// UcodeFFSGUID is the little-endian byte encoding of
// 197DB236-F856-4924-90F8-CDF12FB875F3, the GUID firmware vendors use for
// the FFS file that stores CPU microcode.
var UcodeFFSGUID = [16]byte{
	0x36, 0xB2, 0x7D, 0x19,
	0x56, 0xF8,
	0x24, 0x49,
	0x90, 0xF8, 0xCD, 0xF1, 0x2F, 0xB8, 0x75, 0xF3,
}

// FFSHeader is the fixed 24-byte EFI firmware file system file header. Size
// and State share one little-endian uint32 on the wire: the low 24 bits are
// the size, the high 8 bits the state.
type FFSHeader struct {
	GUID       [16]byte
	ChkHdr     uint8
	ChkData    uint8
	Type       uint8
	Attributes uint8
	Size       uint32 // 24-bit, counts the header itself
	State      uint8
}

// UcodeHeader is the fixed 48-byte Intel microcode update header, all
// fields little-endian.
type UcodeHeader struct {
	HeaderType         uint32 `json:"headerType"`
	UpdateRevision     uint32 `json:"updateRevision"`
	Year               uint16 `json:"year"`
	Day                uint8  `json:"day"`
	Month              uint8  `json:"month"`
	ProcessorSignature uint32 `json:"processorSignature"`
	Checksum           uint32 `json:"checksum"`
	LoaderRevision     uint32 `json:"loaderRevision"`
	PlatformIDs        uint32 `json:"platformIds"`
	DataSize           uint32 `json:"dataSize"`
	TotalSize          uint32 `json:"totalSize"`
	MetadataSize       uint32 `json:"metadataSize"`
	UpdateRevisionMin  uint32 `json:"updateRevisionMin"`
	Reserved           uint32 `json:"reserved"`
}
