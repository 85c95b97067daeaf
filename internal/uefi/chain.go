package uefi

// ChainEntry records one validated microcode blob found while walking a
// concatenated region.
type ChainEntry struct {
	Offset int         `json:"offset"`
	Header UcodeHeader `json:"header"`
}

// WalkUcodeChain decodes consecutive microcode blobs packed back-to-back
// from the start of buf, stopping at the first position that does not hold
// a valid blob. It returns the blobs found and the total bytes they
// consume. Finding none is a normal outcome, not an error.
func WalkUcodeChain(buf []byte) ([]ChainEntry, int) {
	var entries []ChainEntry
	offset := 0
	for {
		u, err := ParseUcode(buf[offset:])
		if err != nil {
			return entries, offset
		}
		entries = append(entries, ChainEntry{Offset: offset, Header: u.Header})
		offset += len(u.Data)
	}
}
