package uefi

import "bytes"

// Scanner reports successive occurrences of a byte pattern in a buffer,
// left to right. After each match the scan resumes past the end of the
// match, so an occurrence that starts inside a previous match is not
// reported. Records never overlap in well-formed images, and the skip
// keeps hits aligned with record starts.
type Scanner struct {
	haystack []byte
	needle   []byte
	pos      int
}

// NewScanner prepares a fresh scan of haystack for needle.
func NewScanner(haystack, needle []byte) *Scanner {
	return &Scanner{haystack: haystack, needle: needle}
}

// Next returns the offset of the next occurrence. ok is false once the
// scan is exhausted.
func (s *Scanner) Next() (offset int, ok bool) {
	if len(s.needle) == 0 || s.pos > len(s.haystack) {
		return 0, false
	}
	i := bytes.Index(s.haystack[s.pos:], s.needle)
	if i < 0 {
		s.pos = len(s.haystack) + 1
		return 0, false
	}
	offset = s.pos + i
	s.pos = offset + len(s.needle)
	return offset, true
}

// FindAll returns every offset a fresh Scanner would report, in ascending
// order.
func FindAll(haystack, needle []byte) []int {
	var offsets []int
	s := NewScanner(haystack, needle)
	for {
		off, ok := s.Next()
		if !ok {
			return offsets
		}
		offsets = append(offsets, off)
	}
}
