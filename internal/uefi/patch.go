package uefi

import "fmt"

// PatchBody overwrites body with the fill byte and copies content to its
// front. body aliases the caller's image buffer and is mutated in place.
// Content longer than the body is rejected before any byte is written.
func PatchBody(body, content []byte) error {
	if len(content) > len(body) {
		return fmt.Errorf("content %d bytes, body %d bytes: %w", len(content), len(body), ErrBounds)
	}
	for i := range body {
		body[i] = FillByte
	}
	copy(body, content)
	return nil
}
