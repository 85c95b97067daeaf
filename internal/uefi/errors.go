package uefi

import "errors"

var (
	// ErrChecksum reports a decoded structure whose checksum invariant
	// does not hold.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrBounds reports a declared size that does not fit the available
	// bytes.
	ErrBounds = errors.New("size exceeds available bytes")
	// ErrNoChange reports a replace pass that left the image untouched.
	ErrNoChange = errors.New("no container record was patched")
)
