package uefi

import (
	"bytes"
	"testing"
)

func TestWalkUcodeChain(t *testing.T) {
	blobs := [][]byte{
		testUcode(t, 64, 1),
		testUcode(t, 128, 2),
		testUcode(t, 48, 3),
	}
	var buf []byte
	for _, b := range blobs {
		buf = append(buf, b...)
	}
	buf = append(buf, bytes.Repeat([]byte{0xFF}, 32)...)

	entries, consumed := WalkUcodeChain(buf)
	if len(entries) != 3 {
		t.Fatalf("found %d blobs, want 3", len(entries))
	}
	wantOffsets := []int{0, 64, 192}
	for i, e := range entries {
		if e.Offset != wantOffsets[i] {
			t.Fatalf("blob %d at offset %d, want %d", i, e.Offset, wantOffsets[i])
		}
		if e.Header.UpdateRevision != uint32(i+1) {
			t.Fatalf("blob %d revision = %#x, want %#x", i, e.Header.UpdateRevision, i+1)
		}
	}
	if consumed != 240 {
		t.Fatalf("consumed = %d, want 240", consumed)
	}
}

func TestWalkUcodeChainStopsAtCorruption(t *testing.T) {
	buf := append(testUcode(t, 64, 1), testUcode(t, 64, 2)...)
	buf[64+50] ^= 0x01
	entries, consumed := WalkUcodeChain(buf)
	if len(entries) != 1 || consumed != 64 {
		t.Fatalf("entries = %d consumed = %d, want 1 and 64", len(entries), consumed)
	}
}

func TestWalkUcodeChainZeroTotalSize(t *testing.T) {
	// A blob declaring TotalSize 0 must terminate the walk, not stall it.
	blob := testUcode(t, 64, 1)
	blob[32], blob[33], blob[34], blob[35] = 0, 0, 0, 0
	entries, consumed := WalkUcodeChain(blob)
	if len(entries) != 0 || consumed != 0 {
		t.Fatalf("entries = %d consumed = %d, want 0 and 0", len(entries), consumed)
	}
}

func TestWalkUcodeChainEmpty(t *testing.T) {
	entries, consumed := WalkUcodeChain(nil)
	if len(entries) != 0 || consumed != 0 {
		t.Fatalf("entries = %d consumed = %d, want 0 and 0", len(entries), consumed)
	}
}
