package uefi

import "fmt"

// SumLE reinterprets data as a sequence of little-endian unsigned integers
// of type T and returns their sum wrapped to the width of T. The length of
// data must be a multiple of the element width; a misaligned length is a
// caller bug and panics.
func SumLE[T uint8 | uint16 | uint32 | uint64](data []byte) T {
	width := 8
	switch any(T(0)).(type) {
	case uint8:
		width = 1
	case uint16:
		width = 2
	case uint32:
		width = 4
	}
	if len(data)%width != 0 {
		panic(fmt.Sprintf("uefi: SumLE over %d bytes with element width %d", len(data), width))
	}
	var sum T
	for i := 0; i < len(data); i += width {
		var v uint64
		for j := width - 1; j >= 0; j-- {
			v = v<<8 | uint64(data[i+j])
		}
		sum += T(v)
	}
	return sum
}
