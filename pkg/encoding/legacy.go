// Package encoding provides text encoding utilities for XMODEL binary files.
// Names in .xmodel_bin records use the Windows-1252 code page.
package encoding

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// LegacyToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func LegacyToUTF8(data []byte) string {
	decoder := charmap.Windows1252.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToLegacy converts a UTF-8 string to Windows-1252 bytes.
// Characters outside the code page are replaced with '?'.
func UTF8ToLegacy(s string) []byte {
	encoder := charmap.Windows1252.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err == nil {
		return result
	}

	// Encode rune by rune so one bad character doesn't lose the name.
	var buf bytes.Buffer
	for _, r := range s {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			buf.WriteByte(b)
		} else {
			buf.WriteByte('?')
		}
	}
	return buf.Bytes()
}

// Representable reports whether s can be stored as a null-terminated
// Windows-1252 string and read back unchanged.
func Representable(s string) bool {
	for _, r := range s {
		if r == 0 {
			return false
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// NullTerminated returns data up to its first null byte.
func NullTerminated(data []byte) []byte {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return data[:i]
	}
	return data
}

// PaddedString encodes s as a null-terminated Windows-1252 string padded
// with null bytes to a multiple of align bytes.
func PaddedString(s string, align int) []byte {
	encoded := UTF8ToLegacy(s)
	size := len(encoded) + 1
	if rem := size % align; rem != 0 {
		size += align - rem
	}
	result := make([]byte, size)
	copy(result, encoded)
	return result
}
