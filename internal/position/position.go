// Package position converts positions between the MCP wire format (1-based
// line/character, always UTF-8 code points) and the LSP wire format
// (0-based line/character, in whatever unit the negotiated PositionEncoding
// uses).
package position

import (
	"unicode/utf16"
	"unicode/utf8"

	mcplserrors "mcpls/internal/errors"
)

// Encoding is one of the three units LSP negotiates for character offsets
// within a line.
type Encoding string

const (
	UTF8  Encoding = "utf-8"
	UTF16 Encoding = "utf-16"
	UTF32 Encoding = "utf-32"
)

// FromLSP parses the string LSP sent back during initialize.
func FromLSP(s string) (Encoding, bool) {
	switch s {
	case "utf-8":
		return UTF8, true
	case "utf-16":
		return UTF16, true
	case "utf-32":
		return UTF32, true
	default:
		return "", false
	}
}

// ToLSP renders the encoding the way LSP's positionEncoding field expects.
func (e Encoding) ToLSP() string { return string(e) }

// McpToLsp converts a 1-based MCP line/character pair to LSP's 0-based
// pair, saturating at zero rather than underflowing.
func McpToLsp(line, character int) (int, int) {
	return saturatingSub1(line), saturatingSub1(character)
}

// LspToMcp converts an LSP 0-based line/character pair to MCP's 1-based
// pair.
func LspToMcp(line, character int) (int, int) {
	return line + 1, character + 1
}

func saturatingSub1(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}

// ByteOffsetToCharacter converts a byte offset within text into a character
// offset expressed in the given encoding's unit (UTF-8 bytes, UTF-16 code
// units, or UTF-32 code points).
func ByteOffsetToCharacter(text string, byteOffset int, enc Encoding) (int, error) {
	if byteOffset < 0 || byteOffset > len(text) {
		return 0, mcplserrors.EncodingError("byte offset out of range")
	}
	switch enc {
	case UTF8:
		return byteOffset, nil
	case UTF16:
		return countUTF16Units(text[:byteOffset]), nil
	case UTF32:
		return utf8.RuneCountInString(text[:byteOffset]), nil
	default:
		return 0, mcplserrors.EncodingError("unknown position encoding")
	}
}

// CharacterToByteOffset is the inverse of ByteOffsetToCharacter.
func CharacterToByteOffset(text string, character int, enc Encoding) (int, error) {
	if character < 0 {
		return 0, mcplserrors.EncodingError("character offset out of range")
	}
	switch enc {
	case UTF8:
		if character > len(text) {
			return 0, mcplserrors.EncodingError("byte offset out of range")
		}
		return character, nil
	case UTF16:
		return utf16OffsetToByte(text, character)
	case UTF32:
		return utf32OffsetToByte(text, character)
	default:
		return 0, mcplserrors.EncodingError("unknown position encoding")
	}
}

func countUTF16Units(s string) int {
	n := 0
	for _, r := range s {
		n += utf16RuneLen(r)
	}
	return n
}

func utf16RuneLen(r rune) int {
	if utf16.IsSurrogate(r) {
		return 1
	}
	r1, r2 := utf16.EncodeRune(r)
	if r1 == utf8.RuneError && r2 == utf8.RuneError {
		return 1
	}
	return 2
}

func utf16OffsetToByte(text string, units int) (int, error) {
	count := 0
	for byteIdx, r := range text {
		if count == units {
			return byteIdx, nil
		}
		count += utf16RuneLen(r)
	}
	if count == units {
		return len(text), nil
	}
	return 0, mcplserrors.EncodingError("character offset out of range")
}

func utf32OffsetToByte(text string, chars int) (int, error) {
	count := 0
	for byteIdx, r := range text {
		_ = r
		if count == chars {
			return byteIdx, nil
		}
		count++
	}
	if count == chars {
		return len(text), nil
	}
	return 0, mcplserrors.EncodingError("character offset out of range")
}
