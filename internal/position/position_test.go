package position

import "testing"

func TestMcpToLsp(t *testing.T) {
	cases := []struct {
		line, character     int
		wantLine, wantChar  int
	}{
		{1, 1, 0, 0},
		{5, 10, 4, 9},
		{0, 0, 0, 0}, // already below 1, saturates
	}
	for _, c := range cases {
		gotLine, gotChar := McpToLsp(c.line, c.character)
		if gotLine != c.wantLine || gotChar != c.wantChar {
			t.Errorf("McpToLsp(%d,%d) = (%d,%d), want (%d,%d)", c.line, c.character, gotLine, gotChar, c.wantLine, c.wantChar)
		}
	}
}

func TestLspToMcp(t *testing.T) {
	gotLine, gotChar := LspToMcp(4, 9)
	if gotLine != 5 || gotChar != 10 {
		t.Errorf("LspToMcp(4,9) = (%d,%d), want (5,10)", gotLine, gotChar)
	}
}

func TestRoundTrip(t *testing.T) {
	line, character := 12, 34
	l, c := McpToLsp(line, character)
	rl, rc := LspToMcp(l, c)
	if rl != line || rc != character {
		t.Errorf("round trip failed: got (%d,%d), want (%d,%d)", rl, rc, line, character)
	}
}

func TestEncodingRoundTrip(t *testing.T) {
	text := "a😀b"
	for _, enc := range []Encoding{UTF8, UTF16, UTF32} {
		for byteOff := 0; byteOff <= len(text); byteOff++ {
			if !isRuneBoundary(text, byteOff) {
				continue
			}
			units, err := ByteOffsetToCharacter(text, byteOff, enc)
			if err != nil {
				t.Fatalf("ByteOffsetToCharacter(%d, %s) error: %v", byteOff, enc, err)
			}
			back, err := CharacterToByteOffset(text, units, enc)
			if err != nil {
				t.Fatalf("CharacterToByteOffset(%d, %s) error: %v", units, enc, err)
			}
			if back != byteOff {
				t.Errorf("round trip for %s at byte %d: got %d, want %d", enc, byteOff, back, byteOff)
			}
		}
	}
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}

func TestUTF16SurrogatePair(t *testing.T) {
	text := "😀" // single rune, encodes to a UTF-16 surrogate pair (2 units)
	units, err := ByteOffsetToCharacter(text, len(text), UTF16)
	if err != nil {
		t.Fatal(err)
	}
	if units != 2 {
		t.Errorf("UTF-16 units for emoji = %d, want 2", units)
	}
	chars, err := ByteOffsetToCharacter(text, len(text), UTF32)
	if err != nil {
		t.Fatal(err)
	}
	if chars != 1 {
		t.Errorf("UTF-32 units for emoji = %d, want 1", chars)
	}
}

func TestByteOffsetOutOfRange(t *testing.T) {
	if _, err := ByteOffsetToCharacter("abc", 10, UTF8); err == nil {
		t.Error("expected error for out-of-range byte offset")
	}
}

func TestCharacterOffsetOutOfRange(t *testing.T) {
	if _, err := CharacterToByteOffset("abc", 10, UTF16); err == nil {
		t.Error("expected error for out-of-range character offset")
	}
}

func TestFromLSP(t *testing.T) {
	if enc, ok := FromLSP("utf-16"); !ok || enc != UTF16 {
		t.Errorf("FromLSP(utf-16) = (%v,%v), want (UTF16,true)", enc, ok)
	}
	if _, ok := FromLSP("bogus"); ok {
		t.Error("FromLSP(bogus) should fail")
	}
}
