// Package text implements the lossless bridge between host strings,
// represented as Unicode scalar sequences, and the UTF-8 byte ranges the
// embedded engine speaks natively.
//
// The validation rules enforced by Decode are deliberately narrower than
// general UTF-8 validity: they check continuation-byte shape and reject the
// surrogate range, but do not reject overlong encodings. unicode/utf8
// enforces a stricter grammar than that, so it is not a drop-in
// replacement here.
package text

import "fmt"

// ErrCharset is returned by Decode when b is not valid per this package's
// rules. It carries no partial result; Decode never returns a truncated
// string alongside an error.
var ErrCharset = fmt.Errorf("text: malformed UTF-8")

// Encode converts a Unicode scalar sequence to UTF-8. No NUL terminator is
// appended. Every rune in s must be a valid Unicode scalar value (Go's rune
// type already excludes surrogates, so no further validation is needed on
// this side of the bridge).
func Encode(s []rune) []byte {
	n := 0
	for _, c := range s {
		n += runeLen(c)
	}
	out := make([]byte, n)
	i := 0
	for _, c := range s {
		i += putRune(out[i:], c)
	}
	return out
}

// EncodeString is a convenience wrapper for Go host code that already holds
// a string; it is equivalent to Encode([]rune(s)).
func EncodeString(s string) []byte {
	return Encode([]rune(s))
}

func runeLen(c rune) int {
	switch {
	case c < 0x80:
		return 1
	case c < 0x800:
		return 2
	case c < 0x10000:
		return 3
	default:
		return 4
	}
}

func putRune(dst []byte, c rune) int {
	switch {
	case c < 0x80:
		dst[0] = byte(c)
		return 1
	case c < 0x800:
		dst[0] = byte(c>>6) | 0xC0
		dst[1] = byte(c&0x3F) | 0x80
		return 2
	case c < 0x10000:
		dst[0] = byte(c>>12) | 0xE0
		dst[1] = byte((c>>6)&0x3F) | 0x80
		dst[2] = byte(c&0x3F) | 0x80
		return 3
	default:
		dst[0] = byte(c>>18) | 0xF0
		dst[1] = byte((c>>12)&0x3F) | 0x80
		dst[2] = byte((c>>6)&0x3F) | 0x80
		dst[3] = byte(c&0x3F) | 0x80
		return 4
	}
}

// Decode validates b as strict UTF-8 over the rules this package documents
// and converts it to a Go string. It returns ErrCharset, never a partial
// string, on any violation:
//   - a lead byte's continuation count must match its high bits
//   - every continuation byte must match 10xxxxxx
//   - three-byte sequences must not decode into U+D800..U+DFFF
//   - four-byte sequences must have lead byte <= 0xF7
func Decode(b []byte) (string, error) {
	n, err := decodedLen(b)
	if err != nil {
		return "", err
	}
	runes := make([]rune, n)
	i := 0
	pos := 0
	for pos < len(b) {
		uc := b[pos]
		var c rune
		switch {
		case uc&0x80 == 0:
			c = rune(uc)
			pos++
		case uc&0x20 == 0:
			c = (rune(uc&0x1F) << 6) | rune(b[pos+1]&0x3F)
			pos += 2
		case uc&0x10 == 0:
			c = (rune(uc&0x0F) << 12) | (rune(b[pos+1]&0x3F) << 6) | rune(b[pos+2]&0x3F)
			pos += 3
			if c&0xF800 == 0xD800 {
				return "", ErrCharset
			}
		default:
			c = (rune(uc&0x07) << 18) | (rune(b[pos+1]&0x3F) << 12) | (rune(b[pos+2]&0x3F) << 6) | rune(b[pos+3]&0x3F)
			pos += 4
		}
		runes[i] = c
		i++
	}
	return string(runes), nil
}

// decodedLen validates b and returns the number of Unicode scalars it
// encodes, without materializing them.
func decodedLen(b []byte) (int, error) {
	n := len(b)
	count := 0
	for n > 0 {
		uc := b[len(b)-n]
		count++
		switch {
		case uc&0x80 == 0:
			n--
		case uc&0x40 == 0:
			return 0, ErrCharset
		case uc&0x20 == 0:
			if n >= 2 && b[len(b)-n+1]&0xC0 == 0x80 {
				n -= 2
			} else {
				return 0, ErrCharset
			}
		case uc&0x10 == 0:
			if n >= 3 && b[len(b)-n+1]&0xC0 == 0x80 && b[len(b)-n+2]&0xC0 == 0x80 {
				n -= 3
			} else {
				return 0, ErrCharset
			}
		default:
			if n >= 4 && uc&0x08 == 0 &&
				b[len(b)-n+1]&0xC0 == 0x80 &&
				b[len(b)-n+2]&0xC0 == 0x80 &&
				b[len(b)-n+3]&0xC0 == 0x80 {
				n -= 4
			} else {
				return 0, ErrCharset
			}
		}
	}
	return count, nil
}
