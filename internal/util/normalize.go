package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeWhitespace collapses any run of Unicode whitespace into a single
// ' ', drops leading and trailing whitespace, and returns the two byte-index
// maps RemapAllMatches needs to translate match offsets back to the original
// string:
//
//  1. normalizedToOriginal[nIdx] is the byte in the original that produced
//     byte nIdx of the normalized string (a multibyte rune's normalized bytes
//     all point at the rune's first original byte; a collapsed run of
//     whitespace points at the first byte of that run).
//  2. originalToNormalized[oIdx] is the byte in the normalized string that
//     oIdx maps to, or -1 if oIdx was collapsed or trimmed away.
//
// The result is never re-trimmed after the fact: leading/trailing whitespace
// is simply never emitted, so no index needs adjusting afterward.
func NormalizeWhitespace(
	s string,
) (normalized string, normalizedToOriginal []int, originalToNormalized []int) {
	var b strings.Builder
	b.Grow(len(s))

	normalizedToOriginal = make([]int, 0, len(s))
	originalToNormalized = make([]int, len(s))
	for i := range originalToNormalized {
		originalToNormalized[i] = -1
	}

	emittedAny := false
	inWS := false
	wsStart := 0
	normIdx := 0

	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])

		if unicode.IsSpace(r) {
			if !inWS {
				inWS = true
				wsStart = i
			}
			i += size
			continue
		}

		if inWS {
			if emittedAny {
				b.WriteByte(' ')
				normalizedToOriginal = append(normalizedToOriginal, wsStart)
				normIdx++
			}
			inWS = false
		}

		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)

		for j := range size {
			if j < n {
				originalToNormalized[i+j] = normIdx + j
			} else {
				originalToNormalized[i+j] = normIdx
			}
		}

		for range n {
			normalizedToOriginal = append(normalizedToOriginal, i)
		}

		b.Write(buf[:n])
		normIdx += n
		emittedAny = true
		i += size
	}

	return b.String(), normalizedToOriginal, originalToNormalized
}
