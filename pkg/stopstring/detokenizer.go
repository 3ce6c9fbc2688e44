package stopstring

import "unicode/utf8"

// DecodeFunc mirrors a tokenizer's decode(tokens) -> text call. It is
// supplied by the adapter implementation (the tokenizer lives outside
// this package's scope); StreamDetokenizer only handles the incremental
// bookkeeping on top of it.
type DecodeFunc func(tokens []int) string

// StreamDetokenizer emits only the newly-decoded suffix of text for each
// additional token, re-decoding the accumulated token window each time so
// that tokenizers whose decode() is context-sensitive (merges spanning
// token boundaries) still produce correct incremental text.
//
// A decoded suffix ending in the Unicode replacement character is treated
// as an incomplete multi-byte sequence and emits "" instead — the token
// is held back and merged into the next decode. This mirrors
// _stream_detokenizer.py's heuristic exactly (§9 DESIGN NOTES).
type StreamDetokenizer struct {
	decode     DecodeFunc
	prevTokens []int
}

// NewStreamDetokenizer constructs a detokenizer backed by decode.
func NewStreamDetokenizer(decode DecodeFunc) *StreamDetokenizer {
	return &StreamDetokenizer{decode: decode}
}

// Next feeds one more token and returns the text it newly contributes,
// or "" if the decoded result is still an incomplete UTF-8 sequence.
func (d *StreamDetokenizer) Next(token int) string {
	prefixText := d.decode(d.prevTokens)
	tokens := append(append([]int(nil), d.prevTokens...), token)
	newText := d.decode(tokens)

	var emitted string
	if endsInReplacementChar(newText) {
		emitted = ""
	} else if len(newText) >= len(prefixText) {
		emitted = newText[len(prefixText):]
	} else {
		// decode() is not required to be monotonic in length for
		// pathological tokenizers; fall back to the whole new text.
		emitted = newText
	}

	if emitted != "" {
		d.prevTokens = []int{token}
	} else {
		d.prevTokens = tokens
	}
	return emitted
}

func endsInReplacementChar(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == utf8.RuneError
}
