// Package tokencount attributes a model's non-special token count across
// one or more text segments that were concatenated before tokenization —
// e.g. splitting a chat prompt's token cost across its constituent
// messages (§4.7 Token Counter).
//
// Tokens rarely align with segment boundaries. A token whose decoded
// span crosses from one segment into the next is counted as shared:
// half a token on each side when indicateShared is set, otherwise it is
// attributed to the segment it ends in.
package tokencount

import (
	"errors"

	"github.com/webis-de/llmserve/pkg/stopstring"
)

// ErrAlreadyConsumed is returned by Consume on any call after the first.
var ErrAlreadyConsumed = errors.New("tokencount: counter already consumed")

// Totals reports the token accounting for the whole tokenized text.
type Totals struct {
	All        int
	Special    int
	NonSpecial int
}

// Counter attributes non-special tokens to text segments. Construct with
// New, call Consume exactly once, then Totals for the aggregate figures.
type Counter struct {
	ends           []int
	numAllTokens   int
	counts         []float64
	currentCount   float64
	currentLength  int
	segmentLengths []int
	segIdx         int
	indicateShared bool
	consumed       bool
}

// New builds a Counter. ends holds the cumulative character end-offset
// of each non-special token within strings.Join(texts, ""), in token
// order; numAllTokens is the tokenizer's total token count including
// special tokens. indicateShared enables the 0.5/0.5 split for tokens
// that straddle a segment boundary; when false, a straddling token is
// attributed wholly to the segment it ends in.
func New(ends []int, numAllTokens int, texts []string, indicateShared bool) *Counter {
	cum := 0
	lens := make([]int, len(texts))
	for i, t := range texts {
		cum += len(t)
		lens[i] = cum
	}
	return &Counter{
		ends:           ends,
		numAllTokens:   numAllTokens,
		segmentLengths: lens,
		indicateShared: indicateShared,
	}
}

// EndsFromTokens computes cumulative decoded-character end-offsets for a
// slow (non-fast) tokenizer that cannot report offsets directly: it
// re-detokenizes incrementally and accumulates emitted lengths, mirroring
// a fast tokenizer's offset_mapping closely enough to drive New.
func EndsFromTokens(decode stopstring.DecodeFunc, tokens []int) []int {
	det := stopstring.NewStreamDetokenizer(decode)
	ends := make([]int, len(tokens))
	total := 0
	for i, tok := range tokens {
		total += len(det.Next(tok))
		ends[i] = total
	}
	return ends
}

// commit closes the current segment. On a partial commit the token just
// counted straddles the boundary, so its share past the boundary (0.5
// when indicateShared, else the whole token) moves to the next segment.
func (c *Counter) commit(isPartial bool) {
	carry := 0.0
	if isPartial {
		carry = 1
		if c.indicateShared {
			carry = 0.5
		}
	}
	c.counts = append(c.counts, c.currentCount-carry)
	c.currentCount = carry
}

// nextSegmentLength returns the next cumulative segment boundary, or
// ok=false once segments are exhausted.
func (c *Counter) nextSegmentLength() (int, bool) {
	if c.segIdx >= len(c.segmentLengths) {
		return 0, false
	}
	v := c.segmentLengths[c.segIdx]
	c.segIdx++
	return v, true
}

// advanceLength pulls the next segment boundary, committing (possibly
// zero-length) segments along the way whose boundary has already been
// reached.
func (c *Counter) advanceLength(isPartial bool) (int, bool) {
	for {
		next, ok := c.nextSegmentLength()
		if !ok {
			return 0, false
		}
		if next == c.currentLength {
			c.commit(isPartial)
			continue
		}
		return next, true
	}
}

// Consume walks ends once, attributing each non-special token to its
// segment(s) and returns the per-segment counts. Calling it more than
// once returns ErrAlreadyConsumed.
func (c *Counter) Consume() ([]float64, error) {
	if c.consumed {
		return nil, ErrAlreadyConsumed
	}
	c.consumed = true

	next, ok := c.advanceLength(false)
	if !ok {
		return c.counts, nil
	}
	c.currentLength = next

	for _, end := range c.ends {
		c.currentCount++
		for c.currentLength <= end {
			isPartial := c.currentLength != end
			c.commit(isPartial)
			next, ok := c.advanceLength(isPartial)
			if !ok {
				return c.counts, nil
			}
			c.currentLength = next
		}
	}
	return c.counts, nil
}

// Totals reports the tokenizer's total/special/non-special token counts.
// Valid at any time; non-special is known as soon as New is called.
func (c *Counter) Totals() Totals {
	nonSpecial := len(c.ends)
	return Totals{
		All:        c.numAllTokens,
		Special:    c.numAllTokens - nonSpecial,
		NonSpecial: nonSpecial,
	}
}

// Count is a convenience wrapper for the common single-segment case
// (counting one piece of text's tokens within a larger tokenized whole).
func Count(ends []int, numAllTokens int, text string, indicateShared bool) (float64, Totals, error) {
	c := New(ends, numAllTokens, []string{text}, indicateShared)
	counts, err := c.Consume()
	if err != nil {
		return 0, Totals{}, err
	}
	if len(counts) == 0 {
		return 0, c.Totals(), nil
	}
	return counts[0], c.Totals(), nil
}
