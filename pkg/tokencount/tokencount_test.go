package tokencount

import "testing"

func TestCountSingleSegmentMatchesEndOfLastToken(t *testing.T) {
	// Three tokens of length 4 each ("abcd", "efgh", "ijkl") covering one
	// 12-character segment: every token belongs wholly to it.
	ends := []int{4, 8, 12}
	counts, totals, err := Count(ends, 5, "abcdefghijkl", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts != 3 {
		t.Fatalf("expected 3 tokens attributed, got %v", counts)
	}
	if totals.NonSpecial != 3 || totals.Special != 2 || totals.All != 5 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestConsumeSplitsSharedBoundaryToken(t *testing.T) {
	// Segment "ab" (len 2), segment "cd" (len 2). Tokens of length 1 each
	// except one token spanning offsets 1..3 ("b"+"c"), straddling the
	// boundary at 2.
	ends := []int{1, 3, 4}
	c := New(ends, 3, []string{"ab", "cd"}, true)
	counts, err := c.Consume()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 segment counts, got %v", counts)
	}
	if counts[0] != 1.5 {
		t.Fatalf("expected first segment to get 1 whole + 0.5 shared token, got %v", counts[0])
	}
	if counts[1] != 1.5 {
		t.Fatalf("expected second segment to get the remaining 0.5 + its own token, got %v", counts[1])
	}
}

func TestConsumeWithoutSharingAttributesToEndingSegment(t *testing.T) {
	ends := []int{1, 3, 4}
	c := New(ends, 3, []string{"ab", "cd"}, false)
	counts, err := c.Consume()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := counts[0] + counts[1]
	if sum != 3 {
		t.Fatalf("expected all 3 tokens attributed across segments, got sum %v (%v)", sum, counts)
	}
	if counts[0] != 1 || counts[1] != 2 {
		t.Fatalf("expected the straddling token in the segment it ends in, got %v", counts)
	}
}

func TestConsumeTwiceFails(t *testing.T) {
	c := New([]int{1}, 1, []string{"a"}, false)
	if _, err := c.Consume(); err != nil {
		t.Fatalf("unexpected error on first consume: %v", err)
	}
	if _, err := c.Consume(); err != ErrAlreadyConsumed {
		t.Fatalf("expected ErrAlreadyConsumed on second call, got %v", err)
	}
}

func TestEndsFromTokensAccumulatesDecodedLengths(t *testing.T) {
	vocab := map[int]string{1: "ab", 2: "cd", 3: "ef"}
	decode := func(tokens []int) string {
		out := ""
		for _, t := range tokens {
			out += vocab[t]
		}
		return out
	}
	ends := EndsFromTokens(decode, []int{1, 2, 3})
	want := []int{2, 4, 6}
	for i := range want {
		if ends[i] != want[i] {
			t.Fatalf("ends[%d] = %d, want %d (full: %v)", i, ends[i], want[i], ends)
		}
	}
}
