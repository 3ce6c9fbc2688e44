// Package stopstring implements the streaming textual stop condition
// over a model's token stream (§3 Stop-String State, §4.6). Model tokens
// do not align with the strings callers want to stop on, so this is a
// small state machine driven one token at a time by the adapter's
// generation loop.
package stopstring

import (
	"strings"
	"unicode"
)

// Rules is one side (inclusive or exclusive) of the stop-string
// configuration. Wildcard strings are always active; BySuffix strings
// become active only when their key is among the longest suffixes of
// the (rstripped) prompt.
type Rules struct {
	Wildcard []string
	BySuffix map[string][]string
}

// Trigger records which stop string fired and whether it should be
// removed from (exclusive) or kept in (inclusive) the returned text.
type Trigger struct {
	String string
	Remove bool
}

// Detector is a fresh, single-use state machine for one generation.
type Detector struct {
	detok           *StreamDetokenizer
	activeInclusive []string
	activeExclusive []string
	isEmpty         bool
	decoded         strings.Builder
	trigger         *Trigger
}

// New selects the active rule sets from prompt once (§4.6 rule-selection
// algorithm) and returns a Detector ready to consume tokens.
func New(decode DecodeFunc, prompt string, inclusive, exclusive Rules) *Detector {
	stripped := strings.TrimRightFunc(prompt, unicode.IsSpace)
	activeIncl := selectActive(stripped, inclusive)
	activeExcl := selectActive(stripped, exclusive)
	return &Detector{
		detok:           NewStreamDetokenizer(decode),
		activeInclusive: activeIncl,
		activeExclusive: activeExcl,
		isEmpty:         len(activeIncl)+len(activeExcl) == 0,
	}
}

// selectActive implements the longest-suffix-preference rule selection:
// wildcard strings are always absorbed; among BySuffix keys that are a
// suffix of stripped, only those of maximum length contribute.
func selectActive(stripped string, r Rules) []string {
	active := make(map[string]struct{}, len(r.Wildcard))
	for _, s := range r.Wildcard {
		active[s] = struct{}{}
	}

	maxLen := -1
	var matched []string
	for key := range r.BySuffix {
		if strings.HasSuffix(stripped, key) {
			matched = append(matched, key)
			if len(key) > maxLen {
				maxLen = len(key)
			}
		}
	}
	for _, key := range matched {
		if len(key) == maxLen {
			for _, s := range r.BySuffix[key] {
				active[s] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(active))
	for s := range active {
		out = append(out, s)
	}
	return out
}

// IsEmpty reports whether no stop strings are active for this
// generation, letting callers skip detokenization entirely.
func (d *Detector) IsEmpty() bool { return d.isEmpty }

// Stopped reports whether a stop string has already fired.
func (d *Detector) Stopped() bool { return d.trigger != nil }

// Step feeds one more generated token and reports whether generation
// should stop. Exclusive stop strings are checked before inclusive ones
// (§4.6 step 3: "first hit wins"); once a trigger fires, further calls
// are no-ops and keep returning true.
func (d *Detector) Step(token int) bool {
	if d.trigger != nil {
		return true
	}
	if d.isEmpty {
		return false
	}

	emitted := d.detok.Next(token)
	d.decoded.WriteString(emitted)
	decoded := d.decoded.String()

	if trig := firstHit(decoded, emitted, d.activeExclusive, true); trig != nil {
		d.trigger = trig
		return true
	}
	if trig := firstHit(decoded, emitted, d.activeInclusive, false); trig != nil {
		d.trigger = trig
		return true
	}
	return false
}

// firstHit scans the tail window of decoded (of length
// len(stop)+len(emitted)-1, per §4.6) for each candidate stop string and
// returns the first one found.
func firstHit(decoded, emitted string, candidates []string, remove bool) *Trigger {
	for _, s := range candidates {
		lookback := len(s) + len(emitted) - 1
		if lookback < 0 {
			lookback = 0
		}
		tail := tail(decoded, lookback)
		if strings.Contains(tail, s) {
			return &Trigger{String: s, Remove: remove}
		}
	}
	return nil
}

func tail(s string, n int) string {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Trigger returns the stop string that fired, or nil if generation has
// not stopped.
func (d *Detector) Trigger() *Trigger { return d.trigger }

// Result returns the text to return to the caller: decoded-so-far,
// trimmed at the trigger (inclusive or exclusive per its Remove flag)
// and right-stripped of whitespace — the §4.6 trim policy. If no
// trigger has fired, the full decoded text is returned untrimmed.
func (d *Detector) Result() string {
	decoded := d.decoded.String()
	if d.trigger == nil {
		return decoded
	}
	idx := strings.LastIndex(decoded, d.trigger.String)
	if idx < 0 {
		return strings.TrimRightFunc(decoded, unicode.IsSpace)
	}
	cut := idx
	if !d.trigger.Remove {
		cut = idx + len(d.trigger.String)
	}
	return strings.TrimRightFunc(decoded[:cut], unicode.IsSpace)
}
