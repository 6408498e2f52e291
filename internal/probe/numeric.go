package probe

import "math"

// ParseAmount reads a decimal integer from the leading characters of s:
// optional whitespace, an optional sign, then digits up to the first
// non-digit byte. Strings without leading digits yield 0. Values beyond
// the int64 range saturate at the bounds.
//
// Command line sizes are treated best-effort on purpose: a malformed
// argument degrades to a zero-byte request instead of refusing to run.
func ParseAmount(s string) int64 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	var n uint64
	sawDigit := false
	overflow := false
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		sawDigit = true
		if overflow {
			continue
		}
		d := uint64(s[i] - '0')
		if n > (math.MaxUint64-d)/10 {
			overflow = true
			continue
		}
		n = n*10 + d
	}

	if !sawDigit {
		return 0
	}

	if neg {
		if overflow || n >= 1<<63 {
			return math.MinInt64
		}
		return -int64(n)
	}
	if overflow || n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
