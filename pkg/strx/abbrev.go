// Package strx holds small string helpers.
package strx

// Abbrev abbreviates x to at most n runes, replacing the removed part
// with rep ("..." when empty). startWithRep and endWithRep control
// where the replacement goes: at the start, at the end (the default
// choice for paths), at both ends keeping the middle, or in the middle
// keeping both ends when neither is set.
func Abbrev(x string, n int, startWithRep, endWithRep bool, rep string) string {
	runes := []rune(x)
	xlen := len(runes)
	if xlen <= n {
		return x
	}

	if rep == "" {
		rep = "..."
	}
	replen := len([]rune(rep))

	if startWithRep && endWithRep {
		nrep := n - 2*replen
		if nrep <= 0 {
			return rep
		}
		half := n/2 - replen
		leftover := nrep - 2*half
		halfx := xlen / 2
		return rep + string(runes[halfx-half:halfx+half+leftover]) + rep
	}

	nrep := n - replen
	if nrep <= 0 {
		return rep
	}
	if startWithRep {
		return rep + string(runes[xlen-nrep:])
	}
	if endWithRep {
		return string(runes[:nrep]) + rep
	}

	half := nrep / 2
	leftover := nrep - 2*half
	return string(runes[:half+leftover]) + rep + string(runes[xlen-half:])
}
