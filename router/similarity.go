package router

// similarity computes the Ratcliff/Obershelp ratio of two strings: twice
// the number of matching characters over the total length, where matches
// are counted by recursively finding the longest common substring and
// matching the pieces on either side of it. The result matches Python's
// difflib.SequenceMatcher.ratio for inputs without junk characters.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matched := matchingChars([]byte(a), []byte(b))
	return 2.0 * float64(matched) / float64(len(a)+len(b))
}

func matchingChars(a, b []byte) int {
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:aStart], b[:bStart])
	total += matchingChars(a[aStart+size:], b[bStart+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the
// longest run of bytes common to a and b, preferring the earliest match,
// via the standard dynamic programming table rolled one row at a time.
func longestCommonSubstring(a, b []byte) (aStart, bStart, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					aStart = i - size
					bStart = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return aStart, bStart, size
}
