package referral

// similarity is the classic matching-blocks ratio: twice the total length of
// all common blocks over the combined length. 1 means identical, 0 means no
// common characters. Operates on runes so multibyte names compare correctly.
func similarity(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 && len(br) == 0 {
		return 1
	}
	if len(ar) == 0 || len(br) == 0 {
		return 0
	}
	matched := matchTotal(ar, br, 0, len(ar), 0, len(br))
	return 2 * float64(matched) / float64(len(ar)+len(br))
}

// matchTotal sums the longest common block in the window plus whatever matches
// recursively on either side of it.
func matchTotal(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, size := longestMatch(a, b, alo, ahi, blo, bhi)
	if size == 0 {
		return 0
	}
	return size +
		matchTotal(a, b, alo, i, blo, j) +
		matchTotal(a, b, i+size, ahi, j+size, bhi)
}

func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	runs := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newRuns := make(map[int]int)
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				continue
			}
			k := runs[j-1] + 1
			newRuns[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		runs = newRuns
	}
	return besti, bestj, bestsize
}
